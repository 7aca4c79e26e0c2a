package rooms

import (
	"github.com/mcdev12/draftroom/go/internal/models"
)

const noTeam = "None"

// BuildDashboard derives the dashboard view from one consistent read of status, teams and
// players. Pending players count towards neither total.
func BuildDashboard(status models.DraftStatus, teams []models.Team, players []models.Player) Dashboard {
	card := StatusCard{
		Status:          status.Status,
		CurrentTeamID:   status.CurrentTeamID,
		CurrentTeamName: noTeam,
	}

	counts := make(map[string]int, len(teams))
	available := make([]models.Player, 0, len(players))
	for _, p := range players {
		switch p.Status {
		case models.PlayerStatusAvailable:
			card.AvailableCount++
			available = append(available, p)
		case models.PlayerStatusSelected:
			card.SelectedCount++
		}
		if p.TeamID != nil && p.Status == models.PlayerStatusSelected {
			counts[p.TeamID.String()]++
		}
	}

	summaries := make([]TeamSummary, 0, len(teams))
	for _, t := range teams {
		current := status.CurrentTeamID != nil && *status.CurrentTeamID == t.ID
		if current {
			card.CurrentTeamName = t.Name
		}
		summaries = append(summaries, TeamSummary{
			TeamID:      t.ID,
			Name:        t.Name,
			Logo:        t.Logo,
			Budget:      t.Budget,
			PlayerCount: counts[t.ID.String()],
			IsCurrent:   current,
		})
	}

	return Dashboard{
		Status:           card,
		Teams:            summaries,
		AvailablePlayers: available,
	}
}
