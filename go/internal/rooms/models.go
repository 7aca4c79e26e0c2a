package rooms

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/models"
)

var ErrValidation = errors.New("validation failed")

// CreateRoomRequest represents the data needed to create a room
type CreateRoomRequest struct {
	Name     string              `json:"name"`
	Password string              `json:"password,omitempty"`
	Settings models.RoomSettings `json:"settings"`
}

// StatusCard summarizes the session for the dashboard header.
type StatusCard struct {
	Status          models.DraftPhase `json:"status"`
	CurrentTeamID   *uuid.UUID        `json:"current_team_id"`
	CurrentTeamName string            `json:"current_team_name"`
	AvailableCount  int               `json:"available_count"`
	SelectedCount   int               `json:"selected_count"`
}

// TeamSummary is one row of the teams table.
type TeamSummary struct {
	TeamID      uuid.UUID `json:"team_id"`
	Name        string    `json:"name"`
	Logo        *string   `json:"logo,omitempty"`
	Budget      int64     `json:"budget"`
	PlayerCount int       `json:"player_count"`
	IsCurrent   bool      `json:"is_current"`
}

// Dashboard is everything a room's dashboard renders.
type Dashboard struct {
	Room             *models.Room    `json:"room,omitempty"`
	Status           StatusCard      `json:"status"`
	Teams            []TeamSummary   `json:"teams"`
	AvailablePlayers []models.Player `json:"available_players"`
}
