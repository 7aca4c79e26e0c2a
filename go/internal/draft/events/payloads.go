package events

import (
	"time"
)

// Event payload types that are shared between the draft, relay and gateway packages

// DraftStartedPayload is the payload for a DraftStarted event
type DraftStartedPayload struct {
	StatusID  string    `json:"status_id"`
	TeamID    string    `json:"team_id"`
	TeamName  string    `json:"team_name"`
	TeamCount int       `json:"team_count"`
	StartedAt time.Time `json:"started_at"`
}

// DraftPausedPayload is the payload for a DraftPaused event
type DraftPausedPayload struct {
	StatusID string    `json:"status_id"`
	TeamID   string    `json:"team_id"`
	PausedAt time.Time `json:"paused_at"`
}

// DraftResumedPayload is the payload for a DraftResumed event
type DraftResumedPayload struct {
	StatusID  string    `json:"status_id"`
	TeamID    string    `json:"team_id"`
	ResumedAt time.Time `json:"resumed_at"`
}

// TurnAdvancedPayload is the payload for a TurnAdvanced event
type TurnAdvancedPayload struct {
	StatusID   string    `json:"status_id"`
	FromTeamID string    `json:"from_team_id,omitempty"`
	TeamID     string    `json:"team_id"`
	TeamName   string    `json:"team_name"`
	AdvancedAt time.Time `json:"advanced_at"`
}

// DraftCompletedPayload is the payload for a DraftCompleted event
type DraftCompletedPayload struct {
	StatusID    string    `json:"status_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// PlayerClaimedPayload is the payload for a PlayerClaimed event
type PlayerClaimedPayload struct {
	PlayerID  string    `json:"player_id"`
	TeamID    string    `json:"team_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// TurnPassedPayload is the payload for a TurnPassed event
type TurnPassedPayload struct {
	StatusID   string    `json:"status_id"`
	FromTeamID string    `json:"from_team_id,omitempty"`
	PassedAt   time.Time `json:"passed_at"`
}
