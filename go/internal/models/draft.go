package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftPhase defines the lifecycle phase of a draft session.
type DraftPhase string

const (
	DraftPhaseNotStarted DraftPhase = "not_started"
	DraftPhaseInProgress DraftPhase = "in_progress"
	DraftPhasePaused     DraftPhase = "paused"
	DraftPhaseCompleted  DraftPhase = "completed"
)

// Valid reports whether p is a known phase.
func (p DraftPhase) Valid() bool {
	switch p {
	case DraftPhaseNotStarted, DraftPhaseInProgress, DraftPhasePaused, DraftPhaseCompleted:
		return true
	default:
		return false
	}
}

// Active reports whether a turn holder is expected in this phase.
func (p DraftPhase) Active() bool {
	return p == DraftPhaseInProgress || p == DraftPhasePaused
}

// DraftStatus is the persisted draft_status row of a room.
type DraftStatus struct {
	ID            uuid.UUID  `json:"id"`
	RoomID        *uuid.UUID `json:"room_id,omitempty"`
	Status        DraftPhase `json:"status"`
	CurrentTeamID *uuid.UUID `json:"current_team_id,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DraftState is the in-memory view a coordinator keeps of its session.
type DraftState struct {
	StatusID      uuid.UUID   `json:"status_id"`
	RoomID        *uuid.UUID  `json:"room_id,omitempty"`
	Phase         DraftPhase  `json:"phase"`
	CurrentTeamID *uuid.UUID  `json:"current_team_id,omitempty"`
	TeamOrder     []uuid.UUID `json:"team_order,omitempty"`
	ObservedAt    time.Time   `json:"observed_at"`
}

// IsTurnOf reports whether teamID currently holds the turn.
func (s DraftState) IsTurnOf(teamID uuid.UUID) bool {
	return s.CurrentTeamID != nil && *s.CurrentTeamID == teamID
}
