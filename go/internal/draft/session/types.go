package session

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
)

// Action is an operation a participant may trigger in the current phase.
type Action string

const (
	ActionStart   Action = "start"
	ActionPause   Action = "pause"
	ActionResume  Action = "resume"
	ActionAdvance Action = "advance"
	ActionEnd     Action = "end"
)

// Config scopes a coordinator to a session and injects its collaborators.
type Config struct {
	// RoomID scopes the session. Nil selects the global session.
	RoomID  *uuid.UUID
	OrderBy models.TeamOrderKey
	Policy  SelectionPolicy
	Clock   clockwork.Clock
	Emitter events.Emitter
}

func (c Config) withDefaults() Config {
	if c.OrderBy == "" {
		c.OrderBy = models.TeamOrderByName
	}
	if c.Policy == nil {
		c.Policy = &RandomPolicy{}
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}

// ConfigForRoom builds a coordinator config from a room's settings.
func ConfigForRoom(room models.Room) Config {
	settings := room.Settings.WithDefaults()
	roomID := room.ID
	return Config{
		RoomID:  &roomID,
		OrderBy: settings.TeamOrder,
		Policy:  PolicyFor(settings.StartPolicy),
	}
}

// AvailableActions derives what can be triggered from phase.
func AvailableActions(phase models.DraftPhase) []Action {
	switch phase {
	case models.DraftPhaseNotStarted:
		return []Action{ActionStart}
	case models.DraftPhaseInProgress:
		return []Action{ActionPause, ActionAdvance, ActionEnd}
	case models.DraftPhasePaused:
		return []Action{ActionResume, ActionAdvance, ActionEnd}
	default:
		return nil
	}
}
