package selection

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
)

// ClaimMode controls how a claim write treats a concurrent claim of the same player.
type ClaimMode string

const (
	// ClaimConditional only writes when the player is still Available in the store.
	ClaimConditional ClaimMode = "conditional"
	// ClaimLastWriteWins writes unconditionally after the availability read.
	ClaimLastWriteWins ClaimMode = "last_write_wins"
)

// ParseClaimMode validates a configured claim mode. Empty means conditional.
func ParseClaimMode(s string) (ClaimMode, error) {
	switch ClaimMode(s) {
	case "", ClaimConditional:
		return ClaimConditional, nil
	case ClaimLastWriteWins:
		return ClaimLastWriteWins, nil
	default:
		return "", fmt.Errorf("unknown claim mode %q", s)
	}
}

// Repository defines what the broker needs from the record store
type Repository interface {
	ReadPlayers(ctx context.Context, f recordstore.PlayerFilter) ([]models.Player, error)
	UpdatePlayers(ctx context.Context, f recordstore.PlayerFilter, fields recordstore.PlayerFields) (int64, error)
	UpdateDraftStatus(ctx context.Context, f recordstore.StatusFilter, fields recordstore.StatusFields) (int64, error)
}

// TurnReader exposes the latest observed session state. *session.Coordinator satisfies it.
type TurnReader interface {
	State() models.DraftState
}

// Config scopes a broker to a session.
type Config struct {
	RoomID    *uuid.UUID
	ClaimMode ClaimMode
	Clock     clockwork.Clock
	Emitter   events.Emitter
}

func (c Config) withDefaults() Config {
	if c.ClaimMode == "" {
		c.ClaimMode = ClaimConditional
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}
