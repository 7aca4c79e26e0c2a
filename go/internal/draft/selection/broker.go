package selection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/rs/zerolog/log"
)

// Broker validates and records player claims for the team holding the turn.
type Broker struct {
	repo  Repository
	turns TurnReader
	cfg   Config
}

// NewBroker creates a broker reading turn state from turns.
func NewBroker(repo Repository, turns TurnReader, cfg Config) *Broker {
	return &Broker{
		repo:  repo,
		turns: turns,
		cfg:   cfg.withDefaults(),
	}
}

// SelectPlayer marks playerID as Pending for teamID. teamID must hold the turn in the latest
// observed state and the player must be Available.
func (b *Broker) SelectPlayer(ctx context.Context, teamID, playerID uuid.UUID) (*models.Player, error) {
	state := b.turns.State()
	if !state.IsTurnOf(teamID) {
		return nil, ErrNotYourTurn
	}

	players, err := b.repo.ReadPlayers(ctx, b.playerFilter(playerID))
	if err != nil {
		return nil, storeErr("read player", err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: player %s not found", ErrPlayerUnavailable, playerID)
	}
	player := players[0]
	if !player.IsAvailable() {
		return nil, fmt.Errorf("%w: %s is %s", ErrPlayerUnavailable, player.Name, player.Status)
	}

	filter := b.playerFilter(playerID)
	if b.cfg.ClaimMode == ClaimConditional {
		available := models.PlayerStatusAvailable
		filter.Status = &available
	}
	n, err := b.repo.UpdatePlayers(ctx, filter, recordstore.PlayerFields{
		Status: models.PlayerStatusPending,
		TeamID: &teamID,
	})
	if err != nil {
		return nil, storeErr("claim player", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s was claimed concurrently", ErrPlayerUnavailable, player.Name)
	}

	player.Status = models.PlayerStatusPending
	player.TeamID = &teamID

	log.Info().
		Str("room_id", roomString(b.cfg.RoomID)).
		Str("team_id", teamID.String()).
		Str("player", player.Name).
		Msg("player claimed")

	b.emit(ctx, events.TypePlayerClaimed, events.PlayerClaimedPayload{
		PlayerID:  playerID.String(),
		TeamID:    teamID.String(),
		ClaimedAt: b.cfg.Clock.Now(),
	})
	return &player, nil
}

// PassTurn relinquishes teamID's turn without naming a successor. teamID must hold the turn in
// the latest observed state.
//
// BUG: this writes in_progress with no turn holder regardless of the current phase, so it can
// resume a paused draft or reopen a completed one. It bypasses Advance and the coordinator's
// transition checks entirely.
func (b *Broker) PassTurn(ctx context.Context, teamID uuid.UUID) error {
	state := b.turns.State()
	if !state.IsTurnOf(teamID) {
		return ErrNotYourTurn
	}

	n, err := b.repo.UpdateDraftStatus(ctx, recordstore.StatusFilter{RoomID: b.cfg.RoomID}, recordstore.StatusFields{
		Status:        models.DraftPhaseInProgress,
		CurrentTeamID: nil,
	})
	if err != nil {
		return storeErr("pass turn", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: draft status row is missing", ErrStoreUnavailable)
	}

	log.Info().
		Str("room_id", roomString(b.cfg.RoomID)).
		Str("from_team_id", idString(state.CurrentTeamID)).
		Msg("turn passed")

	b.emit(ctx, events.TypeTurnPassed, events.TurnPassedPayload{
		StatusID:   state.StatusID.String(),
		FromTeamID: idString(state.CurrentTeamID),
		PassedAt:   b.cfg.Clock.Now(),
	})
	return nil
}

// playerFilter scopes playerID to the broker's session.
func (b *Broker) playerFilter(playerID uuid.UUID) recordstore.PlayerFilter {
	return recordstore.PlayerFilter{
		ID:     &playerID,
		RoomID: b.cfg.RoomID,
		Global: b.cfg.RoomID == nil,
	}
}

func (b *Broker) emit(ctx context.Context, typ events.Type, payload any) {
	if b.cfg.Emitter == nil {
		return
	}
	ev, err := events.New(typ, b.cfg.RoomID, b.cfg.Clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("Failed to build event")
		return
	}
	if err := b.cfg.Emitter.Emit(ctx, ev); err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("Failed to emit event")
	}
}

func storeErr(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, ErrStoreUnavailable, err)
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func roomString(id *uuid.UUID) string {
	if id == nil {
		return "global"
	}
	return id.String()
}
