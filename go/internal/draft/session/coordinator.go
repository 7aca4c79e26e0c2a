package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/rs/zerolog/log"
)

// Repository defines what the coordinator needs from the record store
type Repository interface {
	ReadTeams(ctx context.Context, f recordstore.TeamFilter) ([]models.Team, error)
	ReadDraftStatus(ctx context.Context, f recordstore.StatusFilter) (*models.DraftStatus, error)
	UpdateDraftStatus(ctx context.Context, f recordstore.StatusFilter, fields recordstore.StatusFields) (int64, error)
	Subscribe(ctx context.Context, table recordstore.Table, kind recordstore.EventKind) (*recordstore.Subscription, error)
}

// Coordinator owns one client's view of a draft session: whose turn it is and which phase
// the session is in. Operations validate against the latest observed state, persist the new
// (phase, current team) pair and only then apply it locally.
type Coordinator struct {
	repo Repository
	cfg  Config

	opMu sync.Mutex // serializes operations and refreshes

	mu    sync.RWMutex
	state models.DraftState
	teams []models.Team

	updates chan models.DraftState
}

// NewCoordinator creates a coordinator. Call Refresh before the first operation.
func NewCoordinator(repo Repository, cfg Config) *Coordinator {
	cfg = cfg.withDefaults()
	return &Coordinator{
		repo: repo,
		cfg:  cfg,
		state: models.DraftState{
			RoomID: cfg.RoomID,
			Phase:  models.DraftPhaseNotStarted,
		},
		updates: make(chan models.DraftState, 1),
	}
}

// State returns a copy of the latest observed state.
func (c *Coordinator) State() models.DraftState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyState(c.state)
}

// Teams returns the latest observed teams in rotation key order.
func (c *Coordinator) Teams() []models.Team {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Team, len(c.teams))
	copy(out, c.teams)
	return out
}

// TeamName resolves a team ID against the observed teams.
func (c *Coordinator) TeamName(id *uuid.UUID) string {
	if id == nil {
		return "None"
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.teams {
		if t.ID == *id {
			return t.Name
		}
	}
	return "None"
}

// Actions derives the operations available in the observed phase.
func (c *Coordinator) Actions() []Action {
	return AvailableActions(c.State().Phase)
}

// Updates delivers state snapshots after every refresh or successful operation. Only the
// latest snapshot is kept for a slow reader.
func (c *Coordinator) Updates() <-chan models.DraftState {
	return c.updates
}

// Refresh re-reads the session and its teams. On failure local state is unchanged.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.refresh(ctx)
}

func (c *Coordinator) refresh(ctx context.Context) error {
	ds, err := c.repo.ReadDraftStatus(ctx, c.statusFilter())
	if err != nil {
		return storeErr("read draft status", err)
	}
	if !ds.Status.Valid() {
		return fmt.Errorf("%w: unknown draft status %q", ErrStoreUnavailable, ds.Status)
	}
	teams, err := c.repo.ReadTeams(ctx, c.teamFilter())
	if err != nil {
		return storeErr("read teams", err)
	}

	c.mu.Lock()
	c.teams = teams
	c.state.StatusID = ds.ID
	c.state.Phase = ds.Status
	c.state.CurrentTeamID = ds.CurrentTeamID
	c.state.ObservedAt = c.cfg.Clock.Now()
	switch {
	case ds.Status == models.DraftPhaseNotStarted:
		c.state.TeamOrder = nil
	case len(c.state.TeamOrder) == 0:
		c.state.TeamOrder = teamIDs(teams)
	}
	snapshot := copyState(c.state)
	c.mu.Unlock()

	c.publish(snapshot)
	return nil
}

// Start moves a not-started session to in progress with a team chosen by the policy.
func (c *Coordinator) Start(ctx context.Context) (models.DraftState, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	current := c.State()
	switch current.Phase {
	case models.DraftPhaseNotStarted:
	case models.DraftPhaseCompleted:
		return current, fmt.Errorf("%w: draft already finalized", ErrInvalidTransition)
	default:
		return current, fmt.Errorf("%w: draft has already started", ErrInvalidTransition)
	}

	teams := c.Teams()
	if len(teams) == 0 {
		return current, fmt.Errorf("%w: no teams to start with", ErrInvalidTransition)
	}

	first := teams[c.cfg.Policy.Pick(teams)]
	next := current
	next.Phase = models.DraftPhaseInProgress
	next.CurrentTeamID = &first.ID
	next.TeamOrder = teamIDs(teams)

	if err := c.persist(ctx, next); err != nil {
		return current, err
	}
	c.apply(next)

	log.Info().
		Str("room_id", roomString(next.RoomID)).
		Str("team", first.Name).
		Msg("draft started")

	c.emit(ctx, events.TypeDraftStarted, events.DraftStartedPayload{
		StatusID:  next.StatusID.String(),
		TeamID:    first.ID.String(),
		TeamName:  first.Name,
		TeamCount: len(teams),
		StartedAt: c.cfg.Clock.Now(),
	})
	return c.State(), nil
}

// Pause toggles between in progress and paused. The turn holder is unchanged.
func (c *Coordinator) Pause(ctx context.Context) (models.DraftState, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	current := c.State()
	if err := requireActive(current.Phase); err != nil {
		return current, err
	}

	next := current
	next.Phase = models.DraftPhasePaused
	if current.Phase == models.DraftPhasePaused {
		next.Phase = models.DraftPhaseInProgress
	}

	if err := c.persist(ctx, next); err != nil {
		return current, err
	}
	c.apply(next)

	now := c.cfg.Clock.Now()
	if next.Phase == models.DraftPhasePaused {
		log.Info().Str("room_id", roomString(next.RoomID)).Msg("draft paused")
		c.emit(ctx, events.TypeDraftPaused, events.DraftPausedPayload{
			StatusID: next.StatusID.String(),
			TeamID:   idString(next.CurrentTeamID),
			PausedAt: now,
		})
	} else {
		log.Info().Str("room_id", roomString(next.RoomID)).Msg("draft resumed")
		c.emit(ctx, events.TypeDraftResumed, events.DraftResumedPayload{
			StatusID:  next.StatusID.String(),
			TeamID:    idString(next.CurrentTeamID),
			ResumedAt: now,
		})
	}
	return c.State(), nil
}

// Advance hands the turn to the team after the current one in the fixed ordering, wrapping
// after the last. A holder missing from the ordering (or none) is followed by the first team.
func (c *Coordinator) Advance(ctx context.Context) (models.DraftState, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	current := c.State()
	if err := requireActive(current.Phase); err != nil {
		return current, err
	}

	order := c.rotation(current.TeamOrder)
	if len(order) == 0 {
		return current, fmt.Errorf("%w: no teams to advance to", ErrInvalidTransition)
	}

	idx := -1
	if current.CurrentTeamID != nil {
		for i, t := range order {
			if t.ID == *current.CurrentTeamID {
				idx = i
				break
			}
		}
	}
	to := order[(idx+1)%len(order)]

	next := current
	next.CurrentTeamID = &to.ID
	next.TeamOrder = teamIDs(order)

	if err := c.persist(ctx, next); err != nil {
		return current, err
	}
	c.apply(next)

	log.Info().
		Str("room_id", roomString(next.RoomID)).
		Str("team", to.Name).
		Msg("turn advanced")

	c.emit(ctx, events.TypeTurnAdvanced, events.TurnAdvancedPayload{
		StatusID:   next.StatusID.String(),
		FromTeamID: idString(current.CurrentTeamID),
		TeamID:     to.ID.String(),
		TeamName:   to.Name,
		AdvancedAt: c.cfg.Clock.Now(),
	})
	return c.State(), nil
}

// End finalizes the session and clears the turn holder. Completed is terminal.
func (c *Coordinator) End(ctx context.Context) (models.DraftState, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	current := c.State()
	if err := requireActive(current.Phase); err != nil {
		return current, err
	}

	next := current
	next.Phase = models.DraftPhaseCompleted
	next.CurrentTeamID = nil

	if err := c.persist(ctx, next); err != nil {
		return current, err
	}
	c.apply(next)

	log.Info().Str("room_id", roomString(next.RoomID)).Msg("draft completed")

	c.emit(ctx, events.TypeDraftCompleted, events.DraftCompletedPayload{
		StatusID:    next.StatusID.String(),
		CompletedAt: c.cfg.Clock.Now(),
	})
	return c.State(), nil
}

// Run refreshes on every draft_status or teams change until ctx is done. Notifications are
// refresh triggers only; their row images are not replayed.
func (c *Coordinator) Run(ctx context.Context) error {
	statusSub, err := c.repo.Subscribe(ctx, recordstore.TableDraftStatus, recordstore.EventAll)
	if err != nil {
		return storeErr("subscribe to draft status", err)
	}
	defer statusSub.Unsubscribe()

	teamSub, err := c.repo.Subscribe(ctx, recordstore.TableTeams, recordstore.EventAll)
	if err != nil {
		return storeErr("subscribe to teams", err)
	}
	defer teamSub.Unsubscribe()

	// writes landing before the subscriptions opened carry no notification
	c.refreshLogged(ctx)

	for {
		var (
			ev recordstore.ChangeEvent
			ok bool
		)
		select {
		case <-ctx.Done():
			return nil
		case ev, ok = <-statusSub.C:
		case ev, ok = <-teamSub.C:
		}
		if !ok {
			return nil
		}
		if !ev.ConcernsRoom(c.cfg.RoomID) {
			continue
		}
		drain(statusSub.C)
		drain(teamSub.C)

		c.refreshLogged(ctx)
	}
}

func (c *Coordinator) refreshLogged(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomString(c.cfg.RoomID)).
			Msg("failed to refresh draft state")
	}
}

// persist writes the (phase, current team) pair of next.
func (c *Coordinator) persist(ctx context.Context, next models.DraftState) error {
	n, err := c.repo.UpdateDraftStatus(ctx, c.statusFilter(), recordstore.StatusFields{
		Status:        next.Phase,
		CurrentTeamID: next.CurrentTeamID,
	})
	if err != nil {
		return storeErr("update draft status", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: draft status row is missing", ErrStoreUnavailable)
	}
	return nil
}

func (c *Coordinator) apply(next models.DraftState) {
	c.mu.Lock()
	c.state = copyState(next)
	c.state.ObservedAt = c.cfg.Clock.Now()
	snapshot := copyState(c.state)
	c.mu.Unlock()

	c.publish(snapshot)
}

func (c *Coordinator) publish(s models.DraftState) {
	for {
		select {
		case c.updates <- s:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

// rotation returns the observed teams in the captured order. Teams that joined after the
// ordering was fixed are appended in key order.
func (c *Coordinator) rotation(order []uuid.UUID) []models.Team {
	teams := c.Teams()
	byID := make(map[uuid.UUID]models.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	out := make([]models.Team, 0, len(teams))
	seen := make(map[uuid.UUID]bool, len(teams))
	for _, id := range order {
		if t, ok := byID[id]; ok {
			out = append(out, t)
			seen[id] = true
		}
	}
	for _, t := range teams {
		if !seen[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func (c *Coordinator) emit(ctx context.Context, typ events.Type, payload any) {
	if c.cfg.Emitter == nil {
		return
	}
	ev, err := events.New(typ, c.cfg.RoomID, c.cfg.Clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("Failed to build event")
		return
	}
	if err := c.cfg.Emitter.Emit(ctx, ev); err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("Failed to emit event")
	}
}

func (c *Coordinator) statusFilter() recordstore.StatusFilter {
	return recordstore.StatusFilter{RoomID: c.cfg.RoomID}
}

func (c *Coordinator) teamFilter() recordstore.TeamFilter {
	return recordstore.TeamFilter{
		RoomID:  c.cfg.RoomID,
		Global:  c.cfg.RoomID == nil,
		OrderBy: c.cfg.OrderBy,
	}
}

// storeErr marks a repository failure as ErrStoreUnavailable.
func storeErr(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("failed to %s: %w: %w", op, ErrStoreUnavailable, err)
}

func requireActive(phase models.DraftPhase) error {
	switch phase {
	case models.DraftPhaseInProgress, models.DraftPhasePaused:
		return nil
	case models.DraftPhaseCompleted:
		return fmt.Errorf("%w: draft already finalized", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: draft has not started", ErrInvalidTransition)
	}
}

func drain(ch <-chan recordstore.ChangeEvent) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func copyState(s models.DraftState) models.DraftState {
	if s.CurrentTeamID != nil {
		id := *s.CurrentTeamID
		s.CurrentTeamID = &id
	}
	if s.RoomID != nil {
		id := *s.RoomID
		s.RoomID = &id
	}
	if s.TeamOrder != nil {
		s.TeamOrder = append([]uuid.UUID(nil), s.TeamOrder...)
	}
	return s
}

func teamIDs(teams []models.Team) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return ids
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
