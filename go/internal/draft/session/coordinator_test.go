package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	hub    *recordstore.Hub
	store  *recordstore.MemoryStore
	roomID uuid.UUID
	teams  map[string]models.Team
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	hub := recordstore.NewHub(32)
	store := recordstore.NewMemoryStore(hub, clock)
	room, err := store.CreateRoom(context.Background(), recordstore.CreateRoomRequest{Name: "test"})
	require.NoError(t, err)

	f := &fixture{hub: hub, store: store, roomID: room.ID, teams: make(map[string]models.Team), clock: clock}
	for _, name := range names {
		f.addTeam(name)
	}
	return f
}

func (f *fixture) addTeam(name string) models.Team {
	roomID := f.roomID
	team := f.store.PutTeam(models.Team{RoomID: &roomID, Name: name, Budget: 1000000})
	f.teams[name] = team
	f.clock.Advance(time.Second)
	return team
}

func (f *fixture) coordinator(t *testing.T, policy SelectionPolicy, emitter events.Emitter) *Coordinator {
	t.Helper()
	roomID := f.roomID
	c := NewCoordinator(f.store, Config{RoomID: &roomID, Policy: policy, Clock: f.clock, Emitter: emitter})
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

func (f *fixture) name(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	for name, team := range f.teams {
		if team.ID == *id {
			return name
		}
	}
	return "?"
}

// requireConsistent checks the phase / turn holder invariant against the store.
func requireConsistent(t *testing.T, f *fixture, s models.DraftState) {
	t.Helper()
	switch s.Phase {
	case models.DraftPhaseNotStarted, models.DraftPhaseCompleted:
		assert.Nil(t, s.CurrentTeamID, "phase %s must have no turn holder", s.Phase)
	case models.DraftPhaseInProgress, models.DraftPhasePaused:
		require.NotNil(t, s.CurrentTeamID, "phase %s needs a turn holder", s.Phase)
		teams, err := f.store.ReadTeams(context.Background(), recordstore.TeamFilter{ID: s.CurrentTeamID})
		require.NoError(t, err)
		assert.Len(t, teams, 1, "turn holder must reference an existing team")
	}
}

func recvState(t *testing.T, ch <-chan models.DraftState, within time.Duration, cond func(models.DraftState) bool) models.DraftState {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case s := <-ch:
			if cond(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("no matching state within %s", within)
		}
	}
}

func TestCoordinator_RoundRobinScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B", "C")
	emitter := &recordingEmitter{}
	c := f.coordinator(t, FixedPolicy{TeamID: f.teams["B"].ID}, emitter)

	s := c.State()
	assert.Equal(t, models.DraftPhaseNotStarted, s.Phase)
	requireConsistent(t, f, s)

	s, err := c.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPhaseInProgress, s.Phase)
	assert.Equal(t, "B", f.name(s.CurrentTeamID))
	requireConsistent(t, f, s)

	for _, want := range []string{"C", "A", "B"} {
		s, err = c.Advance(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, f.name(s.CurrentTeamID))
		assert.Equal(t, models.DraftPhaseInProgress, s.Phase)
		requireConsistent(t, f, s)
	}

	s, err = c.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPhaseCompleted, s.Phase)
	assert.Nil(t, s.CurrentTeamID)
	requireConsistent(t, f, s)

	_, err = c.Start(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.DraftPhaseCompleted, c.State().Phase)

	persisted, err := f.store.ReadDraftStatus(ctx, recordstore.StatusFilter{RoomID: &f.roomID})
	require.NoError(t, err)
	assert.Equal(t, models.DraftPhaseCompleted, persisted.Status)
	assert.Nil(t, persisted.CurrentTeamID)

	assert.Equal(t, []events.Type{
		events.TypeDraftStarted,
		events.TypeTurnAdvanced,
		events.TypeTurnAdvanced,
		events.TypeTurnAdvanced,
		events.TypeDraftCompleted,
	}, emitter.types())
}

func TestCoordinator_AdvanceClosure(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			ctx := context.Background()
			names := make([]string, n)
			for i := range names {
				names[i] = fmt.Sprintf("team-%02d", i)
			}
			f := newFixture(t, names...)
			c := f.coordinator(t, NewRandomPolicy(uint64(n)), nil)

			s, err := c.Start(ctx)
			require.NoError(t, err)
			origin := *s.CurrentTeamID

			seen := map[uuid.UUID]bool{}
			for i := 0; i < n; i++ {
				s, err = c.Advance(ctx)
				require.NoError(t, err)
				requireConsistent(t, f, s)
				seen[*s.CurrentTeamID] = true
			}
			assert.Equal(t, origin, *s.CurrentTeamID)
			assert.Len(t, seen, n, "every team holds the turn once per cycle")
		})
	}
}

func TestCoordinator_StartWithoutTeams(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t, FirstPolicy{}, nil)

	s, err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.DraftPhaseNotStarted, s.Phase)
	assert.Equal(t, models.DraftPhaseNotStarted, c.State().Phase)
	assert.Nil(t, c.State().CurrentTeamID)
}

func TestCoordinator_RejectsBeforeStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A")
	c := f.coordinator(t, FirstPolicy{}, nil)

	ops := map[string]func(context.Context) (models.DraftState, error){
		"pause":   c.Pause,
		"advance": c.Advance,
		"end":     c.End,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			_, err := op(ctx)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Contains(t, err.Error(), "not started")
			assert.Equal(t, models.DraftPhaseNotStarted, c.State().Phase)
		})
	}
}

func TestCoordinator_RejectsAfterCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	c := f.coordinator(t, FirstPolicy{}, nil)

	_, err := c.Start(ctx)
	require.NoError(t, err)
	_, err = c.End(ctx)
	require.NoError(t, err)

	for name, op := range map[string]func(context.Context) (models.DraftState, error){
		"start": c.Start, "pause": c.Pause, "advance": c.Advance, "end": c.End,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := op(ctx)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Contains(t, err.Error(), "finalized")
		})
	}
	assert.Empty(t, c.Actions())
}

func TestCoordinator_PauseToggle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")
	emitter := &recordingEmitter{}
	c := f.coordinator(t, FirstPolicy{}, emitter)

	_, err := c.Start(ctx)
	require.NoError(t, err)
	holder := *c.State().CurrentTeamID

	s, err := c.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPhasePaused, s.Phase)
	assert.Equal(t, holder, *s.CurrentTeamID)
	assert.Equal(t, []Action{ActionResume, ActionAdvance, ActionEnd}, c.Actions())

	s, err = c.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPhasePaused, s.Phase, "advance keeps the phase")
	assert.Equal(t, "B", f.name(s.CurrentTeamID))

	s, err = c.Pause(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPhaseInProgress, s.Phase)
	requireConsistent(t, f, s)

	assert.Equal(t, []events.Type{
		events.TypeDraftStarted,
		events.TypeDraftPaused,
		events.TypeTurnAdvanced,
		events.TypeDraftResumed,
	}, emitter.types())
}

func TestCoordinator_AdvanceFromNoHolderPicksFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B", "C")
	c := f.coordinator(t, FixedPolicy{TeamID: f.teams["C"].ID}, nil)

	_, err := c.Start(ctx)
	require.NoError(t, err)

	// another client relinquished the turn without naming a successor
	_, err = f.store.UpdateDraftStatus(ctx, recordstore.StatusFilter{RoomID: &f.roomID},
		recordstore.StatusFields{Status: models.DraftPhaseInProgress})
	require.NoError(t, err)
	require.NoError(t, c.Refresh(ctx))
	assert.Nil(t, c.State().CurrentTeamID)

	s, err := c.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", f.name(s.CurrentTeamID))
}

func TestCoordinator_OrderingFixedAtStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "B", "D")
	c := f.coordinator(t, FirstPolicy{}, nil)

	_, err := c.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", f.name(c.State().CurrentTeamID))

	// a team sorting between the existing ones joins mid-session
	f.addTeam("C")
	require.NoError(t, c.Refresh(ctx))

	var got []string
	for i := 0; i < 3; i++ {
		s, err := c.Advance(ctx)
		require.NoError(t, err)
		got = append(got, f.name(s.CurrentTeamID))
	}
	assert.Equal(t, []string{"D", "C", "B"}, got)
}

func TestCoordinator_StoreFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	roomID := uuid.New()
	statusID := uuid.New()
	teamA := models.Team{ID: uuid.New(), Name: "A"}
	teamB := models.Team{ID: uuid.New(), Name: "B"}
	filter := recordstore.StatusFilter{RoomID: &roomID}

	repo := new(MockRepository)
	repo.On("ReadDraftStatus", mock.Anything, filter).
		Return(&models.DraftStatus{ID: statusID, RoomID: &roomID, Status: models.DraftPhaseInProgress, CurrentTeamID: &teamA.ID}, nil)
	repo.On("ReadTeams", mock.Anything, mock.Anything).Return([]models.Team{teamA, teamB}, nil)
	repo.On("UpdateDraftStatus", mock.Anything, filter, mock.Anything).
		Return(int64(0), errors.New("connection reset by peer"))

	c := NewCoordinator(repo, Config{RoomID: &roomID, Policy: FirstPolicy{}, Clock: clockwork.NewFakeClock()})
	require.NoError(t, c.Refresh(ctx))
	before := c.State()

	for name, op := range map[string]func(context.Context) (models.DraftState, error){
		"pause": c.Pause, "advance": c.Advance, "end": c.End,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := op(ctx)
			assert.ErrorIs(t, err, ErrStoreUnavailable)
			after := c.State()
			assert.Equal(t, before.Phase, after.Phase)
			assert.Equal(t, *before.CurrentTeamID, *after.CurrentTeamID)
		})
	}
	repo.AssertExpectations(t)
}

func TestCoordinator_MissingStatusRow(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("ReadDraftStatus", mock.Anything, recordstore.StatusFilter{}).
		Return(nil, fmt.Errorf("draft status: %w", recordstore.ErrNotFound))

	c := NewCoordinator(repo, Config{})
	err := c.Refresh(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
	assert.Equal(t, models.DraftPhaseNotStarted, c.State().Phase)
}

func TestCoordinator_RunObservesOtherClients(t *testing.T) {
	f := newFixture(t, "A", "B")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auctioneer := f.coordinator(t, FirstPolicy{}, nil)
	viewer := f.coordinator(t, FirstPolicy{}, nil)

	done := make(chan error, 1)
	go func() { done <- viewer.Run(ctx) }()

	require.Eventually(t, func() bool { return f.hub.Len() == 2 }, time.Second, 5*time.Millisecond)

	_, err := auctioneer.Start(ctx)
	require.NoError(t, err)

	s := recvState(t, viewer.Updates(), 2*time.Second, func(s models.DraftState) bool {
		return s.Phase == models.DraftPhaseInProgress
	})
	assert.Equal(t, "A", f.name(s.CurrentTeamID))
	assert.Equal(t, []uuid.UUID{f.teams["A"].ID, f.teams["B"].ID}, s.TeamOrder)

	_, err = auctioneer.Advance(ctx)
	require.NoError(t, err)
	s = recvState(t, viewer.Updates(), 2*time.Second, func(s models.DraftState) bool {
		return s.CurrentTeamID != nil && *s.CurrentTeamID == f.teams["B"].ID
	})
	assert.Equal(t, models.DraftPhaseInProgress, s.Phase)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestCoordinator_TeamsScopedToSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "A", "B")

	other, err := f.store.CreateRoom(ctx, recordstore.CreateRoomRequest{Name: "other"})
	require.NoError(t, err)
	for _, name := range []string{"X", "Y", "Z"} {
		f.store.PutTeam(models.Team{RoomID: &other.ID, Name: name})
	}

	c := f.coordinator(t, FirstPolicy{}, nil)
	s, err := c.Start(ctx)
	require.NoError(t, err)
	assert.Len(t, s.TeamOrder, 2)
	for i := 0; i < 4; i++ {
		s, err = c.Advance(ctx)
		require.NoError(t, err)
		assert.Contains(t, []string{"A", "B"}, f.name(s.CurrentTeamID))
	}

	f.store.PutDraftStatus(models.DraftStatus{Status: models.DraftPhaseNotStarted})
	global := NewCoordinator(f.store, Config{Policy: FirstPolicy{}, Clock: f.clock})
	require.NoError(t, global.Refresh(ctx))
	assert.Empty(t, global.Teams())

	_, err = global.Start(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	solo := f.store.PutTeam(models.Team{Name: "Solo"})
	require.NoError(t, global.Refresh(ctx))
	s, err = global.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, solo.ID, *s.CurrentTeamID)
	s, err = global.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, solo.ID, *s.CurrentTeamID)

	ds, err := f.store.ReadDraftStatus(ctx, recordstore.StatusFilter{RoomID: &f.roomID})
	require.NoError(t, err)
	assert.Equal(t, f.teams["A"].ID, *ds.CurrentTeamID, "the global session must not touch the room")
}

// stallingRepo holds one draft status read after it completes, until release is closed.
type stallingRepo struct {
	*recordstore.MemoryStore
	armed   atomic.Bool
	reading chan struct{}
	release chan struct{}
}

func (r *stallingRepo) ReadDraftStatus(ctx context.Context, f recordstore.StatusFilter) (*models.DraftStatus, error) {
	ds, err := r.MemoryStore.ReadDraftStatus(ctx, f)
	if r.armed.CompareAndSwap(true, false) {
		r.reading <- struct{}{}
		<-r.release
	}
	return ds, err
}

func TestCoordinator_RunUnderForeignRoomLoad(t *testing.T) {
	f := newFixture(t, "A", "B")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, err := f.store.CreateRoom(ctx, recordstore.CreateRoomRequest{Name: "busy"})
	require.NoError(t, err)

	repo := &stallingRepo{MemoryStore: f.store, reading: make(chan struct{}), release: make(chan struct{})}
	roomID := f.roomID
	viewer := NewCoordinator(repo, Config{RoomID: &roomID, Policy: FirstPolicy{}, Clock: f.clock})
	go viewer.Run(ctx)

	recvState(t, viewer.Updates(), 2*time.Second, func(models.DraftState) bool { return true })

	// stall the next refresh after it has read the old phase
	repo.armed.Store(true)
	f.hub.Publish(recordstore.ChangeEvent{Table: recordstore.TableTeams, Kind: recordstore.EventUpdate, RoomID: &roomID})
	select {
	case <-repo.reading:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not start")
	}

	for i := 0; i < 64; i++ {
		f.hub.Publish(recordstore.ChangeEvent{Table: recordstore.TableDraftStatus, Kind: recordstore.EventUpdate, RoomID: &other.ID})
		f.hub.Publish(recordstore.ChangeEvent{Table: recordstore.TableTeams, Kind: recordstore.EventUpdate, RoomID: &other.ID})
	}
	teamA := f.teams["A"].ID
	_, err = f.store.UpdateDraftStatus(ctx, recordstore.StatusFilter{RoomID: &roomID},
		recordstore.StatusFields{Status: models.DraftPhaseInProgress, CurrentTeamID: &teamA})
	require.NoError(t, err)
	close(repo.release)

	s := recvState(t, viewer.Updates(), 2*time.Second, func(s models.DraftState) bool {
		return s.Phase == models.DraftPhaseInProgress
	})
	assert.Equal(t, teamA, *s.CurrentTeamID)
}

func TestCoordinator_RunCatchesWritesBeforeSubscribing(t *testing.T) {
	f := newFixture(t, "A", "B")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	viewer := f.coordinator(t, FirstPolicy{}, nil)
	<-viewer.Updates()

	auctioneer := f.coordinator(t, FirstPolicy{}, nil)
	_, err := auctioneer.Start(ctx)
	require.NoError(t, err)

	go viewer.Run(ctx)
	s := recvState(t, viewer.Updates(), 2*time.Second, func(s models.DraftState) bool {
		return s.Phase == models.DraftPhaseInProgress
	})
	assert.Equal(t, "A", f.name(s.CurrentTeamID))
}

func TestCoordinator_TeamName(t *testing.T) {
	f := newFixture(t, "Chennai")
	c := f.coordinator(t, FirstPolicy{}, nil)

	id := f.teams["Chennai"].ID
	assert.Equal(t, "Chennai", c.TeamName(&id))
	assert.Equal(t, "None", c.TeamName(nil))
	other := uuid.New()
	assert.Equal(t, "None", c.TeamName(&other))
}

func TestAvailableActions(t *testing.T) {
	assert.Equal(t, []Action{ActionStart}, AvailableActions(models.DraftPhaseNotStarted))
	assert.Equal(t, []Action{ActionPause, ActionAdvance, ActionEnd}, AvailableActions(models.DraftPhaseInProgress))
	assert.Nil(t, AvailableActions(models.DraftPhaseCompleted))
}
