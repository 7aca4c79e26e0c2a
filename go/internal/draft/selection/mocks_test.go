package selection

import (
	"context"
	"sync"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ReadPlayers(ctx context.Context, f recordstore.PlayerFilter) ([]models.Player, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Player), args.Error(1)
}

func (m *MockRepository) UpdatePlayers(ctx context.Context, f recordstore.PlayerFilter, fields recordstore.PlayerFields) (int64, error) {
	args := m.Called(ctx, f, fields)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateDraftStatus(ctx context.Context, f recordstore.StatusFilter, fields recordstore.StatusFields) (int64, error) {
	args := m.Called(ctx, f, fields)
	return args.Get(0).(int64), args.Error(1)
}

// fixedTurns is a TurnReader whose state the test controls.
type fixedTurns struct {
	mu    sync.Mutex
	state models.DraftState
}

func (f *fixedTurns) State() models.DraftState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fixedTurns) set(s models.DraftState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}
