package session

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

func (m *MockRepository) ReadTeams(ctx context.Context, f recordstore.TeamFilter) ([]models.Team, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Team), args.Error(1)
}

func (m *MockRepository) ReadDraftStatus(ctx context.Context, f recordstore.StatusFilter) (*models.DraftStatus, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DraftStatus), args.Error(1)
}

func (m *MockRepository) UpdateDraftStatus(ctx context.Context, f recordstore.StatusFilter, fields recordstore.StatusFields) (int64, error) {
	args := m.Called(ctx, f, fields)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Subscribe(ctx context.Context, table recordstore.Table, kind recordstore.EventKind) (*recordstore.Subscription, error) {
	args := m.Called(ctx, table, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recordstore.Subscription), args.Error(1)
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

func (r *recordingEmitter) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
