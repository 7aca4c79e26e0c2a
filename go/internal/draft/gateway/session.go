package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/draft/selection"
	"github.com/mcdev12/draftroom/go/internal/draft/session"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
)

// ClientSession is the coordinator and broker owned by one connected client.
type ClientSession struct {
	Coordinator *session.Coordinator
	Broker      *selection.Broker
}

// SessionFactory builds a fresh, refreshed ClientSession for a room. A nil room is the
// global session.
type SessionFactory interface {
	NewSession(ctx context.Context, roomID *uuid.UUID) (*ClientSession, error)
}

// StoreSessionFactory builds sessions over a record store, reading per-room settings.
type StoreSessionFactory struct {
	store     recordstore.Store
	claimMode selection.ClaimMode
	clock     clockwork.Clock
	emitter   events.Emitter
}

func NewStoreSessionFactory(store recordstore.Store, claimMode selection.ClaimMode, clock clockwork.Clock, emitter events.Emitter) *StoreSessionFactory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StoreSessionFactory{store: store, claimMode: claimMode, clock: clock, emitter: emitter}
}

// SetEmitter replaces the emitter used by sessions created afterwards.
func (f *StoreSessionFactory) SetEmitter(e events.Emitter) {
	f.emitter = e
}

func (f *StoreSessionFactory) NewSession(ctx context.Context, roomID *uuid.UUID) (*ClientSession, error) {
	cfg := session.Config{RoomID: roomID}
	if roomID != nil {
		room, err := f.store.GetRoom(ctx, *roomID)
		if err != nil {
			return nil, fmt.Errorf("failed to load room: %w", err)
		}
		cfg = session.ConfigForRoom(*room)
	}
	cfg.Clock = f.clock
	cfg.Emitter = f.emitter

	coordinator := session.NewCoordinator(f.store, cfg)
	if err := coordinator.Refresh(ctx); err != nil {
		return nil, err
	}

	broker := selection.NewBroker(f.store, coordinator, selection.Config{
		RoomID:    roomID,
		ClaimMode: f.claimMode,
		Clock:     f.clock,
		Emitter:   f.emitter,
	})
	return &ClientSession{Coordinator: coordinator, Broker: broker}, nil
}
