package recordstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []ChangeEvent
}

func (s *flakySink) PublishChange(_ context.Context, ev ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("nats unavailable")
	}
	s.got = append(s.got, ev)
	return nil
}

func newTestListener(sinks ...ChangeSink) *PGListener {
	cfg := DefaultListenerConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 2
	return &PGListener{
		sinks: sinks,
		clock: clockwork.NewRealClock(),
		cfg:   cfg,
	}
}

func TestPGListener_HandleNotification(t *testing.T) {
	roomID := uuid.New()
	payload := `{"table":"players","kind":"update","row":{"id":"` + uuid.NewString() + `","room_id":"` + roomID.String() + `","status":"Pending"}}`

	t.Run("fans out to every sink", func(t *testing.T) {
		hub := NewHub(4)
		sub, err := hub.Subscribe(context.Background(), TablePlayers, EventUpdate)
		require.NoError(t, err)
		sink := &flakySink{}

		l := newTestListener(hub, sink)
		require.NoError(t, l.handleNotification(context.Background(), payload))

		ev := recvEvent(t, sub, time.Second)
		assert.Equal(t, roomID, *ev.RoomID)
		require.Len(t, sink.got, 1)
		assert.Equal(t, TablePlayers, sink.got[0].Table)
	})

	t.Run("retries a failing sink", func(t *testing.T) {
		sink := &flakySink{failures: 2}
		l := newTestListener(sink)

		require.NoError(t, l.handleNotification(context.Background(), payload))
		assert.Equal(t, 3, sink.calls)
		assert.Len(t, sink.got, 1)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		sink := &flakySink{failures: 10}
		l := newTestListener(sink)

		err := l.handleNotification(context.Background(), payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "publish failed after 3 attempts")
	})

	t.Run("invalid payload", func(t *testing.T) {
		l := newTestListener(&flakySink{})
		assert.Error(t, l.handleNotification(context.Background(), "{"))
	})
}

func TestPGListener_Resync(t *testing.T) {
	hub := NewHub(4)
	sub, err := hub.Subscribe(context.Background(), TableDraftStatus, EventUpdate)
	require.NoError(t, err)

	l := newTestListener(hub)
	l.resync(context.Background(), "reconnect")

	assert.Equal(t, EventResync, recvEvent(t, sub, time.Second).Kind)
}
