package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL    string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel  string        // Channel name the triggers notify on
	ResyncInterval time.Duration // How often to ask subscribers for a full refresh
	PingInterval   time.Duration
	MinReconnect   time.Duration
	MaxReconnect   time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		DatabaseURL:    "",
		NotifyChannel:  "record_changes",
		ResyncInterval: 30 * time.Second,
		PingInterval:   90 * time.Second,
		MinReconnect:   10 * time.Second,
		MaxReconnect:   time.Minute,
		MaxRetries:     3,
		RetryDelay:     200 * time.Millisecond,
	}
}

// ChangeSink receives decoded change events.
type ChangeSink interface {
	PublishChange(ctx context.Context, ev ChangeEvent) error
}

// PublishChange lets a Hub act as a ChangeSink.
func (h *Hub) PublishChange(_ context.Context, ev ChangeEvent) error {
	h.Publish(ev)
	return nil
}

// PGListener turns Postgres notifications into change events for one or more sinks.
type PGListener struct {
	listener *pq.Listener
	sinks    []ChangeSink
	clock    clockwork.Clock
	cfg      ListenerConfig
}

func NewPGListener(cfg ListenerConfig, clock clockwork.Clock, sinks ...ChangeSink) (*PGListener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnect,
		cfg.MaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for record changes")

	return &PGListener{
		listener: l,
		sinks:    sinks,
		clock:    clock,
		cfg:      cfg,
	}, nil
}

func (l *PGListener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("resync_interval", l.cfg.ResyncInterval).
		Msg("listener started")

	pingTicker := l.clock.NewTicker(l.cfg.PingInterval)
	resyncTicker := l.clock.NewTicker(l.cfg.ResyncInterval)
	defer pingTicker.Stop()
	defer resyncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// connection was re-established, anything in between is lost
				l.resync(ctx, "reconnect")
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-resyncTicker.Chan():
			l.resync(ctx, "interval")
		case <-pingTicker.Chan():
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *PGListener) Stop() error {
	return l.listener.Close()
}

// handleNotification decodes the trigger payload and fans it out.
func (l *PGListener) handleNotification(ctx context.Context, extra string) error {
	ev, err := DecodeChange([]byte(extra), l.clock.Now())
	if err != nil {
		return fmt.Errorf("invalid change payload: %w", err)
	}

	log.Debug().
		Str("table", string(ev.Table)).
		Str("kind", string(ev.Kind)).
		Msg("record change received")

	return l.dispatch(ctx, ev)
}

func (l *PGListener) resync(ctx context.Context, reason string) {
	log.Debug().Str("reason", reason).Msg("broadcasting resync")
	if err := l.dispatch(ctx, ChangeEvent{Kind: EventResync, ReceivedAt: l.clock.Now()}); err != nil {
		log.Error().Err(err).Msg("failed to broadcast resync")
	}
}

func (l *PGListener) dispatch(ctx context.Context, ev ChangeEvent) error {
	var firstErr error
	for _, sink := range l.sinks {
		if err := l.publishWithRetry(ctx, sink, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// publishWithRetry attempts to hand an event to a sink with a linear backoff.
func (l *PGListener) publishWithRetry(ctx context.Context, sink ChangeSink, ev ChangeEvent) error {
	var lastErr error

	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.clock.After(delay):
			}
		}

		if err := sink.PublishChange(ctx, ev); err != nil {
			lastErr = err
			log.Error().
				Err(err).
				Int("attempt", attempt+1).
				Str("table", string(ev.Table)).
				Msg("failed to publish change, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", l.cfg.MaxRetries+1, lastErr)
}
