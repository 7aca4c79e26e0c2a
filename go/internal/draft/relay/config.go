package relay

import (
	"fmt"
	"time"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Config holds connection, stream and consumer settings for the relay.
type Config struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	MaxMsgs         int64         // Max number of messages to keep
	Replicas        int
	DuplicateWindow time.Duration // Window for event ID deduplication

	ConsumerName  string // Must be unique per gateway instance
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

// DefaultConfig returns the relay defaults.
func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "DRAFTROOM",
		SubjectPrefix:   "draftroom",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		MaxMsgs:         -1,
		Replicas:        1,
		DuplicateWindow: 2 * time.Minute,
		ConsumerName:    "draftroom-gateway",
		MaxDeliver:      5,
		AckWait:         30 * time.Second,
		MaxAckPending:   256,
	}
}

// EventSubject is the subject a domain event is published on.
func (c Config) EventSubject(typ events.Type) string {
	return fmt.Sprintf("%s.events.%s", c.SubjectPrefix, typ)
}

// ChangeSubject is the subject a record change is published on.
func (c Config) ChangeSubject(table recordstore.Table) string {
	return fmt.Sprintf("%s.changes.%s", c.SubjectPrefix, table)
}

func (c Config) eventPrefix() string  { return c.SubjectPrefix + ".events." }
func (c Config) changePrefix() string { return c.SubjectPrefix + ".changes." }

// Connect dials NATS with the relay's reconnect and logging options.
func Connect(cfg Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
