package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	headerEventType = "Event-Type"
	headerEventID   = "Event-ID"
	headerRoomID    = "Room-ID"
	headerTable     = "Table"
	headerKind      = "Kind"
)

// streamPublisher is the subset of jetstream.JetStream the publisher writes through.
type streamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher writes domain events and record changes to JetStream. It is an events.Emitter
// and a recordstore.ChangeSink.
type Publisher struct {
	nc      *nats.Conn
	js      streamPublisher
	config  Config
	metrics MetricsCollector
}

var (
	_ events.Emitter         = (*Publisher)(nil)
	_ recordstore.ChangeSink = (*Publisher)(nil)
)

// NewPublisher connects to NATS and ensures the stream exists.
func NewPublisher(ctx context.Context, cfg Config, metrics MetricsCollector) (*Publisher, error) {
	nc, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	p := newPublisher(js, cfg, metrics)
	p.nc = nc
	return p, nil
}

func newPublisher(js streamPublisher, cfg Config, metrics MetricsCollector) *Publisher {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Publisher{js: js, config: cfg, metrics: metrics}
}

func ensureStream(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	sc := jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Draft room domain events and record changes",
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		MaxMsgs:     cfg.MaxMsgs,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
		Duplicates:  cfg.DuplicateWindow,
	}

	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		if _, err = js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", cfg.StreamName).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !isStreamConfigEqual(info.Config, sc) {
		if _, err = js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", cfg.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

// Emit publishes a domain event. The event ID is the JetStream message ID, so a retried emit
// inside the duplicate window is stored once.
func (p *Publisher) Emit(ctx context.Context, ev events.Event) error {
	start := time.Now()
	subject := p.config.EventSubject(ev.Type)

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			headerEventType: []string{string(ev.Type)},
			headerEventID:   []string{ev.ID.String()},
		},
	}
	if ev.RoomID != nil {
		msg.Header.Set(headerRoomID, ev.RoomID.String())
	}

	ack, err := p.js.PublishMsg(ctx, msg,
		jetstream.WithMsgID(ev.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	p.metrics.RecordPublished(subject, err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", ev.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published event")
	return nil
}

// PublishChange publishes a record change so other gateway instances can refresh.
func (p *Publisher) PublishChange(ctx context.Context, ev recordstore.ChangeEvent) error {
	start := time.Now()
	subject := p.config.ChangeSubject(ev.Table)
	if ev.Kind == recordstore.EventResync {
		subject = p.config.changePrefix() + string(recordstore.EventResync)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			headerTable: []string{string(ev.Table)},
			headerKind:  []string{string(ev.Kind)},
		},
	}
	if ev.RoomID != nil {
		msg.Header.Set(headerRoomID, ev.RoomID.String())
	}

	_, err = p.js.PublishMsg(ctx, msg, jetstream.WithExpectStream(p.config.StreamName))
	p.metrics.RecordPublished(subject, err == nil, time.Since(start))
	if err != nil {
		return fmt.Errorf("publish change to JetStream: %w", err)
	}
	return nil
}

// Connected reports whether the NATS connection is up.
func (p *Publisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

func (p *Publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func isStreamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
