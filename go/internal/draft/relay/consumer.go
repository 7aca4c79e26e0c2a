package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mcdev12/draftroom/go/internal/draft/events"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// EventHandler receives domain events read from the stream.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev events.Event) error
}

// Consumer reads the stream and feeds record changes into a local ChangeSink (usually the
// gateway's Hub) and domain events into an EventHandler.
type Consumer struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   Config
	changes  recordstore.ChangeSink
	handler  EventHandler
	metrics  MetricsCollector
}

// NewConsumer connects to NATS and creates or reuses the durable consumer.
func NewConsumer(ctx context.Context, cfg Config, changes recordstore.ChangeSink, handler EventHandler, metrics MetricsCollector) (*Consumer, error) {
	nc, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := newConsumer(cfg, changes, handler, metrics)
	c.nc = nc
	c.js = js

	if err := c.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

func newConsumer(cfg Config, changes recordstore.ChangeSink, handler EventHandler, metrics MetricsCollector) *Consumer {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Consumer{config: cfg, changes: changes, handler: handler, metrics: metrics}
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Durable:       c.config.ConsumerName,
		Description:   "Draft room gateway consumer",
		FilterSubject: c.config.SubjectPrefix + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
		MaxAckPending: c.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, c.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", c.config.ConsumerName).
			Str("stream", c.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", c.config.ConsumerName).
			Str("stream", c.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	c.consumer = consumer
	return nil
}

// Start consumes until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", c.config.ConsumerName).
		Str("stream", c.config.StreamName).
		Msg("starting JetStream consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay consumer shutting down")
			return nil
		case msg := <-messageCh:
			start := time.Now()
			err := c.process(ctx, msg.Subject(), msg.Data())
			c.metrics.RecordConsumed(msg.Subject(), err == nil, time.Since(start))
			if err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// process routes a message by subject.
func (c *Consumer) process(ctx context.Context, subject string, data []byte) error {
	switch {
	case strings.HasPrefix(subject, c.config.changePrefix()):
		var ev recordstore.ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("unmarshal change: %w", err)
		}
		if c.changes == nil {
			return nil
		}
		return c.changes.PublishChange(ctx, ev)

	case strings.HasPrefix(subject, c.config.eventPrefix()):
		var ev events.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("unmarshal event envelope: %w", err)
		}
		log.Debug().
			Str("event_id", ev.ID.String()).
			Str("event_type", string(ev.Type)).
			Str("subject", subject).
			Msg("processing JetStream event")
		if c.handler == nil {
			return nil
		}
		return c.handler.HandleEvent(ctx, ev)

	default:
		return fmt.Errorf("unexpected subject %q", subject)
	}
}

// Stop closes the NATS connection.
func (c *Consumer) Stop() error {
	log.Info().Msg("stopping relay consumer")
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}

// Connected reports whether the NATS connection is up.
func (c *Consumer) Connected() bool {
	return c.nc != nil && c.nc.IsConnected()
}
