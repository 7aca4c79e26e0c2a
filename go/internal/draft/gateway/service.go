package gateway

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/draftroom/go/internal/draft/relay"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/rs/zerolog/log"
)

// Service is the draft gateway: websocket connections plus, optionally, a relay consumer
// delivering changes and events published by other instances.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	consumer          *relay.Consumer
}

// Config holds configuration for the draft gateway service. A nil Relay runs the gateway
// standalone.
type Config struct {
	ConnectionConfig ConnectionConfig
	Relay            *relay.Config
}

// DefaultConfig returns default configuration for the draft gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates the gateway. When a relay is configured, relayed record changes are
// published into changes (the local hub) and relayed events are broadcast to rooms.
func NewService(ctx context.Context, config Config, sessions SessionFactory, changes recordstore.ChangeSink) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig, sessions)

	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
	}

	if config.Relay != nil {
		consumer, err := relay.NewConsumer(ctx, *config.Relay, changes, cm, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create relay consumer: %w", err)
		}
		s.consumer = consumer
	}
	return s, nil
}

// Start runs the gateway until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("relay", s.consumer != nil).Msg("starting draft gateway service")

	go s.connectionManager.Start(ctx)

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("relay consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("draft gateway service shutting down")
	return s.Stop()
}

// Stop shuts down the relay consumer. Connections close when the Start context ends.
func (s *Service) Stop() error {
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop relay consumer")
		}
	}
	log.Info().Msg("draft gateway service stopped")
	return nil
}

// Manager exposes the connection manager, which is also the local events.Emitter.
func (s *Service) Manager() *ConnectionManager {
	return s.connectionManager
}

// RegisterRoutes registers the websocket routes
func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	log.Info().Msg("draft gateway routes registered")
}
