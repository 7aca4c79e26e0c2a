package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/assets"
	"github.com/mcdev12/draftroom/go/internal/dbconfig"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/relay"
	"github.com/mcdev12/draftroom/go/internal/draft/selection"
	"github.com/mcdev12/draftroom/go/internal/httpapi"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/mcdev12/draftroom/go/internal/rooms"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Hub       *recordstore.Hub
	Store     recordstore.Store
	Rooms     *rooms.App
	Sessions  *gateway.StoreSessionFactory
	Gateway   *gateway.Service
	API       *httpapi.Handler
	Listener  *recordstore.PGListener // nil unless the store is Postgres and no relay runs
	Publisher *relay.Publisher        // nil unless the relay is enabled
	DB        *sql.DB
}

// setupServices wires the chain
// Store → Coordinator/Broker sessions → gateway and REST API.
// Record changes reach the hub from the local listener, or from the relay consumer when
// the relay is enabled.
func setupServices(ctx context.Context, config *Config) (*Services, error) {
	clock := clockwork.NewRealClock()
	hub := recordstore.NewHub(256)
	s := &Services{Hub: hub}

	claimMode, err := selection.ParseClaimMode(config.Draft.ClaimMode)
	if err != nil {
		return nil, err
	}

	dbConfig := dbconfig.NewConfigFromEnv()
	switch config.Store.Driver {
	case driverPostgres:
		database, err := setupDatabase(ctx, dbConfig, config.Store.Migrate)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Store = recordstore.NewPostgresStore(database, hub)
	case driverMemory:
		memory := recordstore.NewMemoryStore(hub, clock)
		if config.Store.Seed {
			if err := seedMemory(ctx, memory); err != nil {
				return nil, err
			}
		}
		s.Store = memory
	}

	var relayConfig *relay.Config
	if config.Relay.Enabled {
		rc := relay.DefaultConfig()
		if config.Relay.NATSURL != "" {
			rc.URL = config.Relay.NATSURL
		}
		if config.Relay.ConsumerName != "" {
			rc.ConsumerName = config.Relay.ConsumerName
		}
		relayConfig = &rc

		publisher, err := relay.NewPublisher(ctx, rc, nil)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create relay publisher: %w", err)
		}
		s.Publisher = publisher
	} else if s.DB != nil {
		lc := recordstore.DefaultListenerConfig()
		lc.DatabaseURL = dbConfig.DSN()
		lc.ResyncInterval = config.Listener.ResyncInterval
		listener, err := recordstore.NewPGListener(lc, clock, hub)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create record listener: %w", err)
		}
		s.Listener = listener
	}

	s.Sessions = gateway.NewStoreSessionFactory(s.Store, claimMode, clock, nil)

	gwConfig := gateway.DefaultConfig()
	gwConfig.ConnectionConfig.Clock = clock
	gwConfig.Relay = relayConfig
	gw, err := gateway.NewService(ctx, gwConfig, s.Sessions, hub)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Gateway = gw

	// Events go to JetStream when relayed, so every instance broadcasts them once.
	if s.Publisher != nil {
		s.Sessions.SetEmitter(s.Publisher)
	} else {
		s.Sessions.SetEmitter(gw.Manager())
	}

	s.Rooms = rooms.NewApp(s.Store)
	s.API = httpapi.NewHandler(s.Rooms, s.Sessions)

	log.Info().
		Str("store", config.Store.Driver).
		Str("claim_mode", string(claimMode)).
		Bool("relay", config.Relay.Enabled).
		Msg("services ready")
	return s, nil
}

func (s *Services) Close() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close relay publisher")
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
	s.Hub.Close()
}

// seedMemory loads the demo room into an in-memory store.
func seedMemory(ctx context.Context, store *recordstore.MemoryStore) error {
	demo, err := assets.LoadDemo()
	if err != nil {
		return err
	}
	room, err := store.CreateRoom(ctx, recordstore.CreateRoomRequest{
		Name:     demo.Room.Name,
		Settings: demo.Room.Settings,
	})
	if err != nil {
		return fmt.Errorf("failed to create demo room: %w", err)
	}
	for _, t := range demo.Teams {
		store.PutTeam(t.Team(&room.ID))
	}
	for _, p := range demo.Players {
		store.PutPlayer(p.Player(&room.ID))
	}
	log.Info().Str("room_id", room.ID.String()).Msg("seeded demo room")
	return nil
}
