package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/go/internal/dbconfig"
	"github.com/mcdev12/draftroom/go/internal/draft/gateway"
	"github.com/mcdev12/draftroom/go/internal/draft/relay"
	"github.com/mcdev12/draftroom/go/internal/draft/selection"
	"github.com/mcdev12/draftroom/go/internal/recordstore"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// A websocket-only gateway instance. It reads and writes Postgres directly and learns about
// changes made elsewhere from the relay stream, so it needs the relay worker running.
func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Get configuration
	port := getEnv("GATEWAY_PORT", "8082")
	claimMode, err := selection.ParseClaimMode(os.Getenv("CLAIM_MODE"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid claim mode")
	}
	relayCfg := relay.DefaultConfig()
	relayCfg.URL = getEnv("NATS_URL", relayCfg.URL)
	hostname, _ := os.Hostname()
	relayCfg.ConsumerName = getEnv("GATEWAY_ID", "draftroom-gateway-"+hostname)

	// Database configuration
	dbCfg := dbconfig.NewConfigFromEnv()

	// Connect to database
	db, err := sql.Open("pgx", dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", relayCfg.URL).
		Str("consumer", relayCfg.ConsumerName).
		Str("port", port).
		Msg("starting draft gateway")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	hub := recordstore.NewHub(256)
	defer hub.Close()
	store := recordstore.NewPostgresStore(db, hub)

	publisher, err := relay.NewPublisher(ctx, relayCfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create relay publisher")
	}
	defer publisher.Close()

	sessions := gateway.NewStoreSessionFactory(store, claimMode, clock, publisher)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConnectionConfig.Clock = clock
	gatewayConfig.Relay = &relayCfg
	gatewayService, err := gateway.NewService(ctx, gatewayConfig, sessions, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	// Setup HTTP server
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	gatewayService.RegisterRoutes(r)

	r.Get("/health", relay.NewHealthChecker(db, publisher, nil).ServeHTTP)

	// Add service info
	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		stats := gatewayService.Manager().GetConnectionStats()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"service":     "draftroom-gateway",
			"consumer":    relayCfg.ConsumerName,
			"connections": stats.TotalConnections,
			"rooms":       stats.ActiveRooms,
		}); err != nil {
			log.Debug().Err(err).Msg("failed to write info")
		}
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start gateway service (relay consumer and connection manager)
	g.Go(func() error {
		return gatewayService.Start(gctx)
	})

	// Start HTTP server
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("draft gateway failed")
		os.Exit(1)
	}
	log.Info().Msg("draft gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
