package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/draftroom/go/internal/assets"
	"github.com/mcdev12/draftroom/go/internal/dbconfig"
)

// seed provisions the demo room with its teams, players and a not-started draft.
func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	// 1) Load the demo snapshot
	demo, err := assets.LoadDemo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load demo: %v\n", err)
		os.Exit(1)
	}
	settings, err := json.Marshal(demo.Room.Settings.WithDefaults())
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal settings: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert everything in one transaction
	var (
		roomID   string
		inserted int
	)
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO rooms (name, settings) VALUES ($1, $2) RETURNING id`,
			demo.Room.Name, settings,
		).Scan(&roomID); err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO draft_status (room_id, status) VALUES ($1, 'not_started')`, roomID,
		); err != nil {
			return fmt.Errorf("insert draft status: %w", err)
		}

		for _, t := range demo.Teams {
			if _, err := tx.Exec(ctx,
				`INSERT INTO teams (room_id, name, budget, logo) VALUES ($1, $2, $3, NULLIF($4, ''))`,
				roomID, t.Name, t.Budget, t.Logo,
			); err != nil {
				return fmt.Errorf("insert team %s: %w", t.Name, err)
			}
			inserted++
		}

		for _, p := range demo.Players {
			if _, err := tx.Exec(ctx, `
                INSERT INTO players (room_id, name, nationality, role, age, base_price, status)
                VALUES ($1, $2, $3, $4, $5, $6, 'Available')
            `,
				roomID, p.Name, p.Nationality, string(p.Role), p.Age, p.BasePrice,
			); err != nil {
				return fmt.Errorf("insert player %s: %w", p.Name, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	// 4) Print summary
	fmt.Printf(
		"Seed complete: room %s with %d teams and %d players (%d rows)\n",
		roomID, len(demo.Teams), len(demo.Players), inserted,
	)
}
