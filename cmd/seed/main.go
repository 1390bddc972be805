package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/visioncare/clinic-scheduler/internal/clinic"
	"github.com/visioncare/clinic-scheduler/internal/db"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedReferenceData(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("seed reference data")
	}
	if err := seedPatients(context.Background(), pool, 200); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}

	log.Info().Msg("seed complete")
}

// seedReferenceData upserts the fixed rooms and visit reasons. It is safe
// to run against a database the init migration already populated.
func seedReferenceData(ctx context.Context, pool *pgxpool.Pool) error {
	for _, room := range clinic.DefaultRooms() {
		_, err := pool.Exec(ctx, `
			INSERT INTO rooms (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		`, room.ID, room.Name)
		if err != nil {
			return fmt.Errorf("insert room %d: %w", room.ID, err)
		}
	}

	reasons := []struct {
		id          int
		description string
	}{
		{1, "Frame glasses"},
		{2, "Contact lenses"},
		{3, "Vision therapy"},
	}
	for _, reason := range reasons {
		_, err := pool.Exec(ctx, `
			INSERT INTO reasons (id, description) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description
		`, reason.id, reason.description)
		if err != nil {
			return fmt.Errorf("insert reason %d: %w", reason.id, err)
		}
	}

	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	for i := 0; i < count; i++ {
		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, given_name, family_name, age, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (phone) DO NOTHING
		`,
			uuid.New(),
			gofakeit.FirstName(),
			gofakeit.LastName(),
			gofakeit.Number(6, 90),
			gofakeit.Phone(),
		)
		if err != nil {
			return fmt.Errorf("insert patient: %w", err)
		}
	}
	return nil
}
