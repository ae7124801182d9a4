package style

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProfileStore persists style profiles in PostgreSQL.
type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileStore(ctx context.Context, databaseURL string) (*PostgresProfileStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresProfileStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS style_profiles (
		user_id TEXT PRIMARY KEY,
		visual DOUBLE PRECISION NOT NULL DEFAULT 0,
		auditory DOUBLE PRECISION NOT NULL DEFAULT 0,
		kinesthetic DOUBLE PRECISION NOT NULL DEFAULT 0,
		reading DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema failed: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) Get(ctx context.Context, userID string) (Profile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT visual, auditory, kinesthetic, reading FROM style_profiles WHERE user_id=$1`,
		userID,
	)
	var visual, auditory, kinesthetic, reading float64
	if err := row.Scan(&visual, &auditory, &kinesthetic, &reading); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return Profile{
		Visual:      visual,
		Auditory:    auditory,
		Kinesthetic: kinesthetic,
		Reading:     reading,
	}, nil
}

func (s *PostgresProfileStore) Put(ctx context.Context, userID string, profile Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO style_profiles (user_id, visual, auditory, kinesthetic, reading, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (user_id) DO UPDATE SET
		   visual=EXCLUDED.visual,
		   auditory=EXCLUDED.auditory,
		   kinesthetic=EXCLUDED.kinesthetic,
		   reading=EXCLUDED.reading,
		   updated_at=now()`,
		userID,
		profile[Visual],
		profile[Auditory],
		profile[Kinesthetic],
		profile[Reading],
	)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM style_profiles WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) Close() error {
	s.pool.Close()
	return nil
}
