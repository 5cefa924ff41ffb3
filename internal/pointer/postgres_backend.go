package pointer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pipetrace/internal/network"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS graph_pointers (
    dataset TEXT NOT NULL,
    direction TEXT NOT NULL,
    location TEXT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    PRIMARY KEY (dataset, direction)
);
`)
	})
	return s.schemaErr
}

func (s *Store) getPostgres(ctx context.Context, dataset string, direction network.Direction) (string, bool) {
	if err := s.ensureSchema(); err != nil {
		return "", false
	}
	var location string
	err := s.db.QueryRowContext(ctx,
		`SELECT location FROM graph_pointers WHERE dataset=$1 AND direction=$2`,
		dataset, direction.String()).Scan(&location)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		return "", false
	}
	return location, location != ""
}

func (s *Store) setPostgres(ctx context.Context, dataset string, direction network.Direction, location string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO graph_pointers (dataset, direction, location, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (dataset, direction)
DO UPDATE SET location=EXCLUDED.location, updated_at=EXCLUDED.updated_at
`, dataset, direction.String(), location, time.Now())
	return err
}
