package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oldominion/indexer/internal/model"
)

// Store provides Postgres persistence for token events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertEvents inserts or updates token events keyed by their derived id.
// Re-ingesting the same logical event (page overlap, replayed batch)
// recomputes the same id, so duplicates collapse into an update here
// instead of producing a second row.
func (s *Store) UpsertEvents(ctx context.Context, events []model.TokenEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload for event %s: %w", event.ID, err)
		}
		batch.Queue(`
			INSERT INTO token_events (
				id, type, opid, timestamp, level, payload, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (id)
			DO UPDATE SET
				type = EXCLUDED.type,
				opid = EXCLUDED.opid,
				timestamp = EXCLUDED.timestamp,
				level = EXCLUDED.level,
				payload = EXCLUDED.payload,
				updated_at = now()
		`,
			event.ID,
			event.Type,
			event.OpID,
			event.Timestamp,
			event.Level,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
