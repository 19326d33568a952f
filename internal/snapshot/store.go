// Package snapshot persists the latest auction snapshot in Postgres so a
// restarted process resumes where the room left off. One row per room,
// overwritten on every save. There is deliberately no history.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/fantadraft/asta/internal/replication"
)

const schema = `
CREATE TABLE IF NOT EXISTS auction_snapshots (
    room       TEXT PRIMARY KEY,
    seq        BIGINT NOT NULL,
    state      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ErrNotFound is returned by Load when the room has no stored snapshot.
var ErrNotFound = errors.New("no snapshot stored for room")

// Store reads and writes the single latest-snapshot row for a room.
type Store struct {
	pool *pgxpool.Pool
	room string
}

// NewStore connects to Postgres and bootstraps the schema.
func NewStore(ctx context.Context, dsn, room string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure snapshot schema: %w", err)
	}
	log.Info().Str("room", room).Msg("snapshot store ready")
	return &Store{pool: pool, room: room}, nil
}

// Save upserts the snapshot. A conditional on seq keeps an out-of-order
// late write from rolling the stored state backwards.
func (s *Store) Save(ctx context.Context, snap replication.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO auction_snapshots (room, seq, state, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (room) DO UPDATE
		SET seq = EXCLUDED.seq, state = EXCLUDED.state, updated_at = now()
		WHERE auction_snapshots.seq <= EXCLUDED.seq`,
		s.room, snap.Seq, data)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot for the room.
func (s *Store) Load(ctx context.Context) (replication.Snapshot, error) {
	var (
		seq       uint64
		data      []byte
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT seq, state, updated_at FROM auction_snapshots WHERE room = $1`,
		s.room).Scan(&seq, &data, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return replication.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return replication.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	snap := replication.Snapshot{Seq: seq, ServerTime: updatedAt}
	if err := json.Unmarshal(data, &snap.State); err != nil {
		return replication.Snapshot{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return snap, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
