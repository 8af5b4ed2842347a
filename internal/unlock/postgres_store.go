package unlock

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolInterface defines the database operations needed by PostgresStore.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore persists unlocks in a content_unlocks table:
//
//	CREATE TABLE content_unlocks (
//	    email        TEXT        NOT NULL,
//	    content_type TEXT        NOT NULL,
//	    content_id   TEXT        NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    PRIMARY KEY (email, content_type, content_id)
//	);
//
// The conditional insert makes RecordUnlock idempotent under concurrency,
// which the whole-file JSON index cannot guarantee across processes.
type PostgresStore struct {
	pool PoolInterface
}

// NewPostgresStore creates a PostgresStore with the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPostgresStoreWithPool creates a PostgresStore with a custom pool
// interface. This is primarily used for testing.
func NewPostgresStoreWithPool(pool PoolInterface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RecordUnlock inserts the unlock fact; duplicates are a no-op.
func (s *PostgresStore) RecordUnlock(ctx context.Context, email, contentType, contentID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO content_unlocks (email, content_type, content_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT DO NOTHING`,
		normalizeEmail(email), contentType, contentID)
	if err != nil {
		return fmt.Errorf("insert unlock for %s: %w", contentType, err)
	}
	return nil
}

// IsUnlocked checks for the specific id or the All sentinel.
func (s *PostgresStore) IsUnlocked(ctx context.Context, email, contentType, contentID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM content_unlocks
		WHERE email = $1 AND content_type = $2 AND content_id IN ($3, $4)
	)`

	var unlocked bool
	err := s.pool.QueryRow(ctx, query, normalizeEmail(email), contentType, contentID, All).Scan(&unlocked)
	if err != nil {
		return false, fmt.Errorf("check unlock for %s: %w", contentType, err)
	}
	return unlocked, nil
}

// Unlocks returns the unlocked content ids for an email in insertion order.
// On success, returns an empty slice (not nil) when no unlocks exist.
func (s *PostgresStore) Unlocks(ctx context.Context, email, contentType string) ([]string, error) {
	query := `SELECT content_id FROM content_unlocks
		WHERE email = $1 AND content_type = $2
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, normalizeEmail(email), contentType)
	if err != nil {
		return nil, fmt.Errorf("list unlocks for %s: %w", contentType, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unlock content_id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unlock rows: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
