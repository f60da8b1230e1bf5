package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStorage keeps the session keys in the session_storage table,
// partitioned by profile.
type PostgresStorage struct {
	db      *sql.DB
	profile string
}

var _ Storage = (*PostgresStorage)(nil)

// NewPostgresStorage creates a storage bound to one profile
func NewPostgresStorage(db *sql.DB, profile string) *PostgresStorage {
	return &PostgresStorage{db: db, profile: profile}
}

func (p *PostgresStorage) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM session_storage WHERE profile = $1 AND key = $2`

	var value string
	err := p.db.QueryRowContext(ctx, query, p.profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresStorage) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO session_storage (profile, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := p.db.ExecContext(ctx, query, p.profile, key, value); err != nil {
		return fmt.Errorf("failed to write session key %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStorage) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM session_storage WHERE profile = $1 AND key = $2`

	if _, err := p.db.ExecContext(ctx, query, p.profile, key); err != nil {
		return fmt.Errorf("failed to remove session key %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStorage) Clear(ctx context.Context) error {
	query := `DELETE FROM session_storage WHERE profile = $1`

	if _, err := p.db.ExecContext(ctx, query, p.profile); err != nil {
		return fmt.Errorf("failed to clear session storage: %w", err)
	}
	return nil
}
