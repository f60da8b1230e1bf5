package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables used by the persisted session storage
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.WithComponent("database").Debug("Ensuring session storage schema")

	for _, stmt := range []string{createSessionStorageTable} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

const createSessionStorageTable = `
CREATE TABLE IF NOT EXISTS session_storage (
	profile    VARCHAR(128) NOT NULL,
	key        VARCHAR(128) NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (profile, key)
)`
