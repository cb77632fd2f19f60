package database

import (
	"context"
	"fmt"
)

// Optimize refreshes planner statistics (PRAGMA optimize on SQLite,
// ANALYZE on PostgreSQL).
func (db *db) Optimize(ctx context.Context) error {
	if db == nil || db.conn == nil {
		return fmt.Errorf("database not initialized")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	stmt := "PRAGMA optimize"
	if db.dialect == DialectPostgres {
		stmt = "ANALYZE"
	}
	if _, err := db.exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}

	return nil
}

// Vacuum rebuilds the database file to reclaim unused space.
func (db *db) Vacuum(ctx context.Context) error {
	if db == nil || db.conn == nil {
		return fmt.Errorf("database not initialized")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.exec(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}
