package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking. This is a single-tier schema: the three cache
// tables the Cache type operates on plus the version marker. The teacher's
// schema.go carried several more schema generations for concerns (symbol
// mappings, ownership, telemetry, docs) that have no SPEC_FULL.md
// counterpart; this keeps only the generation query/view/negative caching
// needs.
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createCacheTablesTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations.
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createCacheTablesTable(tx); err != nil {
			return err
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// getSchemaVersion gets the current schema version.
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version.
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table.
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createCacheTablesTable creates the three cache tiers the Cache type
// operates on: query_cache (keyed by query string + index generation),
// view_cache (longer-lived, keyed by state id alone) and negative_cache
// (short-TTL record of a query that produced NotFoundResult/ErrorResult).
func createCacheTablesTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS query_cache (
			key TEXT PRIMARY KEY,
			value_json TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			state_id TEXT NOT NULL,
			head_commit TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create query_cache table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS view_cache (
			key TEXT PRIMARY KEY,
			value_json TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			state_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create view_cache table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS negative_cache (
			key TEXT PRIMARY KEY,
			error_type TEXT NOT NULL,
			error_message TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			state_id TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create negative_cache table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_query_cache_expires_at ON query_cache(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_query_cache_state_id ON query_cache(state_id)",
		"CREATE INDEX IF NOT EXISTS idx_view_cache_expires_at ON view_cache(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_view_cache_state_id ON view_cache(state_id)",
		"CREATE INDEX IF NOT EXISTS idx_negative_cache_expires_at ON negative_cache(expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_negative_cache_state_id ON negative_cache(state_id)",
		"CREATE INDEX IF NOT EXISTS idx_negative_cache_error_type ON negative_cache(error_type)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create cache index: %w", err)
		}
	}

	return nil
}
