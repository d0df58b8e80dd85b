package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create schema_version table",
		Up:          migration001Up,
		Down:        migration001Down,
	},
	{
		Version:     2,
		Description: "Create sessions table",
		Up:          migration002Up,
		Down:        migration002Down,
	},
	{
		Version:     3,
		Description: "Create actions and refills tables",
		Up:          migration003Up,
		Down:        migration003Down,
	},
	{
		Version:     4,
		Description: "Create error_log table",
		Up:          migration004Up,
		Down:        migration004Down,
	},
	{
		Version:     5,
		Description: "Create session summary view",
		Up:          migration005Up,
		Down:        migration005Down,
	},
}

// LatestVersion is the schema version after all migrations
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations() error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	db.logger.Debug(fmt.Sprintf("Current database version: %d", currentVersion))

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		db.logger.Info(fmt.Sprintf("Running migration %d: %s", migration.Version, migration.Description))

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, migration.Version, migration.Description, time.Now())

			return err
		})

		if err != nil {
			return err
		}
	}

	return nil
}

// Rollback reverts migrations above target, newest first
func (db *DB) Rollback(target int) error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version > currentVersion || migration.Version <= target {
			continue
		}

		db.logger.Info(fmt.Sprintf("Reverting migration %d: %s", migration.Version, migration.Description))

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Down(tx); err != nil {
				return fmt.Errorf("rollback %d failed: %w", migration.Version, err)
			}
			if migration.Version == 1 {
				return nil
			}
			_, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, migration.Version)
			return err
		})

		if err != nil {
			return err
		}
	}

	return nil
}

// getCurrentVersion returns the current schema version
func (db *DB) getCurrentVersion() (int, error) {
	var tableExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)

	if err != nil {
		return 0, err
	}

	if !tableExists {
		return 0, nil
	}

	var version int
	err = db.conn.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_version
	`).Scan(&version)

	if err != nil {
		return 0, err
	}

	return version, nil
}

// Migration 001: Schema version tracking table
func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration001Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS schema_version`)
	return err
}

// Migration 002: Farming sessions, one per engine start
func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mode TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			duration_seconds INTEGER,

			-- Counters
			cycles INTEGER DEFAULT 0,
			casts INTEGER DEFAULT 0,

			status TEXT NOT NULL DEFAULT 'running'
				CHECK(status IN ('running', 'completed', 'failed')),
			error_message TEXT
		);

		CREATE INDEX idx_sessions_started ON sessions(started_at);
		CREATE INDEX idx_sessions_status ON sessions(status);
	`)
	return err
}

func migration002Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS sessions`)
	return err
}

// Migration 003: Actions and refills
func migration003Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER REFERENCES sessions(id) ON DELETE CASCADE,
			kind TEXT NOT NULL CHECK(kind IN ('cast', 'enchant', 'prompt')),

			-- Card details; enchants store the enchant in card_name and the spell in target
			card_name TEXT,
			card_type TEXT,
			target TEXT,
			confidence REAL,
			x INTEGER,
			y INTEGER,

			success BOOLEAN NOT NULL DEFAULT 1,
			occurred_at DATETIME NOT NULL
		);

		CREATE INDEX idx_actions_session ON actions(session_id);
		CREATE INDEX idx_actions_kind ON actions(kind);

		CREATE TABLE refills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER REFERENCES sessions(id) ON DELETE CASCADE,
			trigger_type TEXT NOT NULL CHECK(trigger_type IN ('zero', 'idle', 'manual')),
			success BOOLEAN NOT NULL,
			duration_ms INTEGER NOT NULL,
			occurred_at DATETIME NOT NULL
		);

		CREATE INDEX idx_refills_session ON refills(session_id);
	`)
	return err
}

func migration003Down(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP TABLE IF EXISTS refills;
		DROP TABLE IF EXISTS actions;
	`)
	return err
}

// Migration 004: Error log
func migration004Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE error_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER REFERENCES sessions(id) ON DELETE SET NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL,
			detail TEXT,
			occurred_at DATETIME NOT NULL
		);

		CREATE INDEX idx_error_log_occurred ON error_log(occurred_at);
	`)
	return err
}

func migration004Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS error_log`)
	return err
}

// Migration 005: Per-session summary
func migration005Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIEW v_session_summary AS
		SELECT
			s.id AS session_id,
			s.mode,
			s.started_at,
			s.status,
			s.cycles,
			s.casts,
			(SELECT COUNT(*) FROM actions a WHERE a.session_id = s.id AND a.kind = 'enchant' AND a.success = 1) AS enchants,
			(SELECT COUNT(*) FROM actions a WHERE a.session_id = s.id AND a.kind = 'prompt') AS prompts,
			(SELECT COUNT(*) FROM refills r WHERE r.session_id = s.id) AS refills,
			(SELECT COUNT(*) FROM refills r WHERE r.session_id = s.id AND r.success = 1) AS refills_succeeded,
			(SELECT COUNT(*) FROM error_log e WHERE e.session_id = s.id) AS errors
		FROM sessions s
	`)
	return err
}

func migration005Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP VIEW IF EXISTS v_session_summary`)
	return err
}
