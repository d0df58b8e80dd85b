package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Session operations

// StartSession records an engine start and returns the session ID
func (db *DB) StartSession(mode string) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO sessions (mode, started_at, status)
		VALUES (?, ?, 'running')
	`, mode, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	return result.LastInsertId()
}

// UpdateSessionCounters stores the latest cycle and cast counts
func (db *DB) UpdateSessionCounters(sessionID int64, cycles, casts int) error {
	_, err := db.conn.Exec(`
		UPDATE sessions SET cycles = ?, casts = ? WHERE id = ?
	`, cycles, casts, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session %d: %w", sessionID, err)
	}
	return nil
}

// EndSession closes a session. A non-empty reason marks it failed.
func (db *DB) EndSession(sessionID int64, cycles, casts int, reason string) error {
	status := SessionCompleted
	var errorMessage *string
	if reason != "" {
		status = SessionFailed
		errorMessage = &reason
	}

	return db.ExecTx(func(tx *sql.Tx) error {
		endedAt := time.Now()

		var startedAt time.Time
		err := tx.QueryRow(`SELECT started_at FROM sessions WHERE id = ?`, sessionID).Scan(&startedAt)
		if err != nil {
			return fmt.Errorf("failed to get session start time: %w", err)
		}

		duration := int(endedAt.Sub(startedAt).Seconds())

		_, err = tx.Exec(`
			UPDATE sessions
			SET ended_at = ?,
				duration_seconds = ?,
				cycles = ?,
				casts = ?,
				status = ?,
				error_message = ?
			WHERE id = ?
		`, endedAt, duration, cycles, casts, status, errorMessage, sessionID)

		return err
	})
}

// CloseStaleSessions marks sessions left running by a crash as failed
func (db *DB) CloseStaleSessions() (int64, error) {
	result, err := db.conn.Exec(`
		UPDATE sessions
		SET status = 'failed',
			ended_at = ?,
			error_message = 'session was not closed'
		WHERE status = 'running'
	`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to close stale sessions: %w", err)
	}
	return result.RowsAffected()
}

const sessionColumns = `
	id, mode, started_at, ended_at, duration_seconds,
	cycles, casts, status, error_message`

func scanSession(row interface{ Scan(...interface{}) error }) (*Session, error) {
	s := &Session{}
	err := row.Scan(
		&s.ID, &s.Mode, &s.StartedAt, &s.EndedAt, &s.DurationSeconds,
		&s.Cycles, &s.Casts, &s.Status, &s.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(sessionID int64) (*Session, error) {
	row := db.conn.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	return scanSession(row)
}

// GetRecentSessions returns the newest sessions first
func (db *DB) GetRecentSessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetSessionSummary reads one row of the summary view
func (db *DB) GetSessionSummary(sessionID int64) (*SessionSummary, error) {
	s := &SessionSummary{}
	err := db.conn.QueryRow(`
		SELECT
			session_id, mode, started_at, status, cycles, casts,
			enchants, prompts, refills, refills_succeeded, errors
		FROM v_session_summary
		WHERE session_id = ?
	`, sessionID).Scan(
		&s.SessionID, &s.Mode, &s.StartedAt, &s.Status, &s.Cycles, &s.Casts,
		&s.Enchants, &s.Prompts, &s.Refills, &s.RefillsSucceeded, &s.Errors,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
