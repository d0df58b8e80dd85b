package database

import (
	"fmt"
	"time"
)

// Error logging operations

// LogError stores a reported error. sessionID may be nil.
func (db *DB) LogError(sessionID *int64, source, message string, detail *string) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO error_log (session_id, source, message, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, source, message, detail, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to insert error log: %w", err)
	}
	return result.LastInsertId()
}

// GetRecentErrors returns the newest errors first
func (db *DB) GetRecentErrors(limit int) ([]*ErrorLog, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT id, session_id, source, message, detail, occurred_at
		FROM error_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errs := []*ErrorLog{}
	for rows.Next() {
		e := &ErrorLog{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Source, &e.Message, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}

	return errs, rows.Err()
}

// PurgeErrorsBefore deletes errors older than cutoff
func (db *DB) PurgeErrorsBefore(cutoff time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM error_log WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge error log: %w", err)
	}
	return result.RowsAffected()
}
