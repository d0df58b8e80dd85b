package database

import (
	"fmt"
	"time"
)

// RecordRefill stores one recovery sequence run
func (db *DB) RecordRefill(r *Refill) (int64, error) {
	if r.OccurredAt.IsZero() {
		r.OccurredAt = time.Now()
	}

	result, err := db.conn.Exec(`
		INSERT INTO refills (session_id, trigger_type, success, duration_ms, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, r.SessionID, r.Trigger, r.Success, r.DurationMs, r.OccurredAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert refill: %w", err)
	}

	r.ID, err = result.LastInsertId()
	return r.ID, err
}

// GetRefillStats aggregates every refill by trigger
func (db *DB) GetRefillStats() ([]*RefillStats, error) {
	rows, err := db.conn.Query(`
		SELECT
			trigger_type,
			COUNT(*),
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
			AVG(duration_ms)
		FROM refills
		GROUP BY trigger_type
		ORDER BY trigger_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []*RefillStats{}
	for rows.Next() {
		s := &RefillStats{}
		if err := rows.Scan(&s.Trigger, &s.Total, &s.Succeeded, &s.AvgDurationMs); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
