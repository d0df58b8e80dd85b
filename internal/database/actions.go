package database

import (
	"fmt"
	"time"
)

// RecordAction stores a cast, enchant or prompt. A zero OccurredAt is set to now.
func (db *DB) RecordAction(a *Action) (int64, error) {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now()
	}

	result, err := db.conn.Exec(`
		INSERT INTO actions (
			session_id, kind, card_name, card_type, target,
			confidence, x, y, success, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.SessionID, a.Kind, a.CardName, a.CardType, a.Target,
		a.Confidence, a.X, a.Y, a.Success, a.OccurredAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert action: %w", err)
	}

	a.ID, err = result.LastInsertId()
	return a.ID, err
}

// GetSessionActions returns a session's actions in order
func (db *DB) GetSessionActions(sessionID int64) ([]*Action, error) {
	rows, err := db.conn.Query(`
		SELECT
			id, session_id, kind,
			COALESCE(card_name, ''), COALESCE(card_type, ''), COALESCE(target, ''),
			COALESCE(confidence, 0), COALESCE(x, 0), COALESCE(y, 0),
			success, occurred_at
		FROM actions
		WHERE session_id = ?
		ORDER BY occurred_at, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []*Action{}
	for rows.Next() {
		a := &Action{}
		err := rows.Scan(
			&a.ID, &a.SessionID, &a.Kind,
			&a.CardName, &a.CardType, &a.Target,
			&a.Confidence, &a.X, &a.Y,
			&a.Success, &a.OccurredAt,
		)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// CountCastsByCard returns successful casts per card name across all sessions
func (db *DB) CountCastsByCard() (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT card_name, COUNT(*)
		FROM actions
		WHERE kind = 'cast' AND success = 1
		GROUP BY card_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		counts[name] = count
	}

	return counts, rows.Err()
}
