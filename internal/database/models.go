package database

import (
	"time"
)

// Session statuses
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

// Action kinds
const (
	ActionCast    = "cast"
	ActionEnchant = "enchant"
	ActionPrompt  = "prompt"
)

// Session is one run of the engine from start to stop
type Session struct {
	ID              int64      `db:"id" json:"id"`
	Mode            string     `db:"mode" json:"mode"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at"`
	DurationSeconds *int       `db:"duration_seconds" json:"duration_seconds"`
	Cycles          int        `db:"cycles" json:"cycles"`
	Casts           int        `db:"casts" json:"casts"`
	Status          string     `db:"status" json:"status"`
	ErrorMessage    *string    `db:"error_message" json:"error_message"`
}

// Action is one cast, enchant or dismissed prompt
type Action struct {
	ID         int64     `db:"id"`
	SessionID  *int64    `db:"session_id"`
	Kind       string    `db:"kind"`
	CardName   string    `db:"card_name"`
	CardType   string    `db:"card_type"`
	Target     string    `db:"target"`
	Confidence float64   `db:"confidence"`
	X          int       `db:"x"`
	Y          int       `db:"y"`
	Success    bool      `db:"success"`
	OccurredAt time.Time `db:"occurred_at"`
}

// Refill is one run of the recovery sequence
type Refill struct {
	ID         int64     `db:"id"`
	SessionID  *int64    `db:"session_id"`
	Trigger    string    `db:"trigger_type"`
	Success    bool      `db:"success"`
	DurationMs int64     `db:"duration_ms"`
	OccurredAt time.Time `db:"occurred_at"`
}

// ErrorLog is a reported error
type ErrorLog struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  *int64    `db:"session_id" json:"session_id"`
	Source     string    `db:"source" json:"source"`
	Message    string    `db:"message" json:"message"`
	Detail     *string   `db:"detail" json:"detail"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

// SessionSummary is a row of v_session_summary
type SessionSummary struct {
	SessionID        int64     `db:"session_id"`
	Mode             string    `db:"mode"`
	StartedAt        time.Time `db:"started_at"`
	Status           string    `db:"status"`
	Cycles           int       `db:"cycles"`
	Casts            int       `db:"casts"`
	Enchants         int       `db:"enchants"`
	Prompts          int       `db:"prompts"`
	Refills          int       `db:"refills"`
	RefillsSucceeded int       `db:"refills_succeeded"`
	Errors           int       `db:"errors"`
}

// RefillStats aggregates refills by trigger
type RefillStats struct {
	Trigger       string
	Total         int
	Succeeded     int
	AvgDurationMs float64
}
