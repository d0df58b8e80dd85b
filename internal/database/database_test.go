package database

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AbyssalKaz/Console101Farm/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetLogger(logging.NewLogger("Database").SetOutputs(io.Discard))

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	db := openTestDB(t)

	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}

	if _, err := os.Stat(db.Path()); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	// Running again is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to re-run migrations: %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	for _, table := range []string{"sessions", "actions", "refills", "error_log"} {
		if count, ok := stats[table]; !ok || count != 0 {
			t.Errorf("stats[%s] = %d, %v; want 0, true", table, count, ok)
		}
	}
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)

	if err := db.Rollback(2); err != nil {
		t.Fatalf("Failed to roll back: %v", err)
	}
	version, err := db.GetVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != 2 {
		t.Errorf("Expected version 2, got %d", version)
	}

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to migrate forward again: %v", err)
	}
	if version, _ := db.GetVersion(); version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)

	id, err := db.StartSession("advanced")
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	if err := db.UpdateSessionCounters(id, 10, 3); err != nil {
		t.Fatalf("Failed to update counters: %v", err)
	}
	s, err := db.GetSession(id)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if s.Status != SessionRunning || s.Cycles != 10 || s.Casts != 3 || s.EndedAt != nil {
		t.Errorf("Running session = %+v", s)
	}

	if err := db.EndSession(id, 12, 4, ""); err != nil {
		t.Fatalf("Failed to end session: %v", err)
	}
	s, err = db.GetSession(id)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if s.Status != SessionCompleted || s.Cycles != 12 || s.Casts != 4 {
		t.Errorf("Completed session = %+v", s)
	}
	if s.EndedAt == nil || s.DurationSeconds == nil {
		t.Error("Completed session should have end time and duration")
	}
	if s.ErrorMessage != nil {
		t.Errorf("ErrorMessage = %q, want nil", *s.ErrorMessage)
	}

	failed, err := db.StartSession("simple")
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	if err := db.EndSession(failed, 1, 0, "engine loop panic"); err != nil {
		t.Fatalf("Failed to end session: %v", err)
	}
	s, _ = db.GetSession(failed)
	if s.Status != SessionFailed || s.ErrorMessage == nil || *s.ErrorMessage != "engine loop panic" {
		t.Errorf("Failed session = %+v", s)
	}

	recent, err := db.GetRecentSessions(10)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != failed {
		t.Errorf("Recent sessions = %d, first id %d; want 2, %d", len(recent), recent[0].ID, failed)
	}

	if err := db.EndSession(9999, 0, 0, ""); err == nil {
		t.Error("Expected error ending unknown session")
	}
}

func TestCloseStaleSessions(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.StartSession("simple"); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	closed, err := db.CloseStaleSessions()
	if err != nil {
		t.Fatalf("Failed to close stale sessions: %v", err)
	}
	if closed != 1 {
		t.Errorf("Closed %d sessions, want 1", closed)
	}
}

func TestActionsAndSummary(t *testing.T) {
	db := openTestDB(t)

	id, err := db.StartSession("advanced")
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	actions := []*Action{
		{SessionID: &id, Kind: ActionCast, CardName: "tempest", CardType: "spell", Confidence: 0.91, X: 100, Y: 500, Success: true},
		{SessionID: &id, Kind: ActionEnchant, CardName: "colossal", CardType: "enchant", Target: "tempest", Success: true},
		{SessionID: &id, Kind: ActionEnchant, CardName: "colossal", CardType: "enchant", Success: false},
		{SessionID: &id, Kind: ActionPrompt, X: 640, Y: 410, Success: true},
		{SessionID: &id, Kind: ActionCast, CardName: "tempest_enchanted", CardType: "enchanted_spell", Success: true},
	}
	for _, a := range actions {
		if _, err := db.RecordAction(a); err != nil {
			t.Fatalf("Failed to record action: %v", err)
		}
	}

	stored, err := db.GetSessionActions(id)
	if err != nil {
		t.Fatalf("Failed to get actions: %v", err)
	}
	if len(stored) != len(actions) {
		t.Fatalf("Stored %d actions, want %d", len(stored), len(actions))
	}
	if stored[1].Target != "tempest" || stored[0].Confidence != 0.91 || stored[3].X != 640 {
		t.Errorf("Stored actions differ: %+v %+v %+v", stored[0], stored[1], stored[3])
	}

	counts, err := db.CountCastsByCard()
	if err != nil {
		t.Fatalf("Failed to count casts: %v", err)
	}
	if counts["tempest"] != 1 || counts["tempest_enchanted"] != 1 {
		t.Errorf("Cast counts = %v", counts)
	}

	if _, err := db.RecordAction(&Action{Kind: "dance"}); err == nil {
		t.Error("Expected error for unknown action kind")
	}

	for _, r := range []*Refill{
		{SessionID: &id, Trigger: "zero", Success: true, DurationMs: 60000},
		{SessionID: &id, Trigger: "idle", Success: false, DurationMs: 1000},
	} {
		if _, err := db.RecordRefill(r); err != nil {
			t.Fatalf("Failed to record refill: %v", err)
		}
	}
	detail := "stack"
	if _, err := db.LogError(&id, "engine", "detector failed", &detail); err != nil {
		t.Fatalf("Failed to log error: %v", err)
	}

	summary, err := db.GetSessionSummary(id)
	if err != nil {
		t.Fatalf("Failed to get summary: %v", err)
	}
	if summary.Enchants != 1 || summary.Prompts != 1 || summary.Refills != 2 || summary.RefillsSucceeded != 1 || summary.Errors != 1 {
		t.Errorf("Summary = %+v", summary)
	}
}

func TestRefillStats(t *testing.T) {
	db := openTestDB(t)

	for _, r := range []*Refill{
		{Trigger: "zero", Success: true, DurationMs: 100},
		{Trigger: "zero", Success: false, DurationMs: 300},
		{Trigger: "manual", Success: true, DurationMs: 50},
	} {
		if _, err := db.RecordRefill(r); err != nil {
			t.Fatalf("Failed to record refill: %v", err)
		}
	}
	if _, err := db.RecordRefill(&Refill{Trigger: "bored"}); err == nil {
		t.Error("Expected error for unknown trigger")
	}

	stats, err := db.GetRefillStats()
	if err != nil {
		t.Fatalf("Failed to get refill stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Got %d trigger groups, want 2", len(stats))
	}
	manual, zero := stats[0], stats[1]
	if manual.Trigger != "manual" || manual.Total != 1 || manual.Succeeded != 1 {
		t.Errorf("manual stats = %+v", manual)
	}
	if zero.Trigger != "zero" || zero.Total != 2 || zero.Succeeded != 1 || zero.AvgDurationMs != 200 {
		t.Errorf("zero stats = %+v", zero)
	}
}

func TestErrorLog(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.LogError(nil, "vision", "capture failed", nil); err != nil {
		t.Fatalf("Failed to log error: %v", err)
	}
	if _, err := db.LogError(nil, "controller", "device lost", nil); err != nil {
		t.Fatalf("Failed to log error: %v", err)
	}

	errs, err := db.GetRecentErrors(10)
	if err != nil {
		t.Fatalf("Failed to get errors: %v", err)
	}
	if len(errs) != 2 || errs[0].Source != "controller" || errs[0].SessionID != nil {
		t.Errorf("Recent errors = %+v", errs)
	}

	purged, err := db.PurgeErrorsBefore(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Failed to purge: %v", err)
	}
	if purged != 2 {
		t.Errorf("Purged %d, want 2", purged)
	}
}
