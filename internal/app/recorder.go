package app

import (
	"fmt"
	"sync"

	"github.com/AbyssalKaz/Console101Farm/internal/database"
	"github.com/AbyssalKaz/Console101Farm/internal/events"
	"github.com/AbyssalKaz/Console101Farm/internal/logging"
)

// Recorder writes engine events into the history store. Each engine run
// becomes one session; actions, refills and errors are attached to it.
type Recorder struct {
	db     *database.DB
	bus    events.EventBus
	logger *logging.Logger

	mu       sync.Mutex
	session  *int64
	casts    int
	counters func() (cycles, casts int)
	subID    events.SubscriptionID
}

// NewRecorder subscribes a recorder to every event on bus
func NewRecorder(db *database.DB, bus events.EventBus, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewLogger("Recorder")
	}
	r := &Recorder{db: db, bus: bus, logger: logger}
	r.subID = bus.SubscribeAll(r.handleEvent)
	return r
}

// SessionID returns the open session, if any
func (r *Recorder) SessionID() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return 0, false
	}
	return *r.session, true
}

// SetCounters supplies live counters, written to the open session after each cast
func (r *Recorder) SetCounters(fn func() (cycles, casts int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = fn
}

func (r *Recorder) handleEvent(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	switch ev.Type {
	case events.EventTypeEngineStarted:
		err = r.startSession(stringField(ev, "mode"))
	case events.EventTypeEngineStopped:
		err = r.endSession(intField(ev, "cycles"), intField(ev, "casts"), stringField(ev, "reason"))
	case events.EventTypeCardCast:
		r.casts++
		_, err = r.db.RecordAction(&database.Action{
			SessionID:  r.session,
			Kind:       database.ActionCast,
			CardName:   stringField(ev, "card"),
			CardType:   stringField(ev, "card_type"),
			Confidence: floatField(ev, "confidence"),
			X:          intField(ev, "x"),
			Y:          intField(ev, "y"),
			Success:    true,
			OccurredAt: ev.Timestamp,
		})
		if err == nil && r.session != nil && r.counters != nil {
			cycles, casts := r.counters()
			err = r.db.UpdateSessionCounters(*r.session, cycles, casts)
		}
	case events.EventTypeEnchantCast:
		_, err = r.db.RecordAction(&database.Action{
			SessionID:  r.session,
			Kind:       database.ActionEnchant,
			CardName:   stringField(ev, "enchant"),
			CardType:   "enchant",
			Target:     stringField(ev, "spell"),
			Success:    boolField(ev, "success"),
			OccurredAt: ev.Timestamp,
		})
	case events.EventTypePromptHandled:
		_, err = r.db.RecordAction(&database.Action{
			SessionID:  r.session,
			Kind:       database.ActionPrompt,
			X:          intField(ev, "x"),
			Y:          intField(ev, "y"),
			Success:    true,
			OccurredAt: ev.Timestamp,
		})
	case events.EventTypeRefillCompleted:
		_, err = r.db.RecordRefill(&database.Refill{
			SessionID:  r.session,
			Trigger:    stringField(ev, "trigger"),
			Success:    boolField(ev, "success"),
			DurationMs: int64(intField(ev, "duration_ms")),
			OccurredAt: ev.Timestamp,
		})
	case events.EventTypeError:
		var detail *string
		if d := stringField(ev, "error"); d != "" {
			detail = &d
		}
		_, err = r.db.LogError(r.session, ev.Source, stringField(ev, "message"), detail)
	}

	if err != nil {
		r.logger.ErrorWithContext("Failed to record event", err, map[string]interface{}{
			"event": string(ev.Type),
		})
	}
}

func (r *Recorder) startSession(mode string) error {
	if r.session != nil {
		// A start without a stop means the stop event was lost
		if err := r.db.EndSession(*r.session, 0, r.casts, ""); err != nil {
			r.logger.Warn(fmt.Sprintf("Failed to close previous session: %v", err))
		}
	}
	id, err := r.db.StartSession(mode)
	if err != nil {
		r.session = nil
		return err
	}
	r.session = &id
	r.casts = 0
	return nil
}

func (r *Recorder) endSession(cycles, casts int, reason string) error {
	if r.session == nil {
		return nil
	}
	id := *r.session
	r.session = nil
	return r.db.EndSession(id, cycles, casts, reason)
}

// Close unsubscribes and closes any open session as completed
func (r *Recorder) Close() {
	r.bus.Unsubscribe(r.subID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		if err := r.endSession(0, r.casts, ""); err != nil {
			r.logger.Error("Failed to close session", err)
		}
	}
}

func stringField(ev events.Event, key string) string {
	s, _ := ev.Data[key].(string)
	return s
}

func boolField(ev events.Event, key string) bool {
	b, _ := ev.Data[key].(bool)
	return b
}

// intField accepts the numeric forms an event may carry
func intField(ev events.Event, key string) int {
	switch v := ev.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(ev events.Event, key string) float64 {
	switch v := ev.Data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
