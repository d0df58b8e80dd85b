package events

import (
	"fmt"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	// Engine lifecycle
	EventTypeEngineStarted      EventType = "engine.started"
	EventTypeEngineStopped      EventType = "engine.stopped"
	EventTypeEngineStateChanged EventType = "engine.state_changed"
	EventTypeMovementToggled    EventType = "engine.movement_toggled"

	// Engine actions
	EventTypeCardCast      EventType = "action.cast"
	EventTypeEnchantCast   EventType = "action.enchant"
	EventTypePromptHandled EventType = "action.prompt"

	// Resource recovery
	EventTypeRefillStarted   EventType = "refill.started"
	EventTypeRefillCompleted EventType = "refill.completed"

	// Virtual controller
	EventTypeControllerConnected    EventType = "controller.connected"
	EventTypeControllerDisconnected EventType = "controller.disconnected"

	// Free-form log line from the engine's log hook
	EventTypeLog EventType = "log"

	// Error events
	EventTypeError EventType = "error"
)

// Event represents a system event with metadata
type Event struct {
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"` // component that emitted the event
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// SubscribeAll registers a handler for every event type
	SubscribeAll(handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish sends an event to all subscribers (blocking until queued)
	Publish(event Event)

	// PublishAsync sends an event asynchronously (non-blocking)
	PublishAsync(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

func newEvent(t EventType, source string, data map[string]interface{}) Event {
	return Event{
		Type:      t,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewEngineStartedEvent creates an engine started event
func NewEngineStartedEvent(mode string) Event {
	return newEvent(EventTypeEngineStarted, "engine", map[string]interface{}{
		"mode": mode,
	})
}

// NewEngineStoppedEvent creates an engine stopped event. reason is empty on a normal stop.
func NewEngineStoppedEvent(cycles, casts int, reason string) Event {
	return newEvent(EventTypeEngineStopped, "engine", map[string]interface{}{
		"cycles": cycles,
		"casts":  casts,
		"reason": reason,
	})
}

// NewStateChangedEvent creates an engine state change event
func NewStateChangedEvent(from, to string) Event {
	return newEvent(EventTypeEngineStateChanged, "engine", map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

// NewMovementToggledEvent creates a movement toggle event
func NewMovementToggledEvent(enabled bool) Event {
	return newEvent(EventTypeMovementToggled, "engine", map[string]interface{}{
		"enabled": enabled,
	})
}

// NewCardCastEvent creates an event for a card cast at (x, y)
func NewCardCastEvent(card, cardType string, confidence float64, x, y int) Event {
	return newEvent(EventTypeCardCast, "engine", map[string]interface{}{
		"card":       card,
		"card_type":  cardType,
		"confidence": confidence,
		"x":          x,
		"y":          y,
	})
}

// NewEnchantCastEvent creates an event for an enchant applied to a spell.
// spell is empty when the spell was lost after the enchant click.
func NewEnchantCastEvent(enchant, spell string, success bool) Event {
	return newEvent(EventTypeEnchantCast, "engine", map[string]interface{}{
		"enchant": enchant,
		"spell":   spell,
		"success": success,
	})
}

// NewPromptHandledEvent creates an event for a dismissed idle prompt
func NewPromptHandledEvent(x, y int) Event {
	return newEvent(EventTypePromptHandled, "engine", map[string]interface{}{
		"x": x,
		"y": y,
	})
}

// NewRefillStartedEvent creates a refill started event. trigger is zero, idle or manual.
func NewRefillStartedEvent(trigger string) Event {
	return newEvent(EventTypeRefillStarted, "engine", map[string]interface{}{
		"trigger": trigger,
	})
}

// NewRefillCompletedEvent creates a refill completed event
func NewRefillCompletedEvent(trigger string, success bool, duration time.Duration) Event {
	return newEvent(EventTypeRefillCompleted, "engine", map[string]interface{}{
		"trigger":     trigger,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
	})
}

// NewControllerEvent creates a connected or disconnected event
func NewControllerEvent(connected bool) Event {
	t := EventTypeControllerDisconnected
	if connected {
		t = EventTypeControllerConnected
	}
	return newEvent(t, "controller", map[string]interface{}{
		"connected": connected,
	})
}

// NewLogEvent wraps a log line
func NewLogEvent(source, line string) Event {
	return newEvent(EventTypeLog, source, map[string]interface{}{
		"line": line,
	})
}

// NewErrorEvent creates an error event
func NewErrorEvent(source, message string, err error) Event {
	data := map[string]interface{}{
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return newEvent(EventTypeError, source, data)
}

// String returns a compact description for logs
func (e Event) String() string {
	return fmt.Sprintf("%s from %s", e.Type, e.Source)
}
