package logging

import (
	"fmt"

	"github.com/AbyssalKaz/Console101Farm/internal/events"
)

// EventLogger subscribes to the event bus and logs every event
type EventLogger struct {
	logger         *Logger
	eventBus       events.EventBus
	subscriptionID events.SubscriptionID
}

// NewEventLogger subscribes logger to every event on eventBus
func NewEventLogger(eventBus events.EventBus, logger *Logger) *EventLogger {
	el := &EventLogger{
		logger:   logger,
		eventBus: eventBus,
	}
	el.subscriptionID = eventBus.SubscribeAll(el.handleEvent)
	return el
}

// handleEvent handles incoming events and logs them
func (el *EventLogger) handleEvent(event events.Event) {
	// The engine's own log lines are already in the log
	if event.Type == events.EventTypeLog {
		return
	}

	context := map[string]interface{}{
		"source": event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	msg := fmt.Sprintf("Event: %s", event.Type)
	if event.Type == events.EventTypeError {
		el.logger.WarnWithContext(msg, context)
		return
	}
	el.logger.InfoWithContext(msg, context)
}

// Close unsubscribes from the bus
func (el *EventLogger) Close() {
	el.eventBus.Unsubscribe(el.subscriptionID)
}
