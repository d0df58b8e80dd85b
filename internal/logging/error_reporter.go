package logging

import (
	"fmt"
	"sync"
	"time"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	ErrorCategoryEngine     ErrorCategory = "engine"
	ErrorCategoryVision     ErrorCategory = "vision"
	ErrorCategoryController ErrorCategory = "controller"
	ErrorCategorySequence   ErrorCategory = "sequence"
	ErrorCategoryDatabase   ErrorCategory = "database"
	ErrorCategoryConfig     ErrorCategory = "config"
	ErrorCategorySystem     ErrorCategory = "system"
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityCritical ErrorSeverity = "critical"
)

// ErrorReport represents a detailed error report
type ErrorReport struct {
	Timestamp   time.Time              `json:"timestamp"`
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Component   string                 `json:"component"`
	Message     string                 `json:"message"`
	Error       string                 `json:"error,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Recoverable bool                   `json:"recoverable"`
}

// ErrorCallback is called when an error is reported
type ErrorCallback func(report *ErrorReport)

// ErrorReporter keeps a bounded history of reported errors and logs each one
type ErrorReporter struct {
	logger     *Logger
	maxHistory int

	historyMu sync.RWMutex
	history   []*ErrorReport

	callbacksMu sync.RWMutex
	callbacks   map[ErrorSeverity][]ErrorCallback
}

// NewErrorReporter creates a reporter keeping the last maxHistory errors
func NewErrorReporter(logger *Logger, maxHistory int) *ErrorReporter {
	if logger == nil {
		logger = NewLogger("ErrorReporter")
	}
	if maxHistory <= 0 {
		maxHistory = 200
	}
	return &ErrorReporter{
		logger:     logger,
		maxHistory: maxHistory,
		callbacks:  make(map[ErrorSeverity][]ErrorCallback),
	}
}

// Report records and logs a report, then runs its severity's callbacks
func (er *ErrorReporter) Report(report *ErrorReport) {
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now()
	}

	er.logError(report)

	er.historyMu.Lock()
	er.history = append(er.history, report)
	if len(er.history) > er.maxHistory {
		er.history = er.history[len(er.history)-er.maxHistory:]
	}
	er.historyMu.Unlock()

	er.callbacksMu.RLock()
	callbacks := er.callbacks[report.Severity]
	er.callbacksMu.RUnlock()
	for _, callback := range callbacks {
		callback(report)
	}
}

// ReportError reports a recoverable error
func (er *ErrorReporter) ReportError(category ErrorCategory, severity ErrorSeverity, component, message string, err error) {
	er.Report(&ErrorReport{
		Category:    category,
		Severity:    severity,
		Component:   component,
		Message:     message,
		Error:       errString(err),
		Recoverable: true,
	})
}

// ReportCriticalError reports an error that stopped a component
func (er *ErrorReporter) ReportCriticalError(category ErrorCategory, component, message string, err error, context map[string]interface{}) {
	er.Report(&ErrorReport{
		Category:    category,
		Severity:    ErrorSeverityCritical,
		Component:   component,
		Message:     message,
		Error:       errString(err),
		Context:     context,
		Recoverable: false,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (er *ErrorReporter) logError(report *ErrorReport) {
	context := map[string]interface{}{
		"category":    string(report.Category),
		"severity":    string(report.Severity),
		"component":   report.Component,
		"recoverable": report.Recoverable,
	}
	for k, v := range report.Context {
		context[k] = v
	}

	var err error
	if report.Error != "" {
		err = fmt.Errorf("%s", report.Error)
	}

	switch report.Severity {
	case ErrorSeverityCritical, ErrorSeverityHigh:
		er.logger.ErrorWithContext(report.Message, err, context)
	case ErrorSeverityMedium:
		er.logger.WarnWithContext(report.Message, context)
	default:
		er.logger.InfoWithContext(report.Message, context)
	}
}

// OnError registers a callback for a severity. Callbacks run synchronously.
func (er *ErrorReporter) OnError(severity ErrorSeverity, callback ErrorCallback) {
	er.callbacksMu.Lock()
	defer er.callbacksMu.Unlock()
	er.callbacks[severity] = append(er.callbacks[severity], callback)
}

// GetRecentErrors returns up to n most recent errors, oldest first
func (er *ErrorReporter) GetRecentErrors(n int) []*ErrorReport {
	er.historyMu.RLock()
	defer er.historyMu.RUnlock()

	if n > len(er.history) || n < 0 {
		n = len(er.history)
	}
	result := make([]*ErrorReport, n)
	copy(result, er.history[len(er.history)-n:])
	return result
}

// GetErrorStats counts errors per severity and category
func (er *ErrorReporter) GetErrorStats() map[string]int {
	er.historyMu.RLock()
	defer er.historyMu.RUnlock()

	stats := map[string]int{"total": len(er.history)}
	for _, report := range er.history {
		stats["severity_"+string(report.Severity)]++
		stats["category_"+string(report.Category)]++
		if report.Recoverable {
			stats["recoverable"]++
		} else {
			stats["non_recoverable"]++
		}
	}
	return stats
}

// Clear clears the error history
func (er *ErrorReporter) Clear() {
	er.historyMu.Lock()
	defer er.historyMu.Unlock()
	er.history = nil
}
