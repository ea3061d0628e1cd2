package study

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event types.
const (
	EventSessionStarted   = "session_started"
	EventSessionEnded     = "session_ended"
	EventNavigated        = "navigated"
	EventQuestionAnswered = "question_answered"
	EventQuizCompleted    = "quiz_completed"
	EventAutoAdvanced     = "auto_advanced"
)

// Event is a learner activity record.
type Event struct {
	SessionID string
	Owner     string
	EventType string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(event Event) error
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(Event) error {
	return nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// Types returns the event types in the order they were logged.
func (l *MemoryEventLogger) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType
	}
	return out
}

// SlogEventLogger writes events to the structured log.
type SlogEventLogger struct {
	Logger *slog.Logger
}

func (l SlogEventLogger) LogEvent(event Event) error {
	if event.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := make([]any, 0, 6+2*len(event.Data))
	attrs = append(attrs, "type", event.EventType, "session_id", event.SessionID, "owner", event.Owner)
	for k, v := range event.Data {
		attrs = append(attrs, k, v)
	}
	logger.Info("study event", attrs...)
	return nil
}

// MultiEventLogger sends each event to every logger in order.
type MultiEventLogger []EventLogger

func (m MultiEventLogger) LogEvent(event Event) error {
	var errs []error
	for _, l := range m {
		if err := l.LogEvent(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
