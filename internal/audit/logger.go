package audit

import (
	"log/slog"
	"sync"
	"time"
)

// LoggerConfig configures the audit logger.
type LoggerConfig struct {
	// Store, if non-nil, persists every event.
	Store *Store

	// Redactor, if non-nil, is applied to Detail and Metadata values
	// before the event leaves this process boundary.
	Redactor *Redactor

	// OnEvent, if non-nil, is called for every event (used in tests).
	OnEvent func(Event)

	// Slog, if non-nil, mirrors events to the structured log at debug
	// level.
	Slog *slog.Logger

	// Now overrides time.Now for testing. Defaults to time.Now.
	Now func() time.Time
}

// Logger records audit events with redaction, persistence, and live
// fan-out to subscribers.
type Logger struct {
	store    *Store
	redactor *Redactor
	onEvent  func(Event)
	slogger  *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewLogger creates an audit logger with the given configuration.
func NewLogger(cfg LoggerConfig) *Logger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Logger{
		store:    cfg.Store,
		redactor: cfg.Redactor,
		onEvent:  cfg.OnEvent,
		slogger:  cfg.Slog,
		now:      now,
		subs:     make(map[chan Event]struct{}),
	}
}

// Log records an audit event. The timestamp is set automatically. The
// caller's Metadata map is never mutated. A slow subscriber drops
// events rather than blocking the caller.
func (l *Logger) Log(event Event) {
	event.Timestamp = l.now()

	if len(event.Metadata) > 0 {
		cp := make(map[string]string, len(event.Metadata))
		for k, v := range event.Metadata {
			cp[k] = v
		}
		event.Metadata = cp
	}

	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
		for k, v := range event.Metadata {
			event.Metadata[k] = l.redactor.Redact(v)
		}
	}

	if l.slogger != nil {
		l.slogger.Debug("audit event", "type", event.Type, "tool", event.ToolName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onEvent != nil {
		l.onEvent(event)
	}
	if l.store != nil {
		if err := l.store.Insert(event); err != nil && l.slogger != nil {
			l.slogger.Error("audit persist failed", "error", err)
		}
	}
	for ch := range l.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving future events plus a cancel
// function. The channel is buffered; events are dropped when the
// subscriber falls behind.
func (l *Logger) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subs[ch]; ok {
			delete(l.subs, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}
