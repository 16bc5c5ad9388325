package fakes

import (
	"context"
	"sync"

	"github.com/booklend/library-services-go/observability"
)

// LogRecord is one captured logging call.
type LogRecord struct {
	Level   string
	Message string
	Args    []any
}

// LoggerSpy captures contextual logging calls for assertions.
type LoggerSpy struct {
	mu      sync.Mutex
	records []LogRecord
}

// NewLoggerSpy creates an empty logger spy.
func NewLoggerSpy() *LoggerSpy {
	return &LoggerSpy{}
}

// DebugContext records a debug call.
func (s *LoggerSpy) DebugContext(_ context.Context, msg string, args ...any) {
	s.record("debug", msg, args)
}

// InfoContext records an info call.
func (s *LoggerSpy) InfoContext(_ context.Context, msg string, args ...any) {
	s.record("info", msg, args)
}

// WarnContext records a warn call.
func (s *LoggerSpy) WarnContext(_ context.Context, msg string, args ...any) {
	s.record("warn", msg, args)
}

// ErrorContext records an error call.
func (s *LoggerSpy) ErrorContext(_ context.Context, msg string, args ...any) {
	s.record("error", msg, args)
}

// Records returns a copy of all captured calls.
func (s *LoggerSpy) Records() []LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]LogRecord, len(s.records))
	copy(records, s.records)

	return records
}

// MessagesAt returns the messages captured at the given level.
func (s *LoggerSpy) MessagesAt(level string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []string

	for _, record := range s.records {
		if record.Level == level {
			messages = append(messages, record.Message)
		}
	}

	return messages
}

func (s *LoggerSpy) record(level string, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, LogRecord{Level: level, Message: msg, Args: args})
}

var _ observability.ContextualLogger = (*LoggerSpy)(nil)
