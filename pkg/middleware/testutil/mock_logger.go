// Package testutil holds test doubles shared by middleware and handler tests.
package testutil

import (
	"context"
	"sync"

	"github.com/nimburion/taskboard/pkg/middleware"
	"github.com/nimburion/taskboard/pkg/observability/logger"
)

// MockLogger captures log entries for assertions. Child loggers created with
// With or WithContext record into the root logger's Logs.
type MockLogger struct {
	mu     sync.Mutex
	Logs   []LogEntry
	root   *MockLogger
	fields map[string]interface{}
}

// LogEntry represents a single log entry captured by MockLogger.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

// Debug records a debug-level entry.
func (m *MockLogger) Debug(msg string, args ...any) { m.record("debug", msg, args) }

// Info records an info-level entry.
func (m *MockLogger) Info(msg string, args ...any) { m.record("info", msg, args) }

// Warn records a warn-level entry.
func (m *MockLogger) Warn(msg string, args ...any) { m.record("warn", msg, args) }

// Error records an error-level entry.
func (m *MockLogger) Error(msg string, args ...any) { m.record("error", msg, args) }

// With returns a child whose entries carry the given fields.
func (m *MockLogger) With(args ...any) logger.Logger {
	fields := make(map[string]interface{}, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}
	for k, v := range argsToMap(args) {
		fields[k] = v
	}
	return &MockLogger{root: m.base(), fields: fields}
}

// WithContext adds request_id and user_id when ctx carries them.
func (m *MockLogger) WithContext(ctx context.Context) logger.Logger {
	if fields := middleware.LogFields(ctx); len(fields) > 0 {
		return m.With(fields...)
	}
	return m
}

// Entries returns a snapshot of everything recorded so far.
func (m *MockLogger) Entries() []LogEntry {
	root := m.base()
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]LogEntry, len(root.Logs))
	copy(out, root.Logs)
	return out
}

// Find returns the first entry with the given message.
func (m *MockLogger) Find(msg string) (LogEntry, bool) {
	for _, entry := range m.Entries() {
		if entry.Msg == msg {
			return entry, true
		}
	}
	return LogEntry{}, false
}

func (m *MockLogger) base() *MockLogger {
	if m.root != nil {
		return m.root
	}
	return m
}

func (m *MockLogger) record(level, msg string, args []any) {
	fields := argsToMap(args)
	for k, v := range m.fields {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}

	root := m.base()
	root.mu.Lock()
	root.Logs = append(root.Logs, LogEntry{Level: level, Msg: msg, Fields: fields})
	root.mu.Unlock()
}

func argsToMap(args []any) map[string]interface{} {
	fields := make(map[string]interface{})
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
