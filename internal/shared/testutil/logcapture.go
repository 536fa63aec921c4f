// Package testutil holds helpers shared by tests across packages: a slog
// handler that captures records and fixtures for company statement trees.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log call with its attributes flattened.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogCapture records every log call, including those made through loggers
// derived with With.
type LogCapture struct {
	store *logStore
	attrs []slog.Attr
	group string
	t     testing.TB
}

// NewLogger returns a debug-level logger backed by a LogCapture. Records
// are echoed to t.Log so failing tests show them.
func NewLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	capture := &LogCapture{store: &logStore{}, t: t}
	return slog.New(capture), capture
}

// Enabled implements slog.Handler
func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler
func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if c.group != "" {
			key = c.group + "." + key
		}
		attrs[key] = a.Value.Any()
		return true
	})

	c.store.mu.Lock()
	c.store.records = append(c.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	c.store.mu.Unlock()

	if c.t != nil {
		c.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = append(append([]slog.Attr(nil), c.attrs...), attrs...)
	return &next
}

// WithGroup implements slog.Handler
func (c *LogCapture) WithGroup(name string) slog.Handler {
	next := *c
	if next.group != "" {
		name = next.group + "." + name
	}
	next.group = name
	return &next
}

// Records returns a copy of everything captured so far.
func (c *LogCapture) Records() []LogRecord {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return append([]LogRecord(nil), c.store.records...)
}

// Find returns the first record at level whose message contains substr.
func (c *LogCapture) Find(level slog.Level, substr string) (LogRecord, bool) {
	for _, r := range c.Records() {
		if r.Level == level && strings.Contains(r.Message, substr) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// Count returns the number of records at level.
func (c *LogCapture) Count(level slog.Level) int {
	n := 0
	for _, r := range c.Records() {
		if r.Level == level {
			n++
		}
	}
	return n
}

// AssertLogged fails t unless a record at level contains substr.
func AssertLogged(t testing.TB, c *LogCapture, level slog.Level, substr string) LogRecord {
	t.Helper()
	r, ok := c.Find(level, substr)
	if !ok {
		t.Errorf("no %s log containing %q; captured %d records", level, substr, len(c.Records()))
	}
	return r
}
