package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is a captured log record. Attrs include those bound with
// Logger.With; groups are flattened with dots.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is an slog.Handler that keeps every record in memory
type LogCapture struct {
	store  *captureStore
	attrs  []slog.Attr
	prefix string
}

type captureStore struct {
	mu      sync.Mutex
	records []LogRecord
	t       testing.TB
}

// NewLogCapture returns a logger and the capture behind it. When t is not nil
// every record is also echoed with t.Logf.
func NewLogCapture(t testing.TB) (*slog.Logger, *LogCapture) {
	c := &LogCapture{store: &captureStore{t: t}}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(c.attrs)+r.NumAttrs())
	for _, a := range c.attrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[c.prefix+a.Key] = a.Value.Any()
		return true
	})

	s := c.store
	s.mu.Lock()
	s.records = append(s.records, LogRecord{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: attrs})
	s.mu.Unlock()

	if s.t != nil {
		s.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &LogCapture{store: c.store, prefix: c.prefix}
	next.attrs = append(append(next.attrs, c.attrs...), prefixed(c.prefix, attrs)...)
	return next
}

func (c *LogCapture) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	return &LogCapture{store: c.store, attrs: c.attrs, prefix: c.prefix + name + "."}
}

func prefixed(prefix string, attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return out
}

// Records returns a copy of everything captured so far
func (c *LogCapture) Records() []LogRecord {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return append([]LogRecord(nil), c.store.records...)
}

// Find returns the first record at level whose message contains message
func (c *LogCapture) Find(level slog.Level, message string) (LogRecord, bool) {
	for _, r := range c.Records() {
		if r.Level == level && strings.Contains(r.Message, message) {
			return r, true
		}
	}
	return LogRecord{}, false
}

// AssertLogged fails t unless a record at level contains message. It returns
// the matching record.
func (c *LogCapture) AssertLogged(t testing.TB, level slog.Level, message string) LogRecord {
	t.Helper()
	r, ok := c.Find(level, message)
	if !ok {
		t.Errorf("no %s record containing %q", level, message)
		for _, r := range c.Records() {
			t.Logf("  [%s] %s %v", r.Level, r.Message, r.Attrs)
		}
	}
	return r
}

// AssertNoErrors fails t if any error-level record was captured
func (c *LogCapture) AssertNoErrors(t testing.TB) {
	t.Helper()
	for _, r := range c.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
