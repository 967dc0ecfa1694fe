package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a progress message
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// ProgressEvent is one line of run progress
type ProgressEvent struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Time     time.Time `json:"time"`
}

// ProgressSink receives human-readable progress messages from a pipeline run.
// Report is called synchronously from the run's goroutine and must not block
// for long.
type ProgressSink interface {
	Report(message string, severity Severity)
}

// NopSink discards every message
type NopSink struct{}

func (NopSink) Report(string, Severity) {}

// SinkFunc adapts a function to ProgressSink
type SinkFunc func(message string, severity Severity)

func (f SinkFunc) Report(message string, severity Severity) { f(message, severity) }

// MultiSink fans a message out to several sinks in order
type MultiSink []ProgressSink

func (m MultiSink) Report(message string, severity Severity) {
	for _, s := range m {
		if s != nil {
			s.Report(message, severity)
		}
	}
}

// ChannelSink forwards events to a buffered channel. When the buffer is full
// the event is dropped rather than stalling the run; Dropped reports how many.
type ChannelSink struct {
	events  chan ProgressEvent
	mu      sync.Mutex
	dropped int
	closed  bool
}

// NewChannelSink creates a sink with the given buffer size
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan ProgressEvent, buffer)}
}

// Events returns the receive side of the sink
func (c *ChannelSink) Events() <-chan ProgressEvent {
	return c.events
}

func (c *ChannelSink) Report(message string, severity Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ProgressEvent{Message: message, Severity: severity, Time: time.Now()}:
	default:
		c.dropped++
	}
}

// Close closes the channel. Later reports are ignored.
func (c *ChannelSink) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// Dropped returns the number of events lost to a full buffer
func (c *ChannelSink) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// SlogSink writes progress messages as structured log records
type SlogSink struct {
	logger *slog.Logger
	ctx    context.Context
}

// NewSlogSink creates a sink logging through logger. ctx is passed to the
// handler so trace and run ids are attached.
func NewSlogSink(ctx context.Context, logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &SlogSink{logger: logger, ctx: ctx}
}

func (s *SlogSink) Report(message string, severity Severity) {
	s.logger.Log(s.ctx, severity.Level(), message, slog.String("source", "progress"))
}

// Level maps a severity onto a slog level
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityWarn:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
