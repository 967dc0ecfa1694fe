package operations

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(2)
	sink.Report("one", SeverityInfo)
	sink.Report("two", SeverityWarn)
	sink.Report("dropped", SeverityError)
	sink.Close()
	sink.Report("after close", SeverityInfo)

	var got []ProgressEvent
	for e := range sink.Events() {
		got = append(got, e)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].Message)
	assert.Equal(t, SeverityWarn, got[1].Severity)
	assert.False(t, got[0].Time.IsZero())
	assert.Equal(t, 1, sink.Dropped())

	// closing twice is harmless
	sink.Close()
}

func TestMultiSink(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	MultiSink{a, nil, b}.Report("hello", SeverityWarn)

	assert.Equal(t, []string{"hello"}, a.messages())
	assert.Equal(t, SeverityWarn, b.severityOf("hello"))
}

func TestSinkFunc(t *testing.T) {
	var got string
	SinkFunc(func(m string, s Severity) { got = string(s) + ":" + m }).Report("x", SeverityError)
	assert.Equal(t, "error:x", got)

	NopSink{}.Report("ignored", SeverityInfo)
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(context.Background(), logger)

	sink.Report("Working on in/rec.txt", SeverityInfo)
	sink.Report("Empty windows: 3", SeverityWarn)
	sink.Report("Exception: boom", SeverityError)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	wantLevels := []string{"INFO", "WARN", "ERROR"}
	for i, line := range lines {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, wantLevels[i], entry["level"])
		assert.Equal(t, "progress", entry["source"])
	}
}

func TestSeverityLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, SeverityInfo.Level())
	assert.Equal(t, slog.LevelWarn, SeverityWarn.Level())
	assert.Equal(t, slog.LevelError, SeverityError.Level())
	assert.Equal(t, slog.LevelInfo, Severity("other").Level())
}
