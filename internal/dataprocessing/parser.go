package dataprocessing

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

const (
	// headerLines are discarded unconditionally at the start of every recording
	headerLines = 2

	timeField = 0
	xField    = 5
	yField    = 6
	minFields = yField + 1

	msToSeconds = 0.001

	maxLineSize = 1024 * 1024
)

// ParseFile reads a raw balance-board recording from disk.
func ParseFile(filePath string) (*domain.Recording, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open recording", err).
			WithContext("path", filePath)
	}
	defer f.Close()

	rec, err := ParseRecording(f)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			appErr.WithContext("path", filePath)
		}
		return nil, err
	}
	return rec, nil
}

// ParseRecording parses a recording stream. The first two lines are dropped,
// blank lines are skipped and every other line must carry at least seven
// whitespace-separated fields: a millisecond timestamp at index 0 and the X/Y
// channels at indexes 5 and 6. The first malformed line aborts the parse.
func ParseRecording(r io.Reader) (*domain.Recording, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	rec := &domain.Recording{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo <= headerLines {
			continue
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < minFields {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("line %d: expected at least %d fields, got %d", lineNo, minFields, len(fields)), nil).
				WithContext("line", lineNo)
		}

		ms, err := parseField(fields, timeField, "timestamp", lineNo)
		if err != nil {
			return nil, err
		}
		x, err := parseField(fields, xField, "x", lineNo)
		if err != nil {
			return nil, err
		}
		y, err := parseField(fields, yField, "y", lineNo)
		if err != nil {
			return nil, err
		}

		rec.Time = append(rec.Time, msToSeconds*ms)
		rec.Signal = append(rec.Signal, domain.Sample{x, y})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read recording after line %d", lineNo), err)
	}

	return rec, nil
}

func parseField(fields []string, idx int, name string, lineNo int) (float64, error) {
	v, err := strconv.ParseFloat(fields[idx], 64)
	if err != nil {
		return 0, apperrors.NewParsingError(
			fmt.Sprintf("line %d: invalid %s %q", lineNo, name, fields[idx]), err).
			WithContext("line", lineNo).
			WithContext("field", idx)
	}
	return v, nil
}

// Stats summarises the raw sampling of a recording: sample count, covered
// duration and the widest gap between consecutive samples.
func Stats(rec *domain.Recording) domain.RecordingStats {
	stats := domain.RecordingStats{Samples: rec.Len()}
	if stats.Samples == 0 {
		return stats
	}

	stats.Duration = rec.Time[len(rec.Time)-1] - rec.Time[0]
	for i := 1; i < len(rec.Time); i++ {
		if d := rec.Time[i] - rec.Time[i-1]; d > stats.MaxDelta {
			stats.MaxDelta = d
		}
	}
	return stats
}
