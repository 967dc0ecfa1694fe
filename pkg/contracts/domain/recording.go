package domain

import "fmt"

// Sample is one two-channel center-of-pressure reading (X, Y in cm).
type Sample = [2]float64

// Recording is the raw (time, signal) pair parsed from one balance-board file.
// Time is in seconds and keeps the input order; it is not required to be sorted.
type Recording struct {
	Time   []float64 `json:"time"`
	Signal []Sample  `json:"signal"`
}

// Len returns the number of samples in the recording
func (r *Recording) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Time)
}

// ResampledSeries is a uniformly sampled statokinesigram produced by the resampler.
type ResampledSeries struct {
	Time   []float64 `json:"time"`
	Signal []Sample  `json:"signal"`

	// EmptyWindows counts grid points where no input sample fell inside the window.
	EmptyWindows int `json:"empty_windows"`
	// SkippedTime is the grid coverage, in seconds, dropped because of empty windows.
	SkippedTime float64 `json:"skipped_time"`
}

// Len returns the number of points in the series
func (s *ResampledSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}

// Span returns the first and last timestamps. ok is false for an empty series.
func (s *ResampledSeries) Span() (first, last float64, ok bool) {
	if s.Len() == 0 {
		return 0, 0, false
	}
	return s.Time[0], s.Time[len(s.Time)-1], true
}

// Underflow returns the window underflow notice for the series, if any.
func (s *ResampledSeries) Underflow() (WindowUnderflowNotice, bool) {
	n := WindowUnderflowNotice{EmptyWindows: s.EmptyWindows, SkippedTime: s.SkippedTime}
	return n, s.EmptyWindows > 0 || s.SkippedTime > 0
}

// WindowUnderflowNotice reports resampling windows that had no samples.
// It is a diagnostic, never an error.
type WindowUnderflowNotice struct {
	EmptyWindows int     `json:"empty_windows"`
	SkippedTime  float64 `json:"skipped_time"`
}

func (n WindowUnderflowNotice) String() string {
	return fmt.Sprintf("%d empty windows, %gs skipped", n.EmptyWindows, n.SkippedTime)
}

// RecordingStats summarises the raw sampling of a recording
type RecordingStats struct {
	Samples  int     `json:"samples"`
	Duration float64 `json:"duration"`
	MaxDelta float64 `json:"max_delta"`
}
