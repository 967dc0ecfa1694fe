package dataprocessing

import (
	"fmt"
	"math"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

// SWARII resamples an irregularly sampled recording onto a uniform grid using
// Sliding Windows Weighted Averaged Interpolation (Audiffren & Contal, 2016).
//
// Each grid point is the time-weighted average of the samples whose distance to
// it is strictly below half the window. Grid points with no such sample are not
// interpolated: they are dropped and counted on the returned series.
type SWARII struct {
	windowSize       float64
	desiredFrequency float64
}

// NewSWARII creates a resampler. Both parameters must be positive and finite.
func NewSWARII(windowSize, desiredFrequency float64) (*SWARII, error) {
	if !(windowSize > 0) || math.IsInf(windowSize, 0) {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("window size must be positive, got %v", windowSize))
	}
	if !(desiredFrequency > 0) || math.IsInf(desiredFrequency, 0) {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("desired frequency must be positive, got %v", desiredFrequency))
	}
	return &SWARII{windowSize: windowSize, desiredFrequency: desiredFrequency}, nil
}

// WindowSize returns the sliding window width in seconds
func (s *SWARII) WindowSize() float64 { return s.windowSize }

// DesiredFrequency returns the output sample rate in Hz
func (s *SWARII) DesiredFrequency() float64 { return s.desiredFrequency }

// Resample runs SWARII over rec. The grid starts at max(0, time[0]) and
// advances by 1/F while it stays below the last timestamp, so a recording with
// a single sample yields an empty series. A recording without samples is a
// validation error.
func (s *SWARII) Resample(rec *domain.Recording) (*domain.ResampledSeries, error) {
	n := rec.Len()
	if n == 0 {
		return nil, apperrors.NewAppValidationError("recording has no samples")
	}
	if len(rec.Signal) != n {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("recording has %d timestamps but %d samples", n, len(rec.Signal)))
	}

	r := resampling{
		time:   rec.Time,
		signal: rec.Signal,
		half:   s.windowSize * 0.5,
		out:    &domain.ResampledSeries{},
	}
	step := 1. / s.desiredFrequency
	last := rec.Time[n-1]
	sorted := nonDecreasing(rec.Time)

	lo := 0
	for current := math.Max(0., rec.Time[0]); current < last; current += step {
		var window []int
		if sorted {
			lo, window = r.slidingWindow(lo, current)
		} else {
			window = r.scanWindow(current)
		}

		if len(window) == 0 {
			r.out.EmptyWindows++
			r.out.SkippedTime += step
			continue
		}

		r.out.Time = append(r.out.Time, current)
		r.out.Signal = append(r.out.Signal, r.average(window, current))
	}

	return r.out, nil
}

type resampling struct {
	time   []float64
	signal []domain.Sample
	half   float64
	out    *domain.ResampledSeries
	buf    []int
}

func (r *resampling) inWindow(t int, current float64) bool {
	return math.Abs(r.time[t]-current) < r.half
}

// scanWindow collects every index inside the window, in position order.
func (r *resampling) scanWindow(current float64) []int {
	r.buf = r.buf[:0]
	for t := range r.time {
		if r.inWindow(t, current) {
			r.buf = append(r.buf, t)
		}
	}
	return r.buf
}

// slidingWindow is scanWindow for non-decreasing timestamps. Samples that fell
// behind the window can never re-enter it because the grid only moves forward,
// so lo only advances and the window is the contiguous run starting at lo.
func (r *resampling) slidingWindow(lo int, current float64) (int, []int) {
	for lo < len(r.time) && r.time[lo] < current && !r.inWindow(lo, current) {
		lo++
	}

	r.buf = r.buf[:0]
	for t := lo; t < len(r.time) && r.inWindow(t, current); t++ {
		r.buf = append(r.buf, t)
	}
	return lo, r.buf
}

// average returns the trapezoid-weighted mean of the window samples. The outer
// borders are clamped to the window and to the recording span; inner borders
// sit halfway between neighbouring samples.
func (r *resampling) average(window []int, current float64) domain.Sample {
	if len(window) == 1 {
		return r.signal[window[0]]
	}

	first, last := r.time[0], r.time[len(r.time)-1]
	var value domain.Sample
	weight := 0.
	for i, t := range window {
		var left, right float64
		if i == 0 || t == 0 {
			left = math.Max(first, current-r.half)
		} else {
			left = 0.5 * (r.time[t] + r.time[t-1])
		}
		if i == len(window)-1 || t == len(r.time)-1 {
			right = math.Min(last, current+r.half)
		} else {
			right = 0.5 * (r.time[t+1] + r.time[t])
		}

		w := right - left
		value[0] += r.signal[t][0] * w
		value[1] += r.signal[t][1] * w
		weight += w
	}

	value[0] /= weight
	value[1] /= weight
	return value
}

// nonDecreasing reports whether ts is sorted. Any NaN makes it false so the
// full scan handles such recordings.
func nonDecreasing(ts []float64) bool {
	for i := 1; i < len(ts); i++ {
		if !(ts[i] >= ts[i-1]) {
			return false
		}
	}
	return len(ts) == 0 || !math.IsNaN(ts[0])
}
