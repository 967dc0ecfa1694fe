package dataprocessing

import (
	"fmt"
	"math"
	"strings"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

// TrimMode selects how a resampled series is cut
type TrimMode int

const (
	// TrimIdentity keeps the whole series
	TrimIdentity TrimMode = iota
	// TrimHeadTail drops X seconds from the start and Y seconds from the end
	TrimHeadTail
	// TrimHeadWindow drops X seconds from the start and keeps the next Y seconds
	TrimHeadWindow
)

func (m TrimMode) String() string {
	switch m {
	case TrimIdentity:
		return "none"
	case TrimHeadTail:
		return "head-tail"
	case TrimHeadWindow:
		return "head-window"
	default:
		return fmt.Sprintf("TrimMode(%d)", int(m))
	}
}

// ParseTrimMode accepts the mode names and the numeric cut codes 0, 1 and 2.
func ParseTrimMode(s string) (TrimMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "identity", "0":
		return TrimIdentity, nil
	case "head-tail", "headtail", "1":
		return TrimHeadTail, nil
	case "head-window", "headwindow", "2":
		return TrimHeadWindow, nil
	default:
		return TrimIdentity, apperrors.NewAppValidationError(fmt.Sprintf("unknown trim mode %q", s))
	}
}

// TrimPolicy is a pure range-selection value applied after resampling
type TrimPolicy struct {
	Mode TrimMode
	X    float64
	Y    float64
}

// NewTrimPolicy validates the offsets and builds a policy
func NewTrimPolicy(mode TrimMode, x, y float64) (TrimPolicy, error) {
	p := TrimPolicy{Mode: mode, X: x, Y: y}
	return p, p.Validate()
}

// Validate checks that the mode is known and both offsets are non-negative
func (p TrimPolicy) Validate() error {
	if p.Mode < TrimIdentity || p.Mode > TrimHeadWindow {
		return apperrors.NewAppValidationError(fmt.Sprintf("unknown trim mode %d", int(p.Mode)))
	}
	if !(p.X >= 0) || !(p.Y >= 0) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return apperrors.NewAppValidationError(
			fmt.Sprintf("trim offsets must be non-negative, got x=%v y=%v", p.X, p.Y))
	}
	return nil
}

// Bounds returns the inclusive time range the policy keeps for a series
// spanning [first, last].
func (p TrimPolicy) Bounds(first, last float64) (lo, hi float64) {
	switch p.Mode {
	case TrimHeadTail:
		return p.X + first, last - p.Y
	case TrimHeadWindow:
		return p.X + first, p.X + first + p.Y
	default:
		return first, last
	}
}

// Trim applies policy to series. It never fails: a range that excludes every
// point yields an empty series. Diagnostic counters are carried over.
func Trim(series *domain.ResampledSeries, policy TrimPolicy) *domain.ResampledSeries {
	if policy.Mode == TrimIdentity && series != nil {
		return series
	}

	out := &domain.ResampledSeries{}
	if series == nil {
		return out
	}
	out.EmptyWindows = series.EmptyWindows
	out.SkippedTime = series.SkippedTime

	first, last, ok := series.Span()
	if !ok {
		return out
	}

	lo, hi := policy.Bounds(first, last)
	for i, t := range series.Time {
		if t >= lo && t <= hi {
			out.Time = append(out.Time, t)
			out.Signal = append(out.Signal, series.Signal[i])
		}
	}
	return out
}
