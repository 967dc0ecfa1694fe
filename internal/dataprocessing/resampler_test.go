package dataprocessing

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

// referenceResample is the direct O(N·M) formulation: every window is found by
// scanning the whole recording.
func referenceResample(rec *domain.Recording, windowSize, freq float64) *domain.ResampledSeries {
	out := &domain.ResampledSeries{}
	time := rec.Time
	half := windowSize * 0.5
	last := time[len(time)-1]

	for current := math.Max(0., time[0]); current < last; current += 1. / freq {
		var relevant []int
		for t := range time {
			if math.Abs(time[t]-current) < half {
				relevant = append(relevant, t)
			}
		}

		switch {
		case len(relevant) == 0:
			out.EmptyWindows++
			out.SkippedTime += 1. / freq
			continue
		case len(relevant) == 1:
			out.Time = append(out.Time, current)
			out.Signal = append(out.Signal, rec.Signal[relevant[0]])
			continue
		}

		var value domain.Sample
		weight := 0.
		for i, t := range relevant {
			left := 0.5 * (time[t] + time[max(t-1, 0)])
			if i == 0 || t == 0 {
				left = math.Max(time[0], current-half)
			}
			right := 0.
			if i == len(relevant)-1 || t == len(time)-1 {
				right = math.Min(last, current+half)
			} else {
				right = 0.5 * (time[t+1] + time[t])
			}
			w := right - left
			value[0] += rec.Signal[t][0] * w
			value[1] += rec.Signal[t][1] * w
			weight += w
		}
		value[0] /= weight
		value[1] /= weight
		out.Time = append(out.Time, current)
		out.Signal = append(out.Signal, value)
	}
	return out
}

// irregularRecording builds a strictly increasing recording with jittered
// sampling intervals around 10 ms.
func irregularRecording(seed int64, n int, start float64) *domain.Recording {
	rng := rand.New(rand.NewSource(seed))
	rec := &domain.Recording{}
	t := start
	for i := 0; i < n; i++ {
		rec.Time = append(rec.Time, t)
		rec.Signal = append(rec.Signal, domain.Sample{rng.NormFloat64() * 3, rng.NormFloat64() * 5})
		t += 0.002 + rng.Float64()*0.02
	}
	return rec
}

func mustSWARII(t *testing.T, windowSize, freq float64) *SWARII {
	t.Helper()
	s, err := NewSWARII(windowSize, freq)
	require.NoError(t, err)
	return s
}

func TestNewSWARII_Validation(t *testing.T) {
	tests := []struct {
		name       string
		windowSize float64
		freq       float64
		wantErr    bool
	}{
		{name: "defaults", windowSize: 1, freq: 25},
		{name: "fractional window", windowSize: 0.25, freq: 100},
		{name: "zero window", windowSize: 0, freq: 25, wantErr: true},
		{name: "negative window", windowSize: -1, freq: 25, wantErr: true},
		{name: "zero frequency", windowSize: 1, freq: 0, wantErr: true},
		{name: "negative frequency", windowSize: 1, freq: -25, wantErr: true},
		{name: "NaN window", windowSize: math.NaN(), freq: 25, wantErr: true},
		{name: "infinite frequency", windowSize: 1, freq: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSWARII(tt.windowSize, tt.freq)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.windowSize, s.WindowSize())
			assert.Equal(t, tt.freq, s.DesiredFrequency())
		})
	}
}

func TestResample_ConcreteScenario(t *testing.T) {
	rec, err := ParseRecording(strings.NewReader(sampleRecording))
	require.NoError(t, err)

	series, err := mustSWARII(t, 1, 25).Resample(rec)
	require.NoError(t, err)

	require.Equal(t, 1, series.Len())
	assert.Equal(t, 0.0, series.Time[0])
	// weights 0.005, 0.01, 0.005
	assert.InDelta(t, 1.1, series.Signal[0][0], 1e-12)
	assert.InDelta(t, 2.1, series.Signal[0][1], 1e-12)
	assert.Zero(t, series.EmptyWindows)
	assert.Zero(t, series.SkippedTime)
}

func TestResample_Degenerate(t *testing.T) {
	s := mustSWARII(t, 1, 25)

	t.Run("no samples", func(t *testing.T) {
		_, err := s.Resample(&domain.Recording{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("nil recording", func(t *testing.T) {
		_, err := s.Resample(nil)
		require.Error(t, err)
	})

	t.Run("mismatched arrays", func(t *testing.T) {
		_, err := s.Resample(&domain.Recording{Time: []float64{0, 1}, Signal: []domain.Sample{{0, 0}}})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("single sample", func(t *testing.T) {
		series, err := s.Resample(&domain.Recording{Time: []float64{0.5}, Signal: []domain.Sample{{1, 2}}})
		require.NoError(t, err)
		assert.Zero(t, series.Len())
		assert.Zero(t, series.EmptyWindows)
	})

	t.Run("last timestamp not after the grid start", func(t *testing.T) {
		series, err := s.Resample(&domain.Recording{
			Time:   []float64{-2, -1},
			Signal: []domain.Sample{{1, 1}, {2, 2}},
		})
		require.NoError(t, err)
		assert.Zero(t, series.Len())
	})
}

func TestResample_ConstantSignal(t *testing.T) {
	for _, windowSize := range []float64{0.05, 0.2, 1, 3} {
		rec := irregularRecording(7, 400, 0.013)
		for i := range rec.Signal {
			rec.Signal[i] = domain.Sample{3.5, -4.25}
		}

		series, err := mustSWARII(t, windowSize, 25).Resample(rec)
		require.NoError(t, err)
		require.NotZero(t, series.Len(), "window %v", windowSize)

		for i, v := range series.Signal {
			assert.InDelta(t, 3.5, v[0], 1e-9, "window %v point %d", windowSize, i)
			assert.InDelta(t, -4.25, v[1], 1e-9, "window %v point %d", windowSize, i)
		}
	}
}

func TestResample_Grid(t *testing.T) {
	rec := irregularRecording(11, 300, 0.3)
	series, err := mustSWARII(t, 1, 25).Resample(rec)
	require.NoError(t, err)
	require.Greater(t, series.Len(), 2)

	assert.Equal(t, 0.3, series.Time[0], "grid starts at the first timestamp when positive")
	for i := 1; i < series.Len(); i++ {
		assert.InDelta(t, 0.04, series.Time[i]-series.Time[i-1], 1e-9)
	}
	assert.Less(t, series.Time[series.Len()-1], rec.Time[len(rec.Time)-1])
}

func TestResample_NegativeStartClampsToZero(t *testing.T) {
	rec := &domain.Recording{
		Time:   []float64{-0.3, -0.1, 0.1, 0.3},
		Signal: []domain.Sample{{1, 1}, {1, 1}, {1, 1}, {1, 1}},
	}
	series, err := mustSWARII(t, 1, 10).Resample(rec)
	require.NoError(t, err)
	require.NotZero(t, series.Len())
	assert.Equal(t, 0.0, series.Time[0])
}

func TestResample_Gap(t *testing.T) {
	rec := &domain.Recording{}
	for i := 0; i <= 100; i++ {
		rec.Time = append(rec.Time, float64(i)/100)
		rec.Signal = append(rec.Signal, domain.Sample{1, 1})
	}
	for i := 300; i <= 400; i++ {
		rec.Time = append(rec.Time, float64(i)/100)
		rec.Signal = append(rec.Signal, domain.Sample{2, 2})
	}

	series, err := mustSWARII(t, 1, 25).Resample(rec)
	require.NoError(t, err)

	// grid points in [1.5, 2.5] see no sample: k*0.04 for k = 38..62
	assert.Equal(t, 25, series.EmptyWindows)
	assert.InDelta(t, float64(series.EmptyWindows)*0.04, series.SkippedTime, 1e-9)
	assert.InDelta(t, (2.5-1.5)/0.04, float64(series.EmptyWindows), 1)

	notice, ok := series.Underflow()
	assert.True(t, ok)
	assert.Equal(t, 25, notice.EmptyWindows)

	for _, ts := range series.Time {
		assert.False(t, ts > 1.5 && ts < 2.5, "no point emitted inside the gap, got %v", ts)
	}
}

func TestResample_StrictWindowBoundary(t *testing.T) {
	rec := &domain.Recording{
		Time:   []float64{0, 0.5, 1},
		Signal: []domain.Sample{{1, 10}, {2, 20}, {3, 30}},
	}

	series, err := mustSWARII(t, 1, 2).Resample(rec)
	require.NoError(t, err)

	// samples exactly W/2 away are excluded, so every window holds one sample
	assert.Equal(t, []float64{0, 0.5}, series.Time)
	assert.Equal(t, []domain.Sample{{1, 10}, {2, 20}}, series.Signal)
	assert.Zero(t, series.EmptyWindows)
}

func TestResample_TwoSampleWeights(t *testing.T) {
	rec := &domain.Recording{
		Time:   []float64{0, 0.2},
		Signal: []domain.Sample{{0, 0}, {2, 4}},
	}

	series, err := mustSWARII(t, 1, 10).Resample(rec)
	require.NoError(t, err)

	require.Equal(t, 2, series.Len())
	for _, v := range series.Signal {
		assert.InDelta(t, 1, v[0], 1e-12)
		assert.InDelta(t, 2, v[1], 1e-12)
	}
}

func TestResample_WithinContributingBounds(t *testing.T) {
	rec := irregularRecording(42, 500, 0)
	windowSize := 0.3
	series, err := mustSWARII(t, windowSize, 25).Resample(rec)
	require.NoError(t, err)
	require.NotZero(t, series.Len())

	for p, current := range series.Time {
		lo := domain.Sample{math.Inf(1), math.Inf(1)}
		hi := domain.Sample{math.Inf(-1), math.Inf(-1)}
		for i, ts := range rec.Time {
			if math.Abs(ts-current) < windowSize/2 {
				for c := 0; c < 2; c++ {
					lo[c] = math.Min(lo[c], rec.Signal[i][c])
					hi[c] = math.Max(hi[c], rec.Signal[i][c])
				}
			}
		}
		for c := 0; c < 2; c++ {
			v := series.Signal[p][c]
			assert.GreaterOrEqual(t, v, lo[c]-1e-9, "point %d channel %d", p, c)
			assert.LessOrEqual(t, v, hi[c]+1e-9, "point %d channel %d", p, c)
		}
	}
}

func TestResample_MatchesFullScan(t *testing.T) {
	tests := []struct {
		name       string
		rec        *domain.Recording
		windowSize float64
		freq       float64
	}{
		{name: "dense sorted", rec: irregularRecording(1, 800, 0), windowSize: 1, freq: 25},
		{name: "narrow window", rec: irregularRecording(2, 800, 0.05), windowSize: 0.01, freq: 50},
		{name: "wide window", rec: irregularRecording(3, 300, 0), windowSize: 4, freq: 10},
		{name: "negative start", rec: irregularRecording(4, 300, -1.2), windowSize: 0.5, freq: 25},
		{
			name: "duplicate timestamps",
			rec: &domain.Recording{
				Time:   []float64{0, 0.01, 0.01, 0.03, 0.03, 0.03, 0.5, 0.51},
				Signal: []domain.Sample{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}, {11, 12}, {13, 14}, {15, 16}},
			},
			windowSize: 0.1,
			freq:       50,
		},
		{
			name: "unsorted",
			rec: &domain.Recording{
				Time:   []float64{0, 0.2, 0.1, 0.35, 0.3, 0.9, 0.6},
				Signal: []domain.Sample{{1, 1}, {2, 4}, {3, 9}, {4, 16}, {5, 25}, {6, 36}, {7, 49}},
			},
			windowSize: 0.3,
			freq:       20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mustSWARII(t, tt.windowSize, tt.freq).Resample(tt.rec)
			require.NoError(t, err)

			want := referenceResample(tt.rec, tt.windowSize, tt.freq)
			assert.Equal(t, want.Time, got.Time)
			assert.Equal(t, want.Signal, got.Signal)
			assert.Equal(t, want.EmptyWindows, got.EmptyWindows)
			assert.Equal(t, want.SkippedTime, got.SkippedTime)
		})
	}
}
