package exporter

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbbcli/pkg/contracts/domain"
)

func sampleSeries() *domain.ResampledSeries {
	return &domain.ResampledSeries{
		Time:   []float64{0, 0.04, 0.08},
		Signal: []domain.Sample{{1.1, 2.1}, {-0.5, 3.25}, {12.345678901, -0.000000001}},
	}
}

func TestCSVEncoder_Write(t *testing.T) {
	tests := []struct {
		name   string
		series *domain.ResampledSeries
		want   string
	}{
		{
			name:   "points",
			series: sampleSeries(),
			want: "Time(s) X(cm) Y(cm)\n" +
				"0.000000000 1.100000000 2.100000000\n" +
				"0.040000000 -0.500000000 3.250000000\n" +
				"0.080000000 12.345678901 -0.000000001\n",
		},
		{
			name:   "empty series writes header only",
			series: &domain.ResampledSeries{},
			want:   "Time(s) X(cm) Y(cm)\n",
		},
		{
			name: "non-finite values",
			series: &domain.ResampledSeries{
				Time:   []float64{1},
				Signal: []domain.Sample{{math.NaN(), math.Inf(-1)}},
			},
			want: "Time(s) X(cm) Y(cm)\n1.000000000 nan -inf\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewCSVEncoder().Write(&buf, tt.series))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestCSVEncoder_Encode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := NewCSVEncoder()
	require.NoError(t, enc.Encode(f, sampleSeries()))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("Time(s) X(cm) Y(cm)\n0.000000000 1.100000000")))
	assert.Equal(t, "csv", enc.Name())
	assert.Equal(t, ".csv", enc.Extension())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVEncoder_WriteError(t *testing.T) {
	err := NewCSVEncoder().Write(failingWriter{}, sampleSeries())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 0, want: "0.000000000"},
		{in: 1.1, want: "1.100000000"},
		{in: -2.0000000004, want: "-2.000000000"},
		{in: 123456.789, want: "123456.789000000"},
		{in: math.NaN(), want: "nan"},
		{in: math.Inf(1), want: "inf"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFloat(tt.in))
		})
	}
}
