package exporter

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

// Header is the column header shared by every tabular output format
var Header = []string{"Time(s)", "X(cm)", "Y(cm)"}

// Encoder serialises a resampled series into one output artifact
type Encoder interface {
	// Name is the format name used in configuration ("csv", "xlsx", "edf")
	Name() string
	// Extension is appended to the flattened input name, including the dot
	Extension() string
	// Encode writes series to w. w is positioned at the start of an empty file.
	Encode(w io.WriteSeeker, series *domain.ResampledSeries) error
}

// Options carries the run parameters some encoders need
type Options struct {
	// DesiredFrequency is the resampling rate in Hz
	DesiredFrequency float64
}

type factory func(Options) (Encoder, error)

var registry = map[string]factory{
	FormatCSV:  func(Options) (Encoder, error) { return NewCSVEncoder(), nil },
	FormatXLSX: func(Options) (Encoder, error) { return NewXLSXEncoder(), nil },
	FormatEDF:  func(o Options) (Encoder, error) { return NewEDFEncoder(o.DesiredFrequency) },
}

// Format names
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatEDF  = "edf"
)

// Formats returns the supported format names in sorted order
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForFormat returns the encoder for a format name. Unknown names and options
// the format cannot honour are VALIDATION errors.
func ForFormat(name string, opts Options) (Encoder, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("unknown output format %q (supported: %s)", name, strings.Join(Formats(), ", ")))
	}
	return f(opts)
}

// formatFloat renders a value with 9 fixed decimals. Non-finite values use
// the lower-case spelling of the original text artifacts.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', 9, 64)
}

// checkFinite rejects series holding NaN or infinite samples
func checkFinite(series *domain.ResampledSeries) error {
	for i, s := range series.Signal {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return apperrors.NewEncodingError(
					fmt.Sprintf("sample %d at t=%s is not finite", i, formatFloat(series.Time[i])), nil)
			}
		}
	}
	return nil
}
