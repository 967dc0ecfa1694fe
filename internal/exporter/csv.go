package exporter

import (
	"bufio"
	"io"
	"strings"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

// CSVEncoder writes the space-delimited text artifact: one header line
// "Time(s) X(cm) Y(cm)" then one "%.9f %.9f %.9f" line per point.
type CSVEncoder struct{}

// NewCSVEncoder creates a new CSV encoder
func NewCSVEncoder() *CSVEncoder {
	return &CSVEncoder{}
}

func (e *CSVEncoder) Name() string { return FormatCSV }

func (e *CSVEncoder) Extension() string { return ".csv" }

// Encode writes series to w. The delimiter is a single space, so
// encoding/csv quoting rules do not apply.
func (e *CSVEncoder) Encode(w io.WriteSeeker, series *domain.ResampledSeries) error {
	return e.Write(w, series)
}

// Write streams the text artifact to any writer
func (e *CSVEncoder) Write(w io.Writer, series *domain.ResampledSeries) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(Header, " ") + "\n"); err != nil {
		return apperrors.NewStorageError("failed to write header", err)
	}

	for i := 0; i < series.Len(); i++ {
		bw.WriteString(formatFloat(series.Time[i]))
		bw.WriteByte(' ')
		bw.WriteString(formatFloat(series.Signal[i][0]))
		bw.WriteByte(' ')
		bw.WriteString(formatFloat(series.Signal[i][1]))
		if err := bw.WriteByte('\n'); err != nil {
			return apperrors.NewStorageError("failed to write record", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return apperrors.NewStorageError("failed to flush output", err)
	}
	return nil
}
