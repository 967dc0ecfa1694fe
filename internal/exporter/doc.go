// Package exporter serialises resampled series into output artifacts.
//
// This package contains three encoders behind the Encoder interface:
//
// CSVEncoder: the default space-delimited text format, a "Time(s) X(cm) Y(cm)"
// header followed by one 9-decimal row per point.
//
// XLSXEncoder: an Excel workbook with a single "Resampled" sheet holding the
// same columns as numeric cells.
//
// EDFEncoder: a European Data Format file with X and Y signals in one-second
// data records, for tools that consume physiological recordings.
//
// Example usage:
//
//	enc, err := exporter.ForFormat("csv", exporter.Options{DesiredFrequency: 25})
//	if err != nil {
//	    return err
//	}
//	err = manager.WriteAtomic(manager.OutputPath(rel, enc.Extension()), func(w io.WriteSeeker) error {
//	    return enc.Encode(w, series)
//	})
package exporter
