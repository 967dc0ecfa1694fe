// Package dataprocessing holds the numeric core of the resampler: reading raw
// balance-board recordings, resampling them onto a uniform grid and trimming
// the result.
//
// # Architecture
//
// The package is organized into three components, each usable on its own:
//
// 1. Parser: reads a raw recording (two header lines, whitespace-separated rows)
// 2. SWARII: sliding-window weighted averaged interpolation onto a 1/F grid
// 3. Trimmer: selects a time range of a resampled series
//
// # Usage
//
//	rec, err := dataprocessing.ParseFile("subject1/session1.txt")
//	if err != nil {
//	    return err
//	}
//
//	swarii, err := dataprocessing.NewSWARII(1, 25)
//	if err != nil {
//	    return err
//	}
//	series, err := swarii.Resample(rec)
//	if err != nil {
//	    return err
//	}
//
//	trimmed := dataprocessing.Trim(series, dataprocessing.TrimPolicy{
//	    Mode: dataprocessing.TrimHeadTail, X: 5, Y: 5,
//	})
//
// # Data Flow
//
//	raw file → Parser → Recording → SWARII → ResampledSeries → Trim → ResampledSeries
//
// # Error Handling
//
// Parse failures are *errors.AppError values of type PARSING carrying the
// 1-based line number; read failures are STORAGE errors. Empty resampling
// windows are not errors: they are counted on the returned series.
//
// Nothing in this package logs or touches global state.
package dataprocessing
