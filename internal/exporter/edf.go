package exporter

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/OpenPSG/edf"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

const (
	edfRecordDuration = time.Second
	edfDigitalMin     = -32768
	edfDigitalMax     = 32767
	// a data record may not exceed 61440 bytes of 16-bit samples
	edfMaxRecordSamples = 61440 / 2
	edfRecordingID      = "wbbcli SWARII resampled statokinesigram"
)

// edfStartTime is the EDF convention for an unknown start date. A fixed value
// keeps outputs a pure function of the input tree.
var edfStartTime = time.Date(1985, time.January, 1, 0, 0, 0, 0, time.UTC)

// EDFEncoder writes the series as a European Data Format file with two
// signals, X and Y, in cm. Each one-second data record holds
// DesiredFrequency samples per signal; the last record is padded with the
// final sample. Points dropped for empty windows are not represented: EDF
// samples are implicitly contiguous.
type EDFEncoder struct {
	samplesPerRecord int
}

// NewEDFEncoder creates an EDF encoder for series resampled at freq Hz.
// freq must be a whole number of samples per second that fits in a record.
func NewEDFEncoder(freq float64) (*EDFEncoder, error) {
	if !(freq >= 1) || freq != math.Trunc(freq) {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("edf output needs a whole desired frequency, got %v", freq))
	}
	n := int(freq)
	if 2*n > edfMaxRecordSamples {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("edf output supports at most %d Hz, got %d", edfMaxRecordSamples/2, n))
	}
	return &EDFEncoder{samplesPerRecord: n}, nil
}

func (e *EDFEncoder) Name() string { return FormatEDF }

func (e *EDFEncoder) Extension() string { return ".edf" }

// SamplesPerRecord returns the samples stored per signal in each data record
func (e *EDFEncoder) SamplesPerRecord() int { return e.samplesPerRecord }

func (e *EDFEncoder) Encode(w io.WriteSeeker, series *domain.ResampledSeries) error {
	if err := checkFinite(series); err != nil {
		return err
	}

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "X",
		RecordingID:        edfRecordingID,
		StartTime:          edfStartTime,
		DataRecordDuration: edfRecordDuration,
		SignalCount:        2,
		Signals: []edf.SignalHeader{
			e.signalHeader("X", series, 0),
			e.signalHeader("Y", series, 1),
		},
	}

	ew, err := edf.Create(w, hdr)
	if err != nil {
		return apperrors.NewEncodingError("failed to write edf header", err)
	}

	n := series.Len()
	for start := 0; start < n; start += e.samplesPerRecord {
		x := make([]float64, e.samplesPerRecord)
		y := make([]float64, e.samplesPerRecord)
		for i := range x {
			idx := min(start+i, n-1)
			x[i] = series.Signal[idx][0]
			y[i] = series.Signal[idx][1]
		}
		if err := ew.WriteRecord([][]float64{x, y}); err != nil {
			return apperrors.NewEncodingError(
				fmt.Sprintf("failed to write edf record %d", start/e.samplesPerRecord), err)
		}
	}

	if err := ew.Close(); err != nil {
		return apperrors.NewEncodingError("failed to finalise edf header", err)
	}
	return nil
}

// signalHeader calibrates one channel. The physical range is widened to
// whole hundredths because the header stores it with two decimals and
// readers calibrate from the stored text.
func (e *EDFEncoder) signalHeader(label string, series *domain.ResampledSeries, channel int) edf.SignalHeader {
	lo, hi := -1., 1.
	if series.Len() > 0 {
		lo, hi = math.Inf(1), math.Inf(-1)
		for _, s := range series.Signal {
			lo = math.Min(lo, s[channel])
			hi = math.Max(hi, s[channel])
		}
	}
	lo = math.Floor(lo*100) / 100
	hi = math.Ceil(hi*100) / 100
	if hi <= lo {
		hi = lo + 0.01
	}

	return edf.SignalHeader{
		Label:             label,
		TransducerType:    "Wii Balance Board",
		PhysicalDimension: "cm",
		PhysicalMin:       lo,
		PhysicalMax:       hi,
		DigitalMin:        edfDigitalMin,
		DigitalMax:        edfDigitalMax,
		Prefiltering:      "SWARII",
		SamplesPerRecord:  e.samplesPerRecord,
	}
}
