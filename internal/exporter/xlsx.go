package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "wbbcli/internal/errors"
	"wbbcli/pkg/contracts/domain"
)

// XLSXSheet is the worksheet holding the resampled series
const XLSXSheet = "Resampled"

// XLSXEncoder writes the series as an Excel workbook with one numeric row per
// point under the same three-column header as the text artifact.
type XLSXEncoder struct{}

// NewXLSXEncoder creates a new XLSX encoder
func NewXLSXEncoder() *XLSXEncoder {
	return &XLSXEncoder{}
}

func (e *XLSXEncoder) Name() string { return FormatXLSX }

func (e *XLSXEncoder) Extension() string { return ".xlsx" }

func (e *XLSXEncoder) Encode(w io.WriteSeeker, series *domain.ResampledSeries) error {
	if err := checkFinite(series); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheet); err != nil {
		return apperrors.NewEncodingError("failed to name worksheet", err)
	}

	sw, err := f.NewStreamWriter(XLSXSheet)
	if err != nil {
		return apperrors.NewEncodingError("failed to create worksheet writer", err)
	}
	if err := sw.SetColWidth(1, len(Header), 16); err != nil {
		return apperrors.NewEncodingError("failed to set column width", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return apperrors.NewEncodingError("failed to write header row", err)
	}

	for i := 0; i < series.Len(); i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewEncodingError(fmt.Sprintf("row %d out of range", i+2), err)
		}
		row := []interface{}{series.Time[i], series.Signal[i][0], series.Signal[i][1]}
		if err := sw.SetRow(cell, row); err != nil {
			return apperrors.NewEncodingError(fmt.Sprintf("failed to write row %d", i+2), err)
		}
	}

	if err := sw.Flush(); err != nil {
		return apperrors.NewEncodingError("failed to flush worksheet", err)
	}
	if err := f.Write(w); err != nil {
		return apperrors.NewStorageError("failed to write workbook", err)
	}
	return nil
}
