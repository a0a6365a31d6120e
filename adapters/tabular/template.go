package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"ecosense/domain/catalog"
	"ecosense/domain/ingest"
	apperrors "ecosense/internal/errors"

	"github.com/xuri/excelize/v2"
)

// TemplateFormat selects the blank-template output encoding
type TemplateFormat string

const (
	TemplateCSV  TemplateFormat = "csv"
	TemplateXLSX TemplateFormat = "xlsx"
)

// WriteTemplate writes a blank canonical-column upload template for the
// dataset type to w.
func WriteTemplate(w io.Writer, dt catalog.DatasetType, format TemplateFormat) error {
	columns := ingest.TemplateColumns(dt)

	switch format {
	case TemplateCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return apperrors.Wrap(err, "failed to write template header")
		}
		cw.Flush()
		return cw.Error()

	case TemplateXLSX:
		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)
		for i, col := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return apperrors.Wrap(err, "failed to build template cell reference")
			}
			if err := f.SetCellStr(sheet, cell, col); err != nil {
				return apperrors.Wrap(err, "failed to write template header")
			}
		}
		if err := f.Write(w); err != nil {
			return apperrors.Wrap(err, "failed to write template workbook")
		}
		return nil

	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown template format %q", format))
	}
}
