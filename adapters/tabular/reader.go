package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ecosense/domain/core"
	apperrors "ecosense/internal/errors"

	"github.com/xuri/excelize/v2"
)

// Table is a fully parsed upload: trimmed headers plus raw string rows.
// The whole file is held in memory; there is no streaming parse.
type Table struct {
	Headers []string
	Rows    [][]string
}

// SupportedExtensions lists accepted upload file extensions
var SupportedExtensions = []string{".csv", ".xlsx"}

// ReadTable parses an uploaded file into a Table, dispatching on the file
// extension. Unrecognized extensions fail with an UNSUPPORTED_FORMAT error
// before any rows are read.
func ReadTable(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx":
		return readWorkbook(r, "")
	default:
		return nil, apperrors.UnsupportedFormat(
			fmt.Sprintf("unsupported file extension %q (accepted: %s)",
				filepath.Ext(filename), strings.Join(SupportedExtensions, ", ")))
	}
}

// ReadSheet parses a named worksheet from a workbook upload
func ReadSheet(r io.Reader, sheet string) (*Table, error) {
	return readWorkbook(r, sheet)
}

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.WithCode(apperrors.CodeUnsupportedFormat, err), "failed to parse CSV")
	}
	return tableFromRows(rows)
}

func readWorkbook(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.WithCode(apperrors.CodeUnsupportedFormat, err), "failed to open workbook")
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.UnsupportedFormat("workbook contains no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.WithCode(apperrors.CodeInvalidInput, err),
			fmt.Sprintf("failed to read sheet %q", sheet))
	}
	return tableFromRows(rows)
}

func tableFromRows(rows [][]string) (*Table, error) {
	if len(rows) < 2 {
		return nil, apperrors.Wrap(core.ErrUnsupportedFormat,
			"file must have a header row and at least one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		trimmed := make([]string, len(row))
		for i, cell := range row {
			trimmed[i] = strings.TrimSpace(cell)
		}
		data = append(data, trimmed)
	}

	return &Table{Headers: headers, Rows: data}, nil
}
