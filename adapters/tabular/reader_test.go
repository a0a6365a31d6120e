package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"ecosense/domain/catalog"
	apperrors "ecosense/internal/errors"
)

func TestReadTableUnsupportedExtension(t *testing.T) {
	// The reader must reject the extension before touching the content.
	_, err := ReadTable("readings.txt", strings.NewReader("location,metric\n"))
	if err == nil {
		t.Fatal("Expected error for unsupported extension")
	}
	if apperrors.GetCode(err) != apperrors.CodeUnsupportedFormat {
		t.Errorf("Expected UNSUPPORTED_FORMAT code, got %s", apperrors.GetCode(err))
	}

	if _, err := ReadTable("readings.xls", strings.NewReader("")); err == nil {
		t.Error("Expected legacy .xls to be rejected")
	}
}

func TestReadTableCSV(t *testing.T) {
	csvData := "location,metric,value,date\nStation A,pm2.5,18.4,2024-03-15\nStation B,pm10,35.0,2024-03-15\n"

	table, err := ReadTable("readings.csv", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(table.Headers) != 4 {
		t.Errorf("Expected 4 headers, got %v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 data rows, got %d", len(table.Rows))
	}
	if table.Rows[0][0] != "Station A" {
		t.Errorf("Unexpected first cell: %q", table.Rows[0][0])
	}
}

func TestReadTableHeaderOnly(t *testing.T) {
	if _, err := ReadTable("readings.csv", strings.NewReader("location,metric,value,date\n")); err == nil {
		t.Error("Expected error for a file with no data rows")
	}
	if _, err := ReadTable("readings.csv", strings.NewReader("")); err == nil {
		t.Error("Expected error for an empty file")
	}
}

func TestReadTableWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := [][]string{
		{"location", "metric", "value", "date"},
		{"Station A", "ph", "7.2", "2024-03-15"},
	}
	for r, row := range cells {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				t.Fatalf("SetCellStr failed: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write workbook failed: %v", err)
	}

	table, err := ReadTable("readings.xlsx", &buf)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][1] != "ph" {
		t.Errorf("Unexpected workbook rows: %v", table.Rows)
	}
}

func TestReadSheetNamed(t *testing.T) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)
	if _, err := f.NewSheet("field_data"); err != nil {
		t.Fatalf("NewSheet failed: %v", err)
	}
	fill := func(sheet string, cells [][]string) {
		for r, row := range cells {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				if err := f.SetCellStr(sheet, cell, v); err != nil {
					t.Fatalf("SetCellStr failed: %v", err)
				}
			}
		}
	}
	fill(first, [][]string{
		{"location", "metric", "value", "date"},
		{"Station A", "ph", "7.2", "2024-03-15"},
	})
	fill("field_data", [][]string{
		{"location", "metric", "value", "date"},
		{"Station B", "pm10", "31.5", "2024-03-16"},
	})
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write workbook failed: %v", err)
	}

	table, err := ReadSheet(bytes.NewReader(buf.Bytes()), "field_data")
	if err != nil {
		t.Fatalf("ReadSheet failed: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "Station B" {
		t.Errorf("Expected the named sheet's rows, got %v", table.Rows)
	}

	if _, err := ReadSheet(bytes.NewReader(buf.Bytes()), "no_such_sheet"); err == nil {
		t.Error("Expected error for an unknown sheet name")
	} else if apperrors.GetCode(err) != apperrors.CodeInvalidInput {
		t.Errorf("Expected INVALID_INPUT code, got %s", apperrors.GetCode(err))
	}
}

func TestWriteTemplateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf, catalog.DatasetEnvironmental, TemplateCSV); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	header := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(header, "location,metric,value,date") {
		t.Errorf("Unexpected template header: %q", header)
	}

	var xbuf bytes.Buffer
	if err := WriteTemplate(&xbuf, catalog.DatasetGenomic, TemplateXLSX); err != nil {
		t.Fatalf("WriteTemplate xlsx failed: %v", err)
	}
	if xbuf.Len() == 0 {
		t.Error("Expected non-empty workbook output")
	}
}
