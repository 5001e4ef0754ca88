package documents

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/xuri/excelize/v2"
)

// Sheet holds the cell text of one worksheet.
type Sheet struct {
	Name string
	Rows [][]string
}

// ReadSheets returns every worksheet of an xlsx/xlsm workbook, or a single
// sheet for a CSV file.
func ReadSheets(filename string, data []byte) ([]Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		r := csv.NewReader(bytes.NewReader(data))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		return []Sheet{{Name: name, Rows: rows}}, nil

	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()

		var sheets []Sheet
		for _, name := range f.GetSheetList() {
			rows, err := f.GetRows(name)
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", name, err)
			}
			sheets = append(sheets, Sheet{Name: name, Rows: rows})
		}
		return sheets, nil

	default:
		return nil, fmt.Errorf("unsupported spreadsheet format %q", filepath.Ext(filename))
	}
}

// ListWorksheets returns the name and dimensions of every worksheet.
func ListWorksheets(filename string, data []byte) ([]Worksheet, error) {
	sheets, err := ReadSheets(filename, data)
	if err != nil {
		return nil, err
	}

	out := make([]Worksheet, 0, len(sheets))
	for _, s := range sheets {
		cols := 0
		for _, row := range s.Rows {
			if len(row) > cols {
				cols = len(row)
			}
		}
		out = append(out, Worksheet{Name: s.Name, Rows: len(s.Rows), Cols: cols})
	}
	return out, nil
}

// PDFPageCount reads the page tree of a PDF.
func PDFPageCount(data []byte) (int, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return ctx.PageCount, nil
}
