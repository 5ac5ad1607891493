package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Worksheet is one sheet (or the whole file, for CSV) as a grid of cell
// texts.
type Worksheet struct {
	Name string
	Rows [][]string
}

// ParseWorkbook turns an uploaded file into worksheets. XLSX keeps every
// sheet so the fingerprint matcher can pick among candidates; CSV is treated
// as a single-worksheet file named after the file itself.
func ParseWorkbook(filename string, data []byte) ([]Worksheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return parseXLSXWorkbook(data)
	case ".xls":
		return parseXLSWorkbook(data)
	case ".csv":
		return parseCSVWorkbook(filename, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func parseXLSXWorkbook(data []byte) ([]Worksheet, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xl.Close()

	var sheets []Worksheet
	for _, name := range xl.GetSheetList() {
		rows, err := xl.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get rows for sheet %s: %w", name, err)
		}
		sheets = append(sheets, Worksheet{Name: name, Rows: rows})
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx contains no worksheets")
	}
	return sheets, nil
}

// parseXLSWorkbook reads legacy Excel through xlsReader, which wants a file
// path, so the payload goes through a temp file first.
func parseXLSWorkbook(data []byte) ([]Worksheet, error) {
	tmp, err := os.CreateTemp("", "opsingest-*.xls")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp xls: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp xls: %w", err)
	}
	tmp.Close()

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}

	var sheets []Worksheet
	for i := 0; i < book.GetNumberSheets(); i++ {
		sheet, err := book.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}
		var rows [][]string
		for _, xlsRow := range sheet.GetRows() {
			var rowVals []string
			for _, col := range xlsRow.GetCols() {
				rowVals = append(rowVals, col.GetString())
			}
			rows = append(rows, rowVals)
		}
		sheets = append(sheets, Worksheet{Name: sheet.GetName(), Rows: rows})
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xls contains no readable worksheets")
	}
	return sheets, nil
}

func parseCSVWorkbook(filename string, data []byte) ([]Worksheet, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return []Worksheet{{Name: name, Rows: rows}}, nil
}

// extractedRow is a surviving data row with its 1-based source position for
// traceability.
type extractedRow struct {
	RowNum int
	Cells  []string
}

// dataRows returns the rows after the header row with footers and totals
// excluded.
func dataRows(sh Worksheet, headerRow int) (kept []extractedRow, excluded int) {
	for i := headerRow + 1; i < len(sh.Rows); i++ {
		if footer, _ := IsFooterRow(sh.Rows[i]); footer {
			excluded++
			continue
		}
		kept = append(kept, extractedRow{RowNum: i + 1, Cells: sh.Rows[i]})
	}
	return kept, excluded
}

// titleText joins the cells above the header row; region detection runs on
// it before falling back to the filename.
func titleText(sh Worksheet, headerRow int) string {
	var parts []string
	for i := 0; i < headerRow && i < len(sh.Rows); i++ {
		for _, c := range sh.Rows[i] {
			if v := normalizeCell(c); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return strings.Join(parts, " ")
}

// detectFileRegion tries the worksheet title first, the filename second.
func detectFileRegion(sh Worksheet, headerRow int, filename string) (string, string, bool) {
	if region, rule, ok := DetectRegion(titleText(sh, headerRow)); ok {
		return region, rule, ok
	}
	return DetectRegion(filename)
}
