package ingestion

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const scorecardCSV = `Pacific Region Scorecard
Tech ID,Tech Name,Region,Jobs Assigned,Jobs Completed,Repeat Visits,QC Pass Rate,Customer Rating
T-1001,A. Rivera,PACIFIC,40,38,2,0.97,4.8
T-1002,B. Chen,PACIFIC,35,35,0,1.00,4.9
Grand Total,,,75,73,2,,
`

func TestParseWorkbookCSV(t *testing.T) {
	sheets, err := ParseWorkbook("pacific_scorecard.csv", []byte(scorecardCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 1 {
		t.Fatalf("got %d sheets, want 1", len(sheets))
	}
	if sheets[0].Name != "pacific_scorecard" {
		t.Errorf("sheet name = %q", sheets[0].Name)
	}
	if len(sheets[0].Rows) != 5 {
		t.Errorf("got %d rows, want 5", len(sheets[0].Rows))
	}
}

func TestParseWorkbookUnsupported(t *testing.T) {
	_, err := ParseWorkbook("report.pdf", []byte("%PDF"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseWorkbookXLSX(t *testing.T) {
	xl := excelize.NewFile()
	sheet := xl.GetSheetName(0)
	rows := [][]interface{}{
		{"Mid Atlantic Scorecard"},
		{"Tech ID", "Tech Name", "Region", "Jobs Assigned", "Jobs Completed", "Repeat Visits", "QC Pass Rate", "Customer Rating"},
		{"T-2001", "C. Diaz", "MID ATLANTIC", 28, 27, 1, 0.96, 4.7},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := xl.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := xl.Write(&buf); err != nil {
		t.Fatal(err)
	}

	sheets, err := ParseWorkbook("mid_atlantic.xlsx", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	m := MatchWorksheet(sheets)
	if !m.Matched {
		t.Fatalf("expected header match, fingerprint %q", HeaderFingerprint(m.Headers))
	}
	if m.HeaderRow != 1 {
		t.Errorf("header row = %d, want 1", m.HeaderRow)
	}
}

func TestDataRowsExcludesFooters(t *testing.T) {
	sheets, err := ParseWorkbook("pacific_scorecard.csv", []byte(scorecardCSV))
	if err != nil {
		t.Fatal(err)
	}
	m := MatchWorksheet(sheets)
	if !m.Matched {
		t.Fatal("expected header match")
	}
	kept, excluded := dataRows(sheets[0], m.HeaderRow)
	if len(kept) != 2 {
		t.Fatalf("kept %d rows, want 2", len(kept))
	}
	if excluded != 1 {
		t.Errorf("excluded %d rows, want 1 (the grand total)", excluded)
	}
	// RowNum is the 1-based position in the sheet: title=1, header=2, data
	// starts at 3.
	if kept[0].RowNum != 3 || kept[1].RowNum != 4 {
		t.Errorf("row nums = %d, %d; want 3, 4", kept[0].RowNum, kept[1].RowNum)
	}
}

func TestDetectFileRegionTitleBeatsFilename(t *testing.T) {
	sheets, _ := ParseWorkbook("northeast_export.csv", []byte(scorecardCSV))
	m := MatchWorksheet(sheets)
	region, _, ok := detectFileRegion(sheets[0], m.HeaderRow, "northeast_export.csv")
	if !ok || region != "PACIFIC" {
		t.Errorf("region = %q, want PACIFIC from the title row", region)
	}

	noTitle := strings.Join(strings.Split(scorecardCSV, "\n")[1:], "\n")
	sheets2, _ := ParseWorkbook("northeast_export.csv", []byte(noTitle))
	m2 := MatchWorksheet(sheets2)
	region2, _, ok2 := detectFileRegion(sheets2[0], m2.HeaderRow, "northeast_export.csv")
	if !ok2 || region2 != "NORTHEAST" {
		t.Errorf("region = %q, want NORTHEAST from the filename", region2)
	}
}
