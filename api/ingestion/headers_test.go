package ingestion

import "testing"

func TestHeaderFingerprintInsensitivity(t *testing.T) {
	exact := ExpectedFingerprint()

	messy := []string{
		"  tech id ", "TECH NAME", "Region", "jobs\u00a0assigned",
		"Jobs  Completed", "repeat visits", "QC PASS RATE", "customer rating",
	}
	if HeaderFingerprint(messy) != exact {
		t.Errorf("case/whitespace variants should fingerprint identically:\n got %q\nwant %q",
			HeaderFingerprint(messy), exact)
	}
}

func TestHeaderFingerprintOrderSensitive(t *testing.T) {
	reordered := make([]string, len(ExpectedHeaders))
	copy(reordered, ExpectedHeaders)
	reordered[0], reordered[1] = reordered[1], reordered[0]
	if HeaderFingerprint(reordered) == ExpectedFingerprint() {
		t.Error("reordered headers must not match")
	}

	missing := ExpectedHeaders[:len(ExpectedHeaders)-1]
	if HeaderFingerprint(missing) == ExpectedFingerprint() {
		t.Error("missing column must not match")
	}

	extra := append(append([]string{}, ExpectedHeaders...), "Notes")
	if HeaderFingerprint(extra) == ExpectedFingerprint() {
		t.Error("extra column must not match")
	}
}

func TestMatchWorksheet(t *testing.T) {
	sheets := []Worksheet{
		{Name: "Cover", Rows: [][]string{{"Pacific Region Scorecard"}, {"Week 32"}}},
		{Name: "Data", Rows: [][]string{
			{"Pacific Region Scorecard"},
			ExpectedHeaders,
			{"T-1001", "A. Rivera", "PACIFIC", "40", "38", "2", "0.97", "4.8"},
		}},
	}
	m := MatchWorksheet(sheets)
	if !m.Matched {
		t.Fatal("expected a match")
	}
	if m.Sheet != "Data" {
		t.Errorf("matched sheet = %q, want Data", m.Sheet)
	}
	if m.HeaderRow != 1 {
		t.Errorf("header row = %d, want 1", m.HeaderRow)
	}
}

func TestMatchWorksheetNoMatchCarriesDiagnostics(t *testing.T) {
	sheets := []Worksheet{
		{Name: "Sheet1", Rows: [][]string{
			{"Export"},
			{"ID", "Name", "Score"},
			{"1", "x", "2"},
		}},
	}
	m := MatchWorksheet(sheets)
	if m.Matched {
		t.Fatal("expected no match")
	}
	if len(m.Headers) != 3 || m.Headers[0] != "ID" {
		t.Errorf("fallback header candidate = %v, want the first multi-cell row", m.Headers)
	}
}

func TestMatchWorksheetScanDepthLimit(t *testing.T) {
	rows := make([][]string, 0, 16)
	for i := 0; i < 12; i++ {
		rows = append(rows, []string{"filler"})
	}
	rows = append(rows, ExpectedHeaders)
	m := MatchWorksheet([]Worksheet{{Name: "Deep", Rows: rows}})
	if m.Matched {
		t.Error("header row beyond the scan depth must not match")
	}
}

func TestCoversRequiredHeaders(t *testing.T) {
	shuffledWithExtras := []string{
		"Customer Rating", "Region", "Tech Name", "Notes", "Tech ID",
		"Jobs Completed", "Jobs Assigned", "QC Pass Rate", "Repeat Visits",
	}
	if !CoversRequiredHeaders(shuffledWithExtras) {
		t.Error("shuffled superset should cover the required headers")
	}
	if CoversRequiredHeaders([]string{"Tech ID", "Tech Name"}) {
		t.Error("subset must not cover")
	}
}

func TestNormalizeCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Tech ID  ", "Tech ID"},
		{"a\t b", "a b"},
		{"Tech\u00a0ID", "Tech ID"},
		{"", ""},
		{"\u00a0", ""},
	}
	for _, tt := range tests {
		if got := normalizeCell(tt.in); got != tt.want {
			t.Errorf("normalizeCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
