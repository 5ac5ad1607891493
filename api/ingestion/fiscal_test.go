package ingestion

import (
	"testing"
	"time"
)

func TestFiscalMonthAnchor(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"first of month", "2025-03-01", "2025-03-21"},
		{"on the cutoff", "2025-03-21", "2025-03-21"},
		{"day after cutoff", "2025-03-22", "2025-04-21"},
		{"end of month", "2025-03-31", "2025-04-21"},
		{"december rolls into january", "2025-12-22", "2026-01-21"},
		{"december before cutoff stays", "2025-12-10", "2025-12-21"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := time.Parse("2006-01-02", tt.ref)
			if err != nil {
				t.Fatal(err)
			}
			got := FiscalMonthAnchor(ref).Format("2006-01-02")
			if got != tt.want {
				t.Errorf("FiscalMonthAnchor(%s) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestFiscalMonthAnchorNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("X", -10*3600)
	ref := time.Date(2025, 6, 22, 20, 0, 0, 0, loc) // 2025-06-23 in UTC
	got := FiscalMonthAnchor(ref)
	if got.Location() != time.UTC {
		t.Errorf("anchor location = %v, want UTC", got.Location())
	}
	if got.Format("2006-01-02") != "2025-07-21" {
		t.Errorf("anchor = %s, want 2025-07-21", got.Format("2006-01-02"))
	}
}

func TestParseFiscalRef(t *testing.T) {
	got, err := ParseFiscalRef("2025-08-05")
	if err != nil {
		t.Fatal(err)
	}
	if got.Format("2006-01-02") != "2025-08-05" {
		t.Errorf("got %s", got.Format("2006-01-02"))
	}

	if _, err := ParseFiscalRef("not a date"); err == nil {
		t.Error("expected error for unparsable date")
	}

	now, err := ParseFiscalRef("  ")
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(now) > time.Minute {
		t.Errorf("empty ref should default to now, got %v", now)
	}
}
