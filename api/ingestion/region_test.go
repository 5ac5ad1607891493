package ingestion

import "testing"

func TestDetectRegion(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		matched bool
	}{
		{"plain name", "Pacific Scorecard", "PACIFIC", true},
		{"filename with underscores", "mid_atlantic_weekly.xlsx", "MID ATLANTIC", true},
		{"filename with extension only stripped", "great-lakes-export.csv", "GREAT LAKES", true},
		// List order is priority: CENTRAL sits before SOUTH CENTRAL and
		// matches as a substring first.
		{"list order wins on overlap", "South Central Techs", "CENTRAL", true},
		{"national", "NATIONAL rollup", "NATIONAL", true},
		{"no region", "weekly_export_final.xlsx", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := DetectRegion(tt.text)
			if tt.want == "" {
				if ok {
					t.Errorf("DetectRegion(%q) matched %q, want no match", tt.text, got)
				}
				return
			}
			if !ok {
				t.Fatalf("DetectRegion(%q) found nothing, want %q", tt.text, tt.want)
			}
			if got != tt.want {
				t.Errorf("DetectRegion(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeRegionText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pacific_scorecard.xlsx", "PACIFIC SCORECARD"},
		{"  Mid--Atlantic  ", "MID ATLANTIC"},
		{"great.lakes.report.csv", "GREAT LAKES REPORT"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeRegionText(tt.in); got != tt.want {
			t.Errorf("normalizeRegionText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
