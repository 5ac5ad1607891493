package ingestion

import "testing"

func TestIsFooterRow(t *testing.T) {
	tests := []struct {
		name     string
		cells    []string
		footer   bool
		wantRule string
	}{
		{"empty row", []string{"", "  ", " "}, true, FooterRuleEmpty},
		{"grand total", []string{"Grand Total", "120", "115", "7", "0.95", "4.6"}, true, "grand total"},
		{"totals keyword", []string{"TOTALS", "120", "115"}, true, "total"},
		{"subtotal", []string{"Subtotal", "40"}, true, "subtotal"},
		{"page footer", []string{"Page 3 of 7"}, true, "page "},
		{"end of report", []string{"*** End of Report ***"}, true, "end of report"},
		{"sparse two cells", []string{"T-1001", "", "", "4.8"}, true, FooterRuleSparse},
		{"full data row", []string{"T-1001", "A. Rivera", "PACIFIC", "40", "38", "2", "0.97", "4.8"}, false, ""},
		{"three cells kept", []string{"T-1001", "A. Rivera", "PACIFIC"}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := IsFooterRow(tt.cells)
			if got != tt.footer {
				t.Fatalf("IsFooterRow(%v) = %v, want %v", tt.cells, got, tt.footer)
			}
			if rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", rule, tt.wantRule)
			}
		})
	}
}
