package ingestion

import "strings"

// footerMarkers are phrases that mark summary/total rows in vendor exports.
// Checked against the row's joined, whitespace-normalized, lowercased text.
var footerMarkers = []string{
	"grand total",
	"subtotal",
	"summary",
	"end of report",
	"total",
	"page ",
}

// Footer rules reported back to the caller.
const (
	FooterRuleEmpty  = "empty"
	FooterRuleSparse = "sparse"
)

// IsFooterRow classifies one extracted row as a footer/total row to be
// excluded. It returns the rule or marker phrase that fired so the decision
// is debuggable. Known false-positive risk: a legitimately sparse data row
// (two or fewer non-empty cells) is treated as a section footer.
func IsFooterRow(cells []string) (bool, string) {
	nonEmpty := make([]string, 0, len(cells))
	for _, c := range cells {
		if v := normalizeCell(c); v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	if len(nonEmpty) == 0 {
		return true, FooterRuleEmpty
	}
	joined := strings.ToLower(strings.Join(nonEmpty, " "))
	for _, marker := range footerMarkers {
		if strings.Contains(joined, marker) {
			return true, marker
		}
	}
	if len(nonEmpty) <= 2 {
		return true, FooterRuleSparse
	}
	return false, ""
}
