package ingestion

import (
	"strings"

	"github.com/TedCarlson/teamoptix-ops-sub000/api/constants"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/config"
)

// ExpectedHeaders is the ordered header list of the vendor's scorecard
// export. Worksheet selection during commit requires an exact ordered match;
// preview additionally reports the looser required-subset coverage.
var ExpectedHeaders = []string{
	"Tech ID",
	"Tech Name",
	"Region",
	"Jobs Assigned",
	"Jobs Completed",
	"Repeat Visits",
	"QC Pass Rate",
	"Customer Rating",
}

// techIDHeader is the row-level natural key column.
const techIDHeader = "Tech ID"

const fingerprintDelim = "|"

// normalizeCell trims, removes non-breaking spaces and collapses whitespace
func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, constants.NBSP, " ")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeHeader lowercases on top of cell normalization; header matching
// is whitespace- and case-insensitive but order-sensitive.
func normalizeHeader(s string) string {
	return strings.ToLower(normalizeCell(s))
}

// HeaderFingerprint joins the normalized headers with a delimiter. Equality
// is a full string compare: one extra, missing or reordered column means no
// match.
func HeaderFingerprint(headers []string) string {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, normalizeHeader(h))
	}
	return strings.Join(norm, fingerprintDelim)
}

// ExpectedFingerprint is the fingerprint uploads are matched against.
func ExpectedFingerprint() string {
	return HeaderFingerprint(ExpectedHeaders)
}

// WorksheetMatch is the outcome of scanning a workbook for the expected
// header row.
type WorksheetMatch struct {
	Matched   bool
	Sheet     string
	HeaderRow int      // index of the matched header row within the sheet
	Headers   []string // actual headers found (diagnostic on mismatch)
}

// MatchWorksheet returns the first worksheet whose header row fingerprint
// equals the expected one. On no match it carries the first worksheet's
// header candidate for diagnostics.
func MatchWorksheet(sheets []Worksheet) WorksheetMatch {
	expected := ExpectedFingerprint()
	for _, sh := range sheets {
		for i, row := range sh.Rows {
			if i >= config.HeaderScanRows {
				break
			}
			if HeaderFingerprint(row) == expected {
				return WorksheetMatch{Matched: true, Sheet: sh.Name, HeaderRow: i, Headers: row}
			}
		}
	}
	var fallback []string
	if len(sheets) > 0 {
		fallback = headerCandidate(sheets[0])
	}
	return WorksheetMatch{Matched: false, Headers: fallback}
}

// headerCandidate picks the sheet's most plausible header row: the first row
// with at least two non-empty cells.
func headerCandidate(sh Worksheet) []string {
	for i, row := range sh.Rows {
		if i >= config.HeaderScanRows {
			break
		}
		if nonEmptyCount(row) >= 2 {
			return row
		}
	}
	return nil
}

// CoversRequiredHeaders is the looser preview check: every expected header
// present somewhere in the row, extras tolerated, order ignored. It never
// gates commit.
func CoversRequiredHeaders(headers []string) bool {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		seen[normalizeHeader(h)] = true
	}
	for _, want := range ExpectedHeaders {
		if !seen[normalizeHeader(want)] {
			return false
		}
	}
	return true
}

func nonEmptyCount(row []string) int {
	n := 0
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			n++
		}
	}
	return n
}
