package ingestion

import (
	"path/filepath"
	"strings"
	"unicode"
)

// RegionAllowList is the fixed set of organizational region names. List
// order is match priority: when two names could both match, the earlier one
// wins.
var RegionAllowList = []string{
	"NORTHEAST",
	"MID ATLANTIC",
	"SOUTHEAST",
	"GREAT LAKES",
	"CENTRAL",
	"SOUTH CENTRAL",
	"MOUNTAIN",
	"PACIFIC",
	"NATIONAL",
}

// normalizeRegionText uppercases, strips a trailing file extension, maps
// every run of non-alphanumeric characters to a single space and trims.
func normalizeRegionText(s string) string {
	if ext := filepath.Ext(s); ext != "" && len(ext) <= 6 {
		s = strings.TrimSuffix(s, ext)
	}
	s = strings.ToUpper(s)
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// DetectRegion matches free text (a title row, a filename) against the
// region allow-list and returns the region plus the matched name so the
// decision stays debuggable. This is a heuristic: a miss is a warning for
// the validation gate, never an error.
func DetectRegion(text string) (region string, matched string, ok bool) {
	norm := normalizeRegionText(text)
	if norm == "" {
		return "", "", false
	}
	for _, name := range RegionAllowList {
		if strings.Contains(norm, name) {
			return name, name, true
		}
	}
	return "", "", false
}
