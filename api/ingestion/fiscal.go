package ingestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/TedCarlson/teamoptix-ops-sub000/api/constants"
	"github.com/TedCarlson/teamoptix-ops-sub000/internal/config"
)

// FiscalMonthAnchor maps a reference calendar date to its fiscal-period
// anchor. The vendor closes periods on the 21st: day-of-month <= 21 anchors
// to the 21st of the same month, day 22 onward to the 21st of the following
// month. Only UTC is considered.
func FiscalMonthAnchor(ref time.Time) time.Time {
	ref = ref.UTC()
	y, m, d := ref.Date()
	if d <= config.FiscalCutoffDay {
		return time.Date(y, m, config.FiscalCutoffDay, 0, 0, 0, 0, time.UTC)
	}
	// time.Date normalizes month 13 into January of the next year.
	return time.Date(y, m+1, config.FiscalCutoffDay, 0, 0, 0, 0, time.UTC)
}

// ParseFiscalRef parses an optional fiscal reference date. An empty value
// defaults to today (UTC); an unparsable value is an input error.
func ParseFiscalRef(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now().UTC(), nil
	}
	layouts := []string{constants.DateFormat, constants.DateTimeFormat, time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse fiscal reference date: %s", s)
}
