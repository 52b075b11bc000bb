package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// missingTokens are cell contents read as "no value".
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-NaN":     {},
	"-nan":     {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

func isMissingToken(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"02/01/2006",
	"02.01.2006",
	"20060102",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan-2006",
	"2006-01",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTime tries the supported layouts in order. Month-first wins over
// day-first when both would parse.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber accepts plain decimal or scientific notation. Infinities and
// hex floats are rejected.
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" || strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
