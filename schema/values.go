package schema

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// VALUE PARSING: Kind-directed cell parsing shared by loader and discovery
// ============================================================================

var (
	// ErrMissing marks an empty or null-token cell.
	ErrMissing = errors.New("missing value")
	// ErrMismatch marks a cell that does not parse as its declared kind.
	ErrMismatch = errors.New("value does not match column kind")
)

var nullTokens = map[string]bool{
	"": true, "null": true, "NULL": true, "Null": true,
	"NaN": true, "nan": true, "N/A": true, "n/a": true, "NA": true, "None": true,
}

// IsMissing reports whether a raw cell counts as a null.
func IsMissing(raw string) bool {
	return nullTokens[strings.TrimSpace(raw)]
}

// dateFormats are the layouts a year column may carry.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseNumber parses a plain numeric cell. Separators are not accepted;
// see ParseInteger for grouped thousands.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// groupedThousands matches integers written with comma grouping, e.g. 1,234,567.
var groupedThousands = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.0+)?$`)

// ParseInteger parses an integral cell: 1234, 1234.0 or 1,234.
// Commas are only accepted as well-formed thousands grouping.
func ParseInteger(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if groupedThousands.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, ok := ParseNumber(s)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return f, true
}

// ParseYear reduces an integer year or a date-like cell to its year.
func ParseYear(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if f, ok := ParseNumber(s); ok {
		if f != math.Trunc(f) || f < 1 || f > 9999 {
			return 0, false
		}
		return int(f), true
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), true
		}
	}
	return 0, false
}

// ParseValue parses a numeric cell according to kind.
// Category columns are not parsed; calling ParseValue with KindCategory is a mismatch.
func ParseValue(kind Kind, raw string) (float64, error) {
	if IsMissing(raw) {
		return 0, ErrMissing
	}
	switch kind {
	case KindYear:
		if y, ok := ParseYear(raw); ok {
			return float64(y), nil
		}
	case KindInteger:
		if f, ok := ParseInteger(raw); ok {
			return f, nil
		}
	case KindFloat:
		if f, ok := ParseNumber(raw); ok {
			return f, nil
		}
	}
	return 0, ErrMismatch
}
