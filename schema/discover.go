package schema

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode"
)

// ============================================================================
// DISCOVERY: Heuristic column profiling
// ============================================================================
// Inspects raw CSV and infers a Kind per column. The loader never relies on
// this: it exists to draft a declaration for a new file and to explain why a
// file does not fit a declared schema.
//
// Classification per column:
//   1. Collect non-null values, unique count, null count
//   2. >= 80% numeric → integer / float / year (header mentions "year")
//   3. >= 80% date-like → year
//   4. otherwise category
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize int // Max rows to inspect (0 = all). Default: 1000
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{SampleSize: 1000}
}

// ColumnProfile is the inferred shape of one CSV column.
type ColumnProfile struct {
	Header          string   `json:"header"`
	Key             string   `json:"key"`
	Kind            Kind     `json:"kind"`
	Rows            int      `json:"rows"`
	Nulls           int      `json:"nulls"`
	Unique          int      `json:"unique"`
	Samples         []string `json:"samples"`
	CardinalityHint string   `json:"cardinalityHint"` // "low", "medium", "high"
}

// DiscoverFromCSV profiles every column of a CSV document.
func DiscoverFromCSV(data []byte, opts ...DiscoverOptions) ([]ColumnProfile, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("CSV has no columns")
	}

	limit := opt.SampleSize
	if limit <= 0 {
		limit = math.MaxInt
	}

	var rows [][]string
	for len(rows) < limit {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	profiles := make([]ColumnProfile, len(headers))
	for i, header := range headers {
		profiles[i] = analyzeColumn(strings.TrimSpace(header), i, rows)
	}
	return profiles, nil
}

func analyzeColumn(header string, index int, rows [][]string) ColumnProfile {
	p := ColumnProfile{
		Header: header,
		Key:    toSnakeCase(header),
		Rows:   len(rows),
		Kind:   KindCategory,
	}

	values := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)
	for _, row := range rows {
		if index >= len(row) || IsMissing(row[index]) {
			p.Nulls++
			continue
		}
		val := strings.TrimSpace(row[index])
		values = append(values, val)
		uniqueSet[val] = true
	}
	p.Unique = len(uniqueSet)
	p.Samples = collectSamples(uniqueSet, 10)

	switch {
	case p.Unique <= 10:
		p.CardinalityHint = "low"
	case p.Unique <= 100:
		p.CardinalityHint = "medium"
	default:
		p.CardinalityHint = "high"
	}

	if len(values) > 0 {
		p.Kind = detectKind(p.Key, values)
	}
	return p
}

// detectKind requires 80%+ of non-null values to match for a non-category kind.
func detectKind(key string, values []string) Kind {
	numCount, integralCount, yearCount, dateCount := 0, 0, 0, 0
	for _, v := range values {
		f, ok := ParseNumber(v)
		if !ok {
			f, ok = ParseInteger(v)
		}
		if ok {
			numCount++
			if f == math.Trunc(f) {
				integralCount++
				if f >= 1000 && f <= 9999 {
					yearCount++
				}
			}
			continue
		}
		if _, ok := ParseYear(v); ok {
			dateCount++
		}
	}

	threshold := int(float64(len(values)) * 0.8)
	if threshold == 0 {
		threshold = 1
	}

	switch {
	case numCount >= threshold:
		if integralCount < numCount {
			return KindFloat
		}
		if yearCount == numCount && strings.Contains(key, "year") {
			return KindYear
		}
		return KindInteger
	case dateCount >= threshold:
		return KindYear
	}
	return KindCategory
}

// ============================================================================
// DECLARATION CHECKS
// ============================================================================

// Mismatch explains why a profiled file does not fit a declared column.
type Mismatch struct {
	Column   string `json:"column"`
	Declared Kind   `json:"declared"`
	Inferred Kind   `json:"inferred,omitempty"`
	Reason   string `json:"reason"`
}

// Check compares a declaration with discovered profiles.
// A declared column is satisfied by any inferred kind it can parse: float
// accepts integer and year, integer accepts year, category accepts anything.
func Check(cfg Config, profiles []ColumnProfile) []Mismatch {
	byHeader := make(map[string]ColumnProfile, len(profiles))
	for _, p := range profiles {
		byHeader[p.Header] = p
	}

	var out []Mismatch
	for _, col := range cfg.Columns {
		p, ok := byHeader[col.Header]
		if !ok {
			out = append(out, Mismatch{Column: col.Header, Declared: col.Kind, Reason: "column missing from file"})
			continue
		}
		if !compatible(col.Kind, p.Kind) {
			out = append(out, Mismatch{
				Column:   col.Header,
				Declared: col.Kind,
				Inferred: p.Kind,
				Reason:   fmt.Sprintf("values look like %s", p.Kind),
			})
		}
	}
	return out
}

func compatible(declared, inferred Kind) bool {
	switch declared {
	case KindCategory:
		return true
	case KindFloat:
		return inferred.IsNumeric()
	case KindInteger:
		return inferred == KindInteger || inferred == KindYear
	case KindYear:
		return inferred == KindYear || inferred == KindInteger
	}
	return false
}

// Draft turns profiles into a declaration that can be edited and reused.
func Draft(name string, profiles []ColumnProfile) Config {
	cfg := Config{Name: name}
	for _, p := range profiles {
		cfg.Columns = append(cfg.Columns, Column{
			Header:      p.Header,
			Key:         p.Key,
			DisplayName: toDisplayName(p.Header),
			Kind:        p.Kind,
		})
	}
	return cfg
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" → "column_name".
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) && i > 0 {
			prev := rune(s[i-1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}

	s = result.String()
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	s = strings.Trim(s, "_")
	return s
}

// toDisplayName cleans a header for human display.
// "financial_loss" → "Financial Loss", "Country" → "Country"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples values in sorted order.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
