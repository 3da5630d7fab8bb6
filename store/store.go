// Package store loads the incident CSV into an immutable columnar Record Store.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spektr-org/threatlens/engine"
	"github.com/spektr-org/threatlens/schema"
)

// ============================================================================
// RECORD STORE: Columnar, immutable after load
// ============================================================================
// One []string per category column and one []float64 per numeric column.
// Implements engine.RecordView so filters and aggregates read it in place.
// Every kept row has a value in every declared column.
// ============================================================================

// Store is the loaded dataset.
type Store struct {
	source     string
	schema     schema.Config
	rows       int
	categories map[string][]string
	numbers    map[string][]float64
	dimKeys    []string
	mesKeys    []string
	report     LoadReport
}

// LoadReport summarizes what a load kept and discarded.
type LoadReport struct {
	Source    string         `json:"source" yaml:"source"`
	Rows      int            `json:"rows" yaml:"rows"`           // data rows read
	Kept      int            `json:"kept" yaml:"kept"`           // rows in the store
	Dropped   int            `json:"dropped" yaml:"dropped"`     // rows discarded for a null, unparseable or negative cell
	Malformed int            `json:"malformed" yaml:"malformed"` // rows the CSV reader could not split
	DroppedBy map[string]int `json:"droppedBy" yaml:"droppedBy"` // column key → rows dropped because of it (first offending column)
}

// Load reads and parses the CSV file at path.
func Load(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		err = &DataLoadError{Source: path, Reason: "unreadable source", Err: err}
		applyOptions(opts).Metrics.ObserveLoad(err)
		return nil, err
	}
	defer f.Close()

	return Read(f, path, opts...)
}

// Read parses CSV from r. source names the input in errors and reports.
func Read(r io.Reader, source string, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	log := cfg.Logger.Named("store")

	s, err := read(r, source, cfg)
	cfg.Metrics.ObserveLoad(err)
	if err != nil {
		log.Error("load failed", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	for col, n := range s.report.DroppedBy {
		cfg.Metrics.ObserveDropped(col, n)
	}
	log.Info("store loaded",
		zap.String("source", source),
		zap.Int("rows", s.report.Rows),
		zap.Int("kept", s.report.Kept),
		zap.Int("dropped", s.report.Dropped),
		zap.Int("malformed", s.report.Malformed),
	)
	return s, nil
}

func read(r io.Reader, source string, cfg *config) (*Store, error) {
	if err := cfg.Schema.Validate(); err != nil {
		return nil, &DataLoadError{Source: source, Reason: "invalid schema", Err: err}
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &DataLoadError{Source: source, Reason: "empty source"}
	}
	if err != nil {
		return nil, &DataLoadError{Source: source, Reason: "malformed header", Err: err}
	}

	index, err := resolveColumns(cfg.Schema, headers)
	if err != nil {
		return nil, &DataLoadError{Source: source, Reason: "missing required columns", Err: err}
	}

	s := newStore(source, cfg.Schema)
	row := 1 // header is line 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		s.report.Rows++
		if err != nil {
			s.report.Malformed++
			s.report.Dropped++
			continue
		}

		col, err := s.appendRow(rec, index)
		if err == nil {
			continue
		}
		if cfg.Strict && errors.Is(err, schema.ErrMismatch) {
			return nil, &DataLoadError{
				Source: source,
				Reason: fmt.Sprintf("row %d column %q", row, col.Header),
				Err:    err,
			}
		}
		s.report.Dropped++
		s.report.DroppedBy[col.Key]++
	}

	s.report.Kept = s.rows
	return s, nil
}

// resolveColumns maps each declared column to its CSV field position.
// Headers are matched after trimming; extra CSV columns are ignored.
func resolveColumns(cfg schema.Config, headers []string) ([]int, error) {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	index := make([]int, len(cfg.Columns))
	var missing []string
	for i, col := range cfg.Columns {
		p, ok := pos[col.Header]
		if !ok {
			missing = append(missing, col.Header)
			continue
		}
		index[i] = p
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(missing, ", "))
	}
	return index, nil
}

func newStore(source string, cfg schema.Config) *Store {
	s := &Store{
		source:     source,
		schema:     cfg,
		categories: make(map[string][]string),
		numbers:    make(map[string][]float64),
		report:     LoadReport{Source: source, DroppedBy: make(map[string]int)},
	}
	for _, col := range cfg.Columns {
		s.dimKeys = append(s.dimKeys, col.Key)
		if col.Kind.IsNumeric() {
			s.mesKeys = append(s.mesKeys, col.Key)
			s.numbers[col.Key] = nil
		} else {
			s.categories[col.Key] = nil
		}
	}
	return s
}

// appendRow parses one CSV record. The row is kept only if every declared
// column parses; otherwise the first offending column is returned.
func (s *Store) appendRow(rec []string, index []int) (schema.Column, error) {
	texts := make([]string, len(s.schema.Columns))
	values := make([]float64, len(s.schema.Columns))

	for i, col := range s.schema.Columns {
		raw := ""
		if index[i] < len(rec) {
			raw = rec[index[i]]
		}

		if !col.Kind.IsNumeric() {
			if schema.IsMissing(raw) {
				return col, schema.ErrMissing
			}
			texts[i] = strings.TrimSpace(raw)
			continue
		}

		v, err := schema.ParseValue(col.Kind, raw)
		if err != nil {
			return col, fmt.Errorf("%q as %s: %w", strings.TrimSpace(raw), col.Kind, err)
		}
		if col.NonNegative && v < 0 {
			return col, fmt.Errorf("%g below zero: %w", v, errNegative)
		}
		values[i] = v
	}

	for i, col := range s.schema.Columns {
		if col.Kind.IsNumeric() {
			s.numbers[col.Key] = append(s.numbers[col.Key], values[i])
		} else {
			s.categories[col.Key] = append(s.categories[col.Key], texts[i])
		}
	}
	s.rows++
	return schema.Column{}, nil
}

var errNegative = errors.New("negative value")

// ============================================================================
// RECORD VIEW
// ============================================================================

func (s *Store) Len() int { return s.rows }

// Dimension returns the string value of any column. Numeric columns are
// formatted without trailing zeros, so a year reads as "2020".
func (s *Store) Dimension(i int, key string) string {
	if i < 0 || i >= s.rows {
		return ""
	}
	if col, ok := s.categories[key]; ok {
		return col[i]
	}
	if col, ok := s.numbers[key]; ok {
		return strconv.FormatFloat(col[i], 'f', -1, 64)
	}
	return ""
}

func (s *Store) Measure(i int, key string) float64 {
	if i < 0 || i >= s.rows {
		return 0
	}
	if col, ok := s.numbers[key]; ok {
		return col[i]
	}
	return 0
}

func (s *Store) DimensionKeys() []string { return s.dimKeys }
func (s *Store) MeasureKeys() []string   { return s.mesKeys }

// ============================================================================
// ACCESSORS
// ============================================================================

func (s *Store) Source() string        { return s.source }
func (s *Store) Schema() schema.Config { return s.schema }
func (s *Store) Report() LoadReport    { return s.report }

// Shape returns (rows, columns) of the store.
func (s *Store) Shape() (rows, columns int) {
	return s.rows, len(s.schema.Columns)
}

// DistinctValues returns the distinct values of a column in first-seen order.
// Numeric columns are returned in their Dimension formatting.
func (s *Store) DistinctValues(column string) ([]string, error) {
	if _, ok := s.schema.Column(column); !ok {
		return nil, fmt.Errorf("distinct values of %q: %w", column, engine.ErrUnknownColumn)
	}
	values := engine.UniqueValues(s, column)
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// Bounds returns the minimum and maximum of a numeric column.
// An empty store has no bounds and returns engine.ErrEmptyView.
func (s *Store) Bounds(column string) (lo, hi float64, err error) {
	values, ok := s.numbers[column]
	if !ok {
		return 0, 0, fmt.Errorf("bounds of %q: %w", column, engine.ErrUnknownColumn)
	}
	if len(values) == 0 {
		return 0, 0, engine.ErrEmptyView
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, nil
}
