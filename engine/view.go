package engine

import "slices"

// ============================================================================
// RECORD VIEW: Zero-Copy Data Access Interface
// ============================================================================
// The engine never owns consumer data. It reads through this interface.
//
// Implementations:
//   store.Store  columnar incident store (the production source)
//   SliceView    wraps []Record (tests, ad-hoc data)
//   SubView      filtered subset (indices into parent, zero-copy)
// ============================================================================

// RecordView provides indexed access to a dataset.
// The engine calls Dimension/Measure in tight loops: keep implementations fast.
//
// DimensionKeys lists every column readable as a string (category columns and,
// for stores that format them, numeric columns too). MeasureKeys lists the
// numeric columns usable with range filters and numeric aggregates.
type RecordView interface {
	Len() int
	Dimension(index int, key string) string
	Measure(index int, key string) float64
	DimensionKeys() []string
	MeasureKeys() []string
}

// IsEmpty reports whether a view holds zero records.
func IsEmpty(view RecordView) bool {
	return view == nil || view.Len() == 0
}

func hasDimension(view RecordView, key string) bool {
	return slices.Contains(view.DimensionKeys(), key)
}

func hasMeasure(view RecordView, key string) bool {
	return slices.Contains(view.MeasureKeys(), key)
}

// ============================================================================
// SLICE VIEW: wraps []Record
// ============================================================================

// SliceView wraps a []Record slice as a RecordView.
type SliceView struct {
	records []Record
	dimKeys []string
	mesKeys []string
}

// NewSliceView creates a RecordView from a []Record slice.
// Keys are collected in first-seen order across all records.
func NewSliceView(records []Record) RecordView {
	v := &SliceView{records: records}
	v.cacheKeys()
	return v
}

func (v *SliceView) cacheKeys() {
	dimSeen := make(map[string]bool)
	mesSeen := make(map[string]bool)
	for _, r := range v.records {
		for _, k := range sortedKeys(r.Dimensions) {
			if !dimSeen[k] {
				dimSeen[k] = true
				v.dimKeys = append(v.dimKeys, k)
			}
		}
		for _, k := range sortedKeys(r.Measures) {
			if !mesSeen[k] {
				mesSeen[k] = true
				v.mesKeys = append(v.mesKeys, k)
			}
		}
	}
}

func (v *SliceView) Len() int { return len(v.records) }

func (v *SliceView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.records) {
		return ""
	}
	return v.records[i].Dimensions[key]
}

func (v *SliceView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.records) {
		return 0
	}
	return v.records[i].Measures[key]
}

func (v *SliceView) DimensionKeys() []string { return v.dimKeys }
func (v *SliceView) MeasureKeys() []string   { return v.mesKeys }

// ============================================================================
// SUB VIEW: filtered subset (zero-copy)
// ============================================================================

// SubView is a filtered subset of a parent RecordView.
// Holds ascending indices into the parent: no data copy, order preserved.
type SubView struct {
	parent  RecordView
	indices []int
}

func newSubView(parent RecordView, indices []int) RecordView {
	return &SubView{parent: parent, indices: indices}
}

func (v *SubView) Len() int { return len(v.indices) }

func (v *SubView) Dimension(i int, key string) string {
	if i < 0 || i >= len(v.indices) {
		return ""
	}
	return v.parent.Dimension(v.indices[i], key)
}

func (v *SubView) Measure(i int, key string) float64 {
	if i < 0 || i >= len(v.indices) {
		return 0
	}
	return v.parent.Measure(v.indices[i], key)
}

func (v *SubView) DimensionKeys() []string { return v.parent.DimensionKeys() }
func (v *SubView) MeasureKeys() []string   { return v.parent.MeasureKeys() }

// Index maps position i of the subset to its position in the parent.
func (v *SubView) Index(i int) int { return v.indices[i] }
