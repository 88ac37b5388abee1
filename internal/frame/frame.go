// Package frame implements the wide-format time-series table used by
// the cache and the item handles.
//
// A Frame has a strictly increasing index of UTC timestamps and one or
// more named float64 columns. Column names are geo names (e.g.
// "España", "Portugal"), or the literal "value" for series without a
// geographic dimension. Absent observations are NaN holes; a hole in
// column A says nothing about column B at the same timestamp, which is
// what makes per-column gap detection possible.
package frame

import (
	"math"
	"sort"
	"time"
)

// ValueColumn is the column name used for series without a geo dimension.
const ValueColumn = "value"

// Frame is a wide-format table: one timestamp index, N value columns.
// The zero value is an empty frame.
type Frame struct {
	index []time.Time
	cols  []string
	data  map[string][]float64
}

// New returns an empty frame.
func New() *Frame {
	return &Frame{data: make(map[string][]float64)}
}

// IsEmpty reports whether the frame has no rows or no columns.
func (f *Frame) IsEmpty() bool {
	return f == nil || len(f.index) == 0 || len(f.cols) == 0
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.index)
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.data[name]
	return ok
}

// Index returns the timestamp index.
func (f *Frame) Index() []time.Time {
	if f == nil {
		return nil
	}
	out := make([]time.Time, len(f.index))
	copy(out, f.index)
	return out
}

// At returns the cell at row i, column name. NaN means hole.
func (f *Frame) At(i int, name string) float64 {
	vals, ok := f.data[name]
	if !ok || i < 0 || i >= len(vals) {
		return math.NaN()
	}
	return vals[i]
}

// Span returns the first and last index timestamps. ok is false for an
// empty frame.
func (f *Frame) Span() (start, end time.Time, ok bool) {
	if f.IsEmpty() {
		return time.Time{}, time.Time{}, false
	}
	return f.index[0], f.index[len(f.index)-1], true
}

// CoverageSpan returns the span of rows where every listed column has a
// value. With no columns it behaves like Span. ok is false when no row
// qualifies.
func (f *Frame) CoverageSpan(columns []string) (start, end time.Time, ok bool) {
	if f.IsEmpty() {
		return time.Time{}, time.Time{}, false
	}
	if len(columns) == 0 {
		return f.Span()
	}
	for _, c := range columns {
		if !f.HasColumn(c) {
			return time.Time{}, time.Time{}, false
		}
	}
	first, last := -1, -1
	for i := range f.index {
		covered := true
		for _, c := range columns {
			if math.IsNaN(f.data[c][i]) {
				covered = false
				break
			}
		}
		if covered {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return time.Time{}, time.Time{}, false
	}
	return f.index[first], f.index[last], true
}

// Slice returns the sub-frame with index within [start, end] inclusive.
// Bounds are compared as instants; callers expand date-only upper
// bounds with core.EndOfDay before slicing.
func (f *Frame) Slice(start, end time.Time) *Frame {
	if f.IsEmpty() {
		return New()
	}
	lo := sort.Search(len(f.index), func(i int) bool { return !f.index[i].Before(start) })
	hi := sort.Search(len(f.index), func(i int) bool { return f.index[i].After(end) })
	if lo >= hi {
		return New()
	}
	out := &Frame{
		index: append([]time.Time(nil), f.index[lo:hi]...),
		cols:  append([]string(nil), f.cols...),
		data:  make(map[string][]float64, len(f.cols)),
	}
	for _, c := range f.cols {
		out.data[c] = append([]float64(nil), f.data[c][lo:hi]...)
	}
	return out
}

// Select returns a frame restricted to the requested columns, in the
// requested order. Columns that do not exist are dropped; if none
// exist, the result is empty.
func (f *Frame) Select(columns []string) *Frame {
	if f.IsEmpty() {
		return New()
	}
	out := &Frame{index: append([]time.Time(nil), f.index...), data: make(map[string][]float64)}
	for _, c := range columns {
		if vals, ok := f.data[c]; ok {
			out.cols = append(out.cols, c)
			out.data[c] = append([]float64(nil), vals...)
		}
	}
	if len(out.cols) == 0 {
		return New()
	}
	return out
}

// Rename renames a column in place. A no-op when the column is absent.
func (f *Frame) Rename(old, new string) {
	vals, ok := f.data[old]
	if !ok {
		return
	}
	delete(f.data, old)
	f.data[new] = vals
	for i, c := range f.cols {
		if c == old {
			f.cols[i] = new
		}
	}
}

// Merge combines two frames over the union of their indices and
// columns. Where both hold a value for the same cell, newer wins.
// Either argument may be nil or empty.
func Merge(older, newer *Frame) *Frame {
	if older.IsEmpty() {
		return newer.clone()
	}
	if newer.IsEmpty() {
		return older.clone()
	}
	// The builder keeps the first value written per cell, so the newer
	// frame goes in first to take precedence on overlap.
	b := NewBuilder()
	for i, t := range newer.index {
		for _, c := range newer.cols {
			if v := newer.data[c][i]; !math.IsNaN(v) {
				b.Set(t, c, v)
			}
		}
	}
	for i, t := range older.index {
		for _, c := range older.cols {
			if v := older.data[c][i]; !math.IsNaN(v) {
				b.Set(t, c, v)
			}
		}
	}
	// Column order: older's columns first, then newer's additions.
	order := append([]string(nil), older.cols...)
	for _, c := range newer.cols {
		if !older.HasColumn(c) {
			order = append(order, c)
		}
	}
	return b.build(order)
}

func (f *Frame) clone() *Frame {
	if f.IsEmpty() {
		return New()
	}
	out := &Frame{
		index: append([]time.Time(nil), f.index...),
		cols:  append([]string(nil), f.cols...),
		data:  make(map[string][]float64, len(f.cols)),
	}
	for _, c := range f.cols {
		out.data[c] = append([]float64(nil), f.data[c]...)
	}
	return out
}

// InZone returns a copy whose index timestamps are presented in loc.
// The instants are unchanged; this only affects formatting.
func (f *Frame) InZone(loc *time.Location) *Frame {
	out := f.clone()
	for i, t := range out.index {
		out.index[i] = t.In(loc)
	}
	return out
}

// Builder accumulates (timestamp, column, value) cells and produces a
// sorted, deduplicated frame. The first value written to a cell wins;
// duplicate observations within one response are dropped.
type Builder struct {
	cells map[int64]map[string]float64
	order []string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{cells: make(map[int64]map[string]float64)}
}

// Set records a cell unless it is already present.
func (b *Builder) Set(t time.Time, column string, value float64) {
	key := t.UTC().Unix()
	row, ok := b.cells[key]
	if !ok {
		row = make(map[string]float64)
		b.cells[key] = row
	}
	if _, exists := row[column]; exists {
		return
	}
	row[column] = value
	for _, c := range b.order {
		if c == column {
			return
		}
	}
	b.order = append(b.order, column)
}

// Build produces the frame, index sorted ascending, columns in first-seen order.
func (b *Builder) Build() *Frame {
	return b.build(b.order)
}

func (b *Builder) build(columns []string) *Frame {
	if len(b.cells) == 0 || len(columns) == 0 {
		return New()
	}
	keys := make([]int64, 0, len(b.cells))
	for k := range b.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	f := &Frame{
		index: make([]time.Time, len(keys)),
		cols:  append([]string(nil), columns...),
		data:  make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		vals := make([]float64, len(keys))
		for i := range vals {
			vals[i] = math.NaN()
		}
		f.data[c] = vals
	}
	for i, k := range keys {
		f.index[i] = time.Unix(k, 0).UTC()
		for c, v := range b.cells[k] {
			if _, ok := f.data[c]; ok {
				f.data[c][i] = v
			}
		}
	}
	return f
}
