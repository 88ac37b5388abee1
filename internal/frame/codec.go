package frame

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// codecVersion identifies the on-disk columnar document layout.
const codecVersion = 1

// document is the persisted columnar form of a Frame: the index as
// RFC3339 UTC strings and each column as an array of values aligned
// with the index, with null marking holes. Column order is preserved
// by storing columns as an array rather than an object.
type document struct {
	Version   int         `json:"version"`
	UpdatedAt string      `json:"updated_at"`
	Index     []string    `json:"index"`
	Columns   []columnDoc `json:"columns"`
}

type columnDoc struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// Marshal encodes the frame into its columnar document form.
func Marshal(f *Frame) ([]byte, error) {
	doc := document{
		Version:   codecVersion,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Index:     make([]string, f.Len()),
		Columns:   make([]columnDoc, 0, len(f.Columns())),
	}
	for i, t := range f.index {
		doc.Index[i] = t.UTC().Format(time.RFC3339)
	}
	for _, c := range f.cols {
		col := columnDoc{Name: c, Values: make([]*float64, f.Len())}
		for i, v := range f.data[c] {
			if !math.IsNaN(v) {
				v := v
				col.Values[i] = &v
			}
		}
		doc.Columns = append(doc.Columns, col)
	}
	return json.Marshal(doc)
}

// Unmarshal decodes a columnar document back into a Frame. It rejects
// malformed documents, unknown versions, misaligned columns, and
// non-increasing indices, so a corrupt cache file surfaces as an error
// rather than a silently wrong frame.
func Unmarshal(data []byte) (*Frame, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if doc.Version != codecVersion {
		return nil, fmt.Errorf("decode frame: unsupported version %d", doc.Version)
	}
	f := &Frame{
		index: make([]time.Time, len(doc.Index)),
		data:  make(map[string][]float64, len(doc.Columns)),
	}
	var prev time.Time
	for i, s := range doc.Index {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("decode frame index[%d]: %w", i, err)
		}
		t = t.UTC()
		if i > 0 && !t.After(prev) {
			return nil, fmt.Errorf("decode frame: index not strictly increasing at %d", i)
		}
		f.index[i] = t
		prev = t
	}
	for _, col := range doc.Columns {
		if col.Name == "" {
			return nil, fmt.Errorf("decode frame: unnamed column")
		}
		if _, dup := f.data[col.Name]; dup {
			return nil, fmt.Errorf("decode frame: duplicate column %q", col.Name)
		}
		if len(col.Values) != len(f.index) {
			return nil, fmt.Errorf("decode frame: column %q has %d values for %d rows", col.Name, len(col.Values), len(f.index))
		}
		vals := make([]float64, len(col.Values))
		for i, v := range col.Values {
			if v == nil {
				vals[i] = math.NaN()
			} else {
				vals[i] = *v
			}
		}
		f.cols = append(f.cols, col.Name)
		f.data[col.Name] = vals
	}
	if len(f.cols) == 0 || len(f.index) == 0 {
		return New(), nil
	}
	return f, nil
}
