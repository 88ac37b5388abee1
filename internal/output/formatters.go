// Package output renders frames and catalogue listings as tables,
// CSV, or JSON.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/colthorp/esios-cli-go/internal/cache"
	"github.com/colthorp/esios-cli-go/internal/frame"
)

// Supported output formats. FormatColJSON emits the columnar document
// the cache stores, for round-tripping frames between tools.
const (
	FormatTable   = "table"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatColJSON = "coljson"
)

const timestampLayout = "2006-01-02 15:04:05"

// WriteFrame renders a frame in the requested format. Holes render as
// empty cells (null in JSON).
func WriteFrame(w io.Writer, f *frame.Frame, format string) error {
	switch format {
	case FormatTable, "":
		return frameTable(w, f)
	case FormatCSV:
		return frameCSV(w, f)
	case FormatJSON:
		return frameJSON(w, f)
	case FormatColJSON:
		data, err := frame.Marshal(f)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

func frameTable(w io.Writer, f *frame.Frame) error {
	if f.IsEmpty() {
		_, err := fmt.Fprintln(w, "no data")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "datetime")
	for _, c := range f.Columns() {
		fmt.Fprintf(tw, "\t%s", c)
	}
	fmt.Fprintln(tw)
	for i, t := range f.Index() {
		fmt.Fprint(tw, t.Format(timestampLayout))
		for _, c := range f.Columns() {
			fmt.Fprintf(tw, "\t%s", formatCell(f.At(i, c)))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func frameCSV(w io.Writer, f *frame.Frame) error {
	cw := csv.NewWriter(w)
	cols := f.Columns()
	header := append([]string{"datetime"}, cols...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, t := range f.Index() {
		row := make([]string, 0, len(cols)+1)
		row = append(row, t.Format(timestampLayout))
		for _, c := range cols {
			row = append(row, formatCell(f.At(i, c)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func frameJSON(w io.Writer, f *frame.Frame) error {
	cols := f.Columns()
	records := make([]map[string]interface{}, 0, f.Len())
	for i, t := range f.Index() {
		rec := map[string]interface{}{"datetime": t.Format(timestampLayout)}
		for _, c := range cols {
			if v := f.At(i, c); math.IsNaN(v) {
				rec[c] = nil
			} else {
				rec[c] = v
			}
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCatalog renders a catalogue listing.
func WriteCatalog(w io.Writer, items []cache.CatalogItem, format string) error {
	switch format {
	case FormatTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "id\tshort_name\tname")
		for _, item := range items {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", item.ID, item.ShortName, item.Name)
		}
		return tw.Flush()
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"id", "short_name", "name"}); err != nil {
			return err
		}
		for _, item := range items {
			if err := cw.Write([]string{strconv.Itoa(item.ID), item.ShortName, item.Name}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// WriteJSON renders any value as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
