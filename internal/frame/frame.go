// Package frame implements the column-oriented Frame and its group-by /
// aggregation engine. A Frame is an ordered mapping of column name to typed
// column; transformations produce new Frames rather than mutating in place.
package frame

import (
	"fmt"
	"strings"
)

// Frame represents a table of data with typed columns.
type Frame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new Frame from a slice of ISeries. All columns are expected
// to share the same length; the caller is responsible for supplying
// well-formed input.
func New(columns ...ISeries) *Frame {
	byName := make(map[string]ISeries)
	order := make([]string, 0, len(columns))

	for _, col := range columns {
		name := col.Name()
		byName[name] = col
		order = append(order, name)
	}

	return &Frame{
		columns: byName,
		order:   order,
	}
}

// Columns returns the names of all columns in order.
func (f *Frame) Columns() []string {
	if len(f.order) == 0 {
		return []string{}
	}
	return append([]string(nil), f.order...)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.order) == 0 {
		return 0
	}
	if col, ok := f.columns[f.order[0]]; ok {
		return col.Len()
	}
	return 0
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	return len(f.columns)
}

// Column returns the series for the given column name.
func (f *Frame) Column(name string) (ISeries, bool) {
	col, ok := f.columns[name]
	return col, ok
}

// HasColumn checks if a column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Select returns a new Frame with only the specified columns.
func (f *Frame) Select(names ...string) *Frame {
	byName := make(map[string]ISeries)
	order := make([]string, 0, len(names))

	for _, name := range names {
		if col, ok := f.columns[name]; ok {
			byName[name] = col
			order = append(order, name)
		}
	}

	return &Frame{
		columns: byName,
		order:   order,
	}
}

// Drop returns a new Frame without the specified columns.
func (f *Frame) Drop(names ...string) *Frame {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	byName := make(map[string]ISeries)
	order := make([]string, 0, len(f.order))

	for _, name := range f.order {
		if !dropSet[name] {
			byName[name] = f.columns[name]
			order = append(order, name)
		}
	}

	return &Frame{
		columns: byName,
		order:   order,
	}
}

// String returns a string representation of the Frame.
func (f *Frame) String() string {
	if len(f.columns) == 0 {
		return "Frame[empty]"
	}

	parts := []string{fmt.Sprintf("Frame[%dx%d]", f.Len(), f.Width())}
	for _, name := range f.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, f.columns[name].DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory.
func (f *Frame) Release() {
	for _, col := range f.columns {
		col.Release()
	}
}
