// Package testutil provides common testing utilities shared across the
// engine's test files: allocator setup and standard fixture frames.
package testutil

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/marmot-data/marmot/internal/frame"
	"github.com/marmot-data/marmot/internal/series"
)

// TestMemoryContext provides a memory allocator with cleanup hooks.
type TestMemoryContext struct {
	Allocator memory.Allocator
	cleanup   func()
}

// Release performs cleanup of the memory context.
func (tmc *TestMemoryContext) Release() {
	if tmc.cleanup != nil {
		tmc.cleanup()
	}
}

// SetupMemoryTest creates a memory allocator for tests. Release it with
// defer for symmetry with the Arrow ownership discipline.
func SetupMemoryTest(tb testing.TB) *TestMemoryContext {
	tb.Helper()
	return &TestMemoryContext{
		Allocator: memory.NewGoAllocator(),
		cleanup:   func() {},
	}
}

// SalesFrameOption configures fixture frame creation.
type SalesFrameOption func(*salesFrameConfig)

type salesFrameConfig struct {
	withNulls bool
}

// WithNulls marks one foo entry and one bar entry null in the fixture.
func WithNulls() SalesFrameOption {
	return func(cfg *salesFrameConfig) {
		cfg.withNulls = true
	}
}

// CreateSalesFrame builds the standard grouping fixture:
//
//	name: [a, b, a, c, b]
//	foo:  [1, 3, 3, 5, 7]
//	bar:  [2.0, 4.0, 4.0, 6.0, 8.0]
//
// Grouped by name it yields groups a={rows 0,2}, b={rows 1,4}, c={row 3}.
// With WithNulls, foo[2] and bar[4] become null.
func CreateSalesFrame(allocator memory.Allocator, opts ...SalesFrameOption) *frame.Frame {
	cfg := &salesFrameConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	fooValid := []bool(nil)
	barValid := []bool(nil)
	if cfg.withNulls {
		fooValid = []bool{true, true, false, true, true}
		barValid = []bool{true, true, true, true, false}
	}

	names := series.New("name", []string{"a", "b", "a", "c", "b"}, allocator)
	foos := series.NewWithNulls("foo", []int64{1, 3, 3, 5, 7}, fooValid, allocator)
	bars := series.NewWithNulls("bar", []float64{2, 4, 4, 6, 8}, barValid, allocator)

	return frame.New(names, foos, bars)
}

// Int64Values extracts an int64 result column's values; null entries come
// back as zero. Fails the test when the column is absent or mistyped.
func Int64Values(tb testing.TB, f *frame.Frame, name string) []int64 {
	tb.Helper()
	col, ok := f.Column(name)
	if !ok {
		tb.Fatalf("column %q not found", name)
	}
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.Int64)
	if !ok {
		tb.Fatalf("column %q is %s, want int64", name, col.DataType().String())
	}
	values := make([]int64, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if !typed.IsNull(i) {
			values[i] = typed.Value(i)
		}
	}
	return values
}

// Float64Values extracts a float64 result column's values; null entries
// come back as zero. Fails the test when the column is absent or mistyped.
func Float64Values(tb testing.TB, f *frame.Frame, name string) []float64 {
	tb.Helper()
	col, ok := f.Column(name)
	if !ok {
		tb.Fatalf("column %q not found", name)
	}
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.Float64)
	if !ok {
		tb.Fatalf("column %q is %s, want float64", name, col.DataType().String())
	}
	values := make([]float64, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if !typed.IsNull(i) {
			values[i] = typed.Value(i)
		}
	}
	return values
}

// StringValues extracts a string result column's values; null entries come
// back as "". Fails the test when the column is absent or mistyped.
func StringValues(tb testing.TB, f *frame.Frame, name string) []string {
	tb.Helper()
	col, ok := f.Column(name)
	if !ok {
		tb.Fatalf("column %q not found", name)
	}
	arr := col.Array()
	defer arr.Release()
	typed, ok := arr.(*array.String)
	if !ok {
		tb.Fatalf("column %q is %s, want string", name, col.DataType().String())
	}
	values := make([]string, typed.Len())
	for i := 0; i < typed.Len(); i++ {
		if !typed.IsNull(i) {
			values[i] = typed.Value(i)
		}
	}
	return values
}

// Int64Lists extracts a list<int64> result column as row-wise slices.
func Int64Lists(tb testing.TB, f *frame.Frame, name string) [][]int64 {
	tb.Helper()
	col, ok := f.Column(name)
	if !ok {
		tb.Fatalf("column %q not found", name)
	}
	arr := col.Array()
	defer arr.Release()
	list, ok := arr.(*array.List)
	if !ok {
		tb.Fatalf("column %q is %s, want list", name, col.DataType().String())
	}
	elems, ok := list.ListValues().(*array.Int64)
	if !ok {
		tb.Fatalf("column %q elements are %s, want int64", name, list.ListValues().DataType().String())
	}
	rows := make([][]int64, list.Len())
	for i := 0; i < list.Len(); i++ {
		if list.IsNull(i) {
			continue
		}
		start, end := list.ValueOffsets(i)
		row := make([]int64, 0, end-start)
		for j := start; j < end; j++ {
			row = append(row, elems.Value(int(j)))
		}
		rows[i] = row
	}
	return rows
}
