// Package marmot provides a columnar group-by and aggregation engine built
// on Apache Arrow. This package is the sole public API for the library.
package marmot

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/marmot-data/marmot/internal/frame"
	"github.com/marmot-data/marmot/internal/series"
	"github.com/marmot-data/marmot/internal/version"
)

// ISeries provides a type-erased interface for Series of any type.
type ISeries interface {
	Name() string
	Len() int
	DataType() arrow.DataType
	IsNull(index int) bool
	String() string
	GetAsString(index int) string
	Array() arrow.Array
	Release()
}

// Frame is the public type for a column-oriented table.
// It wraps the internal frame.Frame to hide implementation details.
type Frame struct {
	f *frame.Frame
}

// GroupBy is the public type for a partitioned Frame awaiting aggregation.
type GroupBy struct {
	gb *frame.GroupBy
}

// Op is one aggregation operator.
type Op = frame.Op

// Spec describes which aggregations a GroupBy should compute.
type Spec = frame.Spec

// ColumnOps names one source column and the ordered operators to apply to it.
type ColumnOps = frame.ColumnOps

// Parameterless aggregation operators.
var (
	Min     = frame.Min
	Max     = frame.Max
	Sum     = frame.Sum
	Mean    = frame.Mean
	Median  = frame.Median
	Count   = frame.Count
	First   = frame.First
	Last    = frame.Last
	NUnique = frame.NUnique
	AggList = frame.AggList
)

// Head returns the operator collecting the first n rows of each group.
func Head(n int) Op { return frame.Head(n) }

// Tail returns the operator collecting the last n rows of each group.
func Tail(n int) Op { return frame.Tail(n) }

// Blanket returns a spec applying op to every non-key column.
func Blanket(op Op) Spec { return frame.Blanket(op) }

// Explicit returns a spec computing exactly the given (column, operators)
// pairs in the order listed.
func Explicit(entries ...ColumnOps) Spec { return frame.Explicit(entries...) }

// ParseOp parses an operator from its string form, e.g. "sum" or "head(3)".
func ParseOp(s string) (Op, error) { return frame.ParseOp(s) }

// NewFrame creates a new Frame from ISeries. All columns must share the same
// length.
func NewFrame(columns ...ISeries) *Frame {
	internalColumns := make([]frame.ISeries, len(columns))
	for i, col := range columns {
		internalColumns[i] = col
	}
	return &Frame{f: frame.New(internalColumns...)}
}

// NewSeries creates a new typed Series from values.
func NewSeries[T any](name string, values []T, mem memory.Allocator) ISeries {
	return series.New(name, values, mem)
}

// NewSeriesWithNulls creates a typed Series with a validity mask. A false
// entry in valid marks the corresponding value null; a nil mask means all
// values are present.
func NewSeriesWithNulls[T any](name string, values []T, valid []bool, mem memory.Allocator) ISeries {
	return series.NewWithNulls(name, values, valid, mem)
}

// NewListSeries creates a list-typed Series from row-wise value slices.
func NewListSeries[T any](name string, values [][]T, valid []bool, mem memory.Allocator) ISeries {
	return series.NewList(name, values, valid, mem)
}

// Version returns the library version string.
func Version() string {
	return version.Info().String()
}

// Frame methods

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return f.f.Columns()
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return f.f.Len()
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	return f.f.Width()
}

// Column returns the column with the given name.
func (f *Frame) Column(name string) (ISeries, bool) {
	return f.f.Column(name)
}

// HasColumn returns true if the Frame has the given column.
func (f *Frame) HasColumn(name string) bool {
	return f.f.HasColumn(name)
}

// Select returns a new Frame with only the specified columns.
func (f *Frame) Select(names ...string) *Frame {
	return &Frame{f: f.f.Select(names...)}
}

// Drop returns a new Frame without the specified columns.
func (f *Frame) Drop(names ...string) *Frame {
	return &Frame{f: f.f.Drop(names...)}
}

// SortBy returns a new Frame sorted ascending by the given columns, nulls
// first. The sort is stable.
func (f *Frame) SortBy(columns ...string) (*Frame, error) {
	sorted, err := f.f.SortBy(columns...)
	if err != nil {
		return nil, err
	}
	return &Frame{f: sorted}, nil
}

// GroupBy partitions the frame rows by the given key columns. Groups keep
// the first-occurrence order of their key tuples.
func (f *Frame) GroupBy(columns ...string) (*GroupBy, error) {
	gb, err := f.f.GroupBy(columns...)
	if err != nil {
		return nil, err
	}
	return &GroupBy{gb: gb}, nil
}

// String returns a string representation of the Frame.
func (f *Frame) String() string {
	return f.f.String()
}

// Release frees the memory used by the Frame.
func (f *Frame) Release() {
	f.f.Release()
}

// GroupBy methods

// NumGroups returns the number of distinct key tuples found.
func (g *GroupBy) NumGroups() int {
	return g.gb.NumGroups()
}

// Agg computes the spec's aggregations and materializes the result frame:
// one row per group, key columns first. Any unknown column, unknown
// operator, or operator/dtype mismatch fails the whole call before
// aggregation begins.
func (g *GroupBy) Agg(spec Spec) (*Frame, error) {
	result, err := g.gb.Agg(spec)
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

func (g *GroupBy) wrap(result *frame.Frame, err error) (*Frame, error) {
	if err != nil {
		return nil, err
	}
	return &Frame{f: result}, nil
}

// Sum aggregates every non-key column by sum.
func (g *GroupBy) Sum() (*Frame, error) { return g.wrap(g.gb.Sum()) }

// Mean aggregates every non-key column by arithmetic mean.
func (g *GroupBy) Mean() (*Frame, error) { return g.wrap(g.gb.Mean()) }

// Median aggregates every non-key column by median.
func (g *GroupBy) Median() (*Frame, error) { return g.wrap(g.gb.Median()) }

// Min aggregates every non-key column by minimum.
func (g *GroupBy) Min() (*Frame, error) { return g.wrap(g.gb.Min()) }

// Max aggregates every non-key column by maximum.
func (g *GroupBy) Max() (*Frame, error) { return g.wrap(g.gb.Max()) }

// Count counts non-null entries of every non-key column per group.
func (g *GroupBy) Count() (*Frame, error) { return g.wrap(g.gb.Count()) }

// First takes the first row's value of every non-key column per group.
func (g *GroupBy) First() (*Frame, error) { return g.wrap(g.gb.First()) }

// Last takes the last row's value of every non-key column per group.
func (g *GroupBy) Last() (*Frame, error) { return g.wrap(g.gb.Last()) }

// NUnique counts distinct values of every non-key column per group.
func (g *GroupBy) NUnique() (*Frame, error) { return g.wrap(g.gb.NUnique()) }

// AggList materializes every non-key column's group values as lists.
func (g *GroupBy) AggList() (*Frame, error) { return g.wrap(g.gb.AggList()) }

// Head collects the first n rows of every non-key column per group.
func (g *GroupBy) Head(n int) (*Frame, error) { return g.wrap(g.gb.Head(n)) }

// Tail collects the last n rows of every non-key column per group.
func (g *GroupBy) Tail(n int) (*Frame, error) { return g.wrap(g.gb.Tail(n)) }
