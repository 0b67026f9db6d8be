package frame

import (
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/marmot-data/marmot/internal/errors"
)

// SortBy returns a new Frame with rows ordered ascending by the given
// columns, compared left to right. Nulls sort before all non-null values
// and the sort is stable, so rows with equal keys keep their input order.
func (f *Frame) SortBy(columns ...string) (*Frame, error) {
	if len(columns) == 0 {
		return nil, errors.NewEmptyInputError("SortBy", "at least one sort column is required")
	}

	keyArrays := make([]arrow.Array, len(columns))
	for i, name := range columns {
		col, ok := f.Column(name)
		if !ok {
			for _, arr := range keyArrays[:i] {
				arr.Release()
			}
			return nil, errors.NewUnknownColumnError("SortBy", name)
		}
		if !sortableType(col.DataType()) {
			for _, arr := range keyArrays[:i] {
				arr.Release()
			}
			return nil, errors.NewTypeMismatchError("SortBy", name,
				"unsupported sort key type "+col.DataType().String())
		}
		keyArrays[i] = col.Array()
	}
	defer func() {
		for _, arr := range keyArrays {
			arr.Release()
		}
	}()

	indices := make([]int, f.Len())
	for i := range indices {
		indices[i] = i
	}

	sort.SliceStable(indices, func(a, b int) bool {
		for _, arr := range keyArrays {
			if cmp := compareRows(arr, indices[a], indices[b]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	mem := memory.NewGoAllocator()
	sorted := make([]ISeries, 0, len(f.order))
	for _, name := range f.order {
		col, err := takeColumn(f.columns[name], indices, mem)
		if err != nil {
			for _, c := range sorted {
				c.Release()
			}
			return nil, err
		}
		sorted = append(sorted, col)
	}

	return New(sorted...), nil
}

// sortableType reports whether a column can serve as a sort key. Only the
// scalar types have a defined row order; list columns are carried through a
// sort but cannot drive one.
func sortableType(dtype arrow.DataType) bool {
	return arrow.TypeEqual(dtype, arrow.PrimitiveTypes.Int64) ||
		arrow.TypeEqual(dtype, arrow.PrimitiveTypes.Float64) ||
		arrow.TypeEqual(dtype, arrow.BinaryTypes.String) ||
		arrow.TypeEqual(dtype, arrow.FixedWidthTypes.Boolean)
}

// compareRows orders two rows of one column: nulls first, then the natural
// ascending order of the column's type.
func compareRows(arr arrow.Array, i, j int) int {
	iNull, jNull := arr.IsNull(i), arr.IsNull(j)
	switch {
	case iNull && jNull:
		return 0
	case iNull:
		return -1
	case jNull:
		return 1
	}

	switch typed := arr.(type) {
	case *array.Int64:
		return compareOrdered(typed.Value(i), typed.Value(j))
	case *array.Float64:
		return compareOrdered(typed.Value(i), typed.Value(j))
	case *array.String:
		return strings.Compare(typed.Value(i), typed.Value(j))
	case *array.Boolean:
		return compareBool(typed.Value(i), typed.Value(j))
	default:
		return 0
	}
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
