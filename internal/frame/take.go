package frame

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/marmot-data/marmot/internal/errors"
	"github.com/marmot-data/marmot/internal/series"
)

// takeColumn builds a new series containing the rows of col selected by
// indices, in index order, preserving nulls and the source data type.
func takeColumn(col ISeries, indices []int, mem memory.Allocator) (ISeries, error) {
	arr := col.Array()
	defer arr.Release()

	out, err := takeArray(arr, indices, mem)
	if err != nil {
		return nil, err
	}
	defer out.Release()

	return series.FromArrow(col.Name(), out), nil
}

// takeArray is the array-level counterpart of takeColumn.
func takeArray(arr arrow.Array, indices []int, mem memory.Allocator) (arrow.Array, error) {
	switch typed := arr.(type) {
	case *array.Int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return builder.NewArray(), nil
	case *array.Float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return builder.NewArray(), nil
	case *array.String:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return builder.NewArray(), nil
	case *array.Boolean:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for _, idx := range indices {
			if typed.IsNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(typed.Value(idx))
			}
		}
		return builder.NewArray(), nil
	case *array.List:
		return takeListArray(typed, indices, mem)
	default:
		return nil, errors.NewTypeMismatchError("take", "", "unsupported column type "+arr.DataType().String())
	}
}

// takeListArray rebuilds a list column row by row, copying each selected
// list's elements (including element-level nulls).
func takeListArray(src *array.List, indices []int, mem memory.Allocator) (arrow.Array, error) {
	elemType := src.DataType().(*arrow.ListType).Elem()
	builder := array.NewListBuilder(mem, elemType)
	defer builder.Release()

	elems := src.ListValues()
	appendElem, err := listElemAppender(builder.ValueBuilder(), elems)
	if err != nil {
		return nil, err
	}

	for _, idx := range indices {
		if src.IsNull(idx) {
			builder.AppendNull()
			continue
		}
		builder.Append(true)
		start, end := src.ValueOffsets(idx)
		for i := start; i < end; i++ {
			appendElem(int(i))
		}
	}

	return builder.NewArray(), nil
}

// listElemAppender returns a closure copying one element of elems into the
// value builder, propagating nulls.
func listElemAppender(vb array.Builder, elems arrow.Array) (func(int), error) {
	switch typed := elems.(type) {
	case *array.Int64:
		b := vb.(*array.Int64Builder)
		return func(i int) {
			if typed.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(i))
			}
		}, nil
	case *array.Float64:
		b := vb.(*array.Float64Builder)
		return func(i int) {
			if typed.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(i))
			}
		}, nil
	case *array.String:
		b := vb.(*array.StringBuilder)
		return func(i int) {
			if typed.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(i))
			}
		}, nil
	case *array.Boolean:
		b := vb.(*array.BooleanBuilder)
		return func(i int) {
			if typed.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(typed.Value(i))
			}
		}, nil
	default:
		return nil, errors.NewTypeMismatchError("take", "", "unsupported list element type "+elems.DataType().String())
	}
}
