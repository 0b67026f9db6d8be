package frame

import (
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"

	"github.com/marmot-data/marmot/internal/errors"
	"github.com/marmot-data/marmot/internal/series"
)

// accessor exposes one column's values to the generic reducers.
type accessor[T any] struct {
	value  func(int) T
	isNull func(int) bool
}

// scalarBuilder is the subset of an Arrow builder the reducers need. The
// concrete Arrow builders for int64, float64, string, and bool all satisfy
// it for their value type.
type scalarBuilder[T any] interface {
	Append(v T)
	AppendNull()
	NewArray() arrow.Array
	Release()
}

// aggregateColumn evaluates one operator over one column for every group,
// in group order, and returns the finished output column. Operator/dtype
// compatibility was validated during spec resolution; reaching here with an
// unsupported combination is an internal error.
func aggregateColumn(name string, arr arrow.Array, groups []*group, op Op, mem memory.Allocator) (ISeries, error) {
	// Count only needs the validity bitmap and works on every column type.
	if op.kind == OpCount {
		return countColumn(name, arr, groups, mem), nil
	}

	switch typed := arr.(type) {
	case *array.Int64:
		ac := accessor[int64]{value: typed.Value, isNull: typed.IsNull}
		if numericOnly(op) {
			return aggregateNumeric(name, ac, groups, op, mem,
				func() scalarBuilder[int64] { return array.NewInt64Builder(mem) }), nil
		}
		return aggregateScalar(name, ac, groups, op, mem, typedOps[int64]{
			newBuilder: func() scalarBuilder[int64] { return array.NewInt64Builder(mem) },
			elemType:   arrow.PrimitiveTypes.Int64,
			appendElem: func(vb array.Builder, v int64) { vb.(*array.Int64Builder).Append(v) },
			less:       lessOrdered[int64],
		}), nil
	case *array.Float64:
		ac := accessor[float64]{value: typed.Value, isNull: typed.IsNull}
		if numericOnly(op) {
			return aggregateNumeric(name, ac, groups, op, mem,
				func() scalarBuilder[float64] { return array.NewFloat64Builder(mem) }), nil
		}
		return aggregateScalar(name, ac, groups, op, mem, typedOps[float64]{
			newBuilder: func() scalarBuilder[float64] { return array.NewFloat64Builder(mem) },
			elemType:   arrow.PrimitiveTypes.Float64,
			appendElem: func(vb array.Builder, v float64) { vb.(*array.Float64Builder).Append(v) },
			less:       lessOrdered[float64],
		}), nil
	case *array.String:
		ac := accessor[string]{value: typed.Value, isNull: typed.IsNull}
		return aggregateScalar(name, ac, groups, op, mem, typedOps[string]{
			newBuilder: func() scalarBuilder[string] { return array.NewStringBuilder(mem) },
			elemType:   arrow.BinaryTypes.String,
			appendElem: func(vb array.Builder, v string) { vb.(*array.StringBuilder).Append(v) },
			less:       lessOrdered[string],
		}), nil
	case *array.Boolean:
		ac := accessor[bool]{value: typed.Value, isNull: typed.IsNull}
		return aggregateScalar(name, ac, groups, op, mem, typedOps[bool]{
			newBuilder: func() scalarBuilder[bool] { return array.NewBooleanBuilder(mem) },
			elemType:   arrow.FixedWidthTypes.Boolean,
			appendElem: func(vb array.Builder, v bool) { vb.(*array.BooleanBuilder).Append(v) },
			less:       func(a, b bool) bool { return !a && b },
		}), nil
	default:
		return nil, errors.NewTypeMismatchError("Agg", name,
			"unsupported column type "+arr.DataType().String())
	}
}

func numericOnly(op Op) bool {
	return op.kind == OpSum || op.kind == OpMean || op.kind == OpMedian
}

// countColumn counts non-null entries per group, distinct from group size.
func countColumn(name string, arr arrow.Array, groups []*group, mem memory.Allocator) ISeries {
	builder := array.NewInt64Builder(mem)
	defer builder.Release()

	for _, g := range groups {
		var count int64
		for _, idx := range g.indices {
			if !arr.IsNull(idx) {
				count++
			}
		}
		builder.Append(count)
	}

	return finish(name, builder)
}

// aggregateNumeric handles the numeric-only reducers. Sum preserves the
// source dtype; mean and median always produce float64. All three skip
// nulls and yield null for a group with no non-null values, keeping sum's
// all-null policy aligned with mean's zero denominator.
func aggregateNumeric[T constraints.Integer | constraints.Float](
	name string,
	ac accessor[T],
	groups []*group,
	op Op,
	mem memory.Allocator,
	newBuilder func() scalarBuilder[T],
) ISeries {
	if op.kind == OpSum {
		builder := newBuilder()
		defer builder.Release()
		for _, g := range groups {
			var sum T
			present := false
			for _, idx := range g.indices {
				if !ac.isNull(idx) {
					sum += ac.value(idx)
					present = true
				}
			}
			if present {
				builder.Append(sum)
			} else {
				builder.AppendNull()
			}
		}
		return finishScalar(name, builder)
	}

	builder := array.NewFloat64Builder(mem)
	defer builder.Release()

	var vals []float64
	for _, g := range groups {
		vals = vals[:0]
		for _, idx := range g.indices {
			if !ac.isNull(idx) {
				vals = append(vals, float64(ac.value(idx)))
			}
		}
		if len(vals) == 0 {
			builder.AppendNull()
			continue
		}
		if op.kind == OpMean {
			var sum float64
			for _, v := range vals {
				sum += v
			}
			builder.Append(sum / float64(len(vals)))
		} else {
			builder.Append(median(vals))
		}
	}

	return finish(name, builder)
}

// median computes the median of vals in place; vals must be non-empty.
func median(vals []float64) float64 {
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// typedOps bundles the per-dtype pieces the generic scalar reducers need.
type typedOps[T comparable] struct {
	newBuilder func() scalarBuilder[T]
	elemType   arrow.DataType
	appendElem func(array.Builder, T)
	less       func(a, b T) bool
}

// aggregateScalar handles the dtype-preserving operators: min, max, first,
// last, n_unique, and the list-shaped agg_list, head, and tail.
func aggregateScalar[T comparable](
	name string,
	ac accessor[T],
	groups []*group,
	op Op,
	mem memory.Allocator,
	ops typedOps[T],
) ISeries {
	switch op.kind {
	case OpMin, OpMax:
		builder := ops.newBuilder()
		defer builder.Release()
		for _, g := range groups {
			var best T
			present := false
			for _, idx := range g.indices {
				if ac.isNull(idx) {
					continue
				}
				v := ac.value(idx)
				if !present ||
					(op.kind == OpMin && ops.less(v, best)) ||
					(op.kind == OpMax && ops.less(best, v)) {
					best = v
					present = true
				}
			}
			if present {
				builder.Append(best)
			} else {
				builder.AppendNull()
			}
		}
		return finishScalar(name, builder)

	case OpFirst, OpLast:
		builder := ops.newBuilder()
		defer builder.Release()
		for _, g := range groups {
			idx := g.indices[0]
			if op.kind == OpLast {
				idx = g.indices[len(g.indices)-1]
			}
			if ac.isNull(idx) {
				builder.AppendNull()
			} else {
				builder.Append(ac.value(idx))
			}
		}
		return finishScalar(name, builder)

	case OpNUnique:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for _, g := range groups {
			distinct := make(map[T]struct{})
			sawNull := false
			for _, idx := range g.indices {
				if ac.isNull(idx) {
					sawNull = true
					continue
				}
				distinct[ac.value(idx)] = struct{}{}
			}
			count := int64(len(distinct))
			if sawNull {
				count++
			}
			builder.Append(count)
		}
		return finish(name, builder)

	case OpAggList, OpHead, OpTail:
		builder := array.NewListBuilder(mem, ops.elemType)
		defer builder.Release()
		vb := builder.ValueBuilder()
		for _, g := range groups {
			indices := g.indices
			switch op.kind {
			case OpHead:
				if op.n < len(indices) {
					indices = indices[:op.n]
				}
			case OpTail:
				if op.n < len(indices) {
					indices = indices[len(indices)-op.n:]
				}
			}
			builder.Append(true)
			for _, idx := range indices {
				if ac.isNull(idx) {
					vb.AppendNull()
				} else {
					ops.appendElem(vb, ac.value(idx))
				}
			}
		}
		return finish(name, builder)

	default:
		// Unreachable after spec resolution.
		builder := ops.newBuilder()
		defer builder.Release()
		for range groups {
			builder.AppendNull()
		}
		return finishScalar(name, builder)
	}
}

func lessOrdered[T constraints.Ordered](a, b T) bool {
	return a < b
}

// finish wraps a completed Arrow builder into an output column.
func finish(name string, builder interface {
	NewArray() arrow.Array
}) ISeries {
	arr := builder.NewArray()
	defer arr.Release()
	return series.FromArrow(name, arr)
}

func finishScalar[T any](name string, builder scalarBuilder[T]) ISeries {
	arr := builder.NewArray()
	defer arr.Release()
	return series.FromArrow(name, arr)
}
