// Package series provides the typed column primitive backing Frame operations.
// A Series wraps an Apache Arrow array, giving every column an explicit
// validity bitmap alongside its values.
package series

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Series represents a typed data column with an Apache Arrow backend.
type Series[T any] struct {
	name  string
	array arrow.Array
}

// New creates a new Series from a slice of values with no nulls.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	return NewWithNulls(name, values, nil, mem)
}

// NewWithNulls creates a new Series from a slice of values and a validity
// mask. A nil mask means every value is valid; otherwise valid[i] == false
// marks row i as null and values[i] is ignored.
func NewWithNulls[T any](name string, values []T, valid []bool, mem memory.Allocator) *Series[T] {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case []string:
		builder := array.NewStringBuilder(mem)
		defer builder.Release()
		for i, val := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(val)
		}
		arr = builder.NewArray()
	case []int64:
		builder := array.NewInt64Builder(mem)
		defer builder.Release()
		for i, val := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(val)
		}
		arr = builder.NewArray()
	case []float64:
		builder := array.NewFloat64Builder(mem)
		defer builder.Release()
		for i, val := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(val)
		}
		arr = builder.NewArray()
	case []bool:
		builder := array.NewBooleanBuilder(mem)
		defer builder.Release()
		for i, val := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(val)
		}
		arr = builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported type: %T", values))
	}

	return &Series[T]{
		name:  name,
		array: arr,
	}
}

// NewList creates a Series whose rows are lists of numeric, string, or
// boolean values. A nil valid mask means every row is a non-null list.
func NewList[T any](name string, values [][]T, valid []bool, mem memory.Allocator) *Series[[]T] {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	var arr arrow.Array

	switch v := any(values).(type) {
	case [][]int64:
		builder := array.NewListBuilder(mem, arrow.PrimitiveTypes.Int64)
		defer builder.Release()
		vb := builder.ValueBuilder().(*array.Int64Builder)
		for i, row := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(true)
			for _, val := range row {
				vb.Append(val)
			}
		}
		arr = builder.NewArray()
	case [][]float64:
		builder := array.NewListBuilder(mem, arrow.PrimitiveTypes.Float64)
		defer builder.Release()
		vb := builder.ValueBuilder().(*array.Float64Builder)
		for i, row := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(true)
			for _, val := range row {
				vb.Append(val)
			}
		}
		arr = builder.NewArray()
	case [][]string:
		builder := array.NewListBuilder(mem, arrow.BinaryTypes.String)
		defer builder.Release()
		vb := builder.ValueBuilder().(*array.StringBuilder)
		for i, row := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(true)
			for _, val := range row {
				vb.Append(val)
			}
		}
		arr = builder.NewArray()
	case [][]bool:
		builder := array.NewListBuilder(mem, arrow.FixedWidthTypes.Boolean)
		defer builder.Release()
		vb := builder.ValueBuilder().(*array.BooleanBuilder)
		for i, row := range v {
			if isNullAt(valid, i) {
				builder.AppendNull()
				continue
			}
			builder.Append(true)
			for _, val := range row {
				vb.Append(val)
			}
		}
		arr = builder.NewArray()
	default:
		panic(fmt.Sprintf("unsupported list type: %T", values))
	}

	return &Series[[]T]{
		name:  name,
		array: arr,
	}
}

// FromArrow wraps an existing Arrow array as a type-erased Series. The
// series retains its own reference; the caller keeps ownership of arr.
func FromArrow(name string, arr arrow.Array) *Series[any] {
	arr.Retain()
	return &Series[any]{
		name:  name,
		array: arr,
	}
}

func isNullAt(valid []bool, i int) bool {
	return valid != nil && i < len(valid) && !valid[i]
}

// Name returns the column name.
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series.
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// Values returns the non-null data as a Go slice; null entries come back as
// the zero value. Use IsNull to distinguish.
func (s *Series[T]) Values() []T {
	result := make([]T, s.array.Len())

	switch arr := s.array.(type) {
	case *array.String:
		values := any(result).([]string)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Int64:
		values := any(result).([]int64)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Float64:
		values := any(result).([]float64)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	case *array.Boolean:
		values := any(result).([]bool)
		for i := 0; i < arr.Len(); i++ {
			if !arr.IsNull(i) {
				values[i] = arr.Value(i)
			}
		}
	default:
		panic(fmt.Sprintf("unsupported array type: %T", arr))
	}

	return result
}

// Value returns the value at the given index, or the zero value when the
// index is out of bounds or the entry is null.
func (s *Series[T]) Value(index int) T {
	var result T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return result
	}

	switch arr := s.array.(type) {
	case *array.String:
		if v, ok := any(&result).(*string); ok {
			*v = arr.Value(index)
		}
	case *array.Int64:
		if v, ok := any(&result).(*int64); ok {
			*v = arr.Value(index)
		}
	case *array.Float64:
		if v, ok := any(&result).(*float64); ok {
			*v = arr.Value(index)
		}
	case *array.Boolean:
		if v, ok := any(&result).(*bool); ok {
			*v = arr.Value(index)
		}
	}

	return result
}

// DataType returns the Arrow data type.
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null.
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// NullCount returns the number of null entries.
func (s *Series[T]) NullCount() int {
	return s.array.NullN()
}

// GetAsString renders the value at index for display purposes. Null entries
// render as "null"; list entries render as "[v1, v2, ...]".
func (s *Series[T]) GetAsString(index int) string {
	return formatValue(s.array, index)
}

func formatValue(arr arrow.Array, index int) string {
	if index < 0 || index >= arr.Len() || arr.IsNull(index) {
		return "null"
	}

	switch typed := arr.(type) {
	case *array.String:
		return typed.Value(index)
	case *array.Int64:
		return strconv.FormatInt(typed.Value(index), 10)
	case *array.Float64:
		return strconv.FormatFloat(typed.Value(index), 'g', -1, 64)
	case *array.Boolean:
		return strconv.FormatBool(typed.Value(index))
	case *array.List:
		start, end := typed.ValueOffsets(index)
		elems := typed.ListValues()
		parts := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			parts = append(parts, formatValue(elems, int(i)))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("unsupported(%T)", arr)
	}
}

// String returns a string representation of the series.
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d)", s.DataType().Name(), s.name, s.Len())
}

// Array returns the underlying Arrow array (retains a reference).
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory.
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}
