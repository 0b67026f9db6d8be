package frame

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/marmot-data/marmot/internal/errors"
)

// OpKind identifies an aggregation operator.
type OpKind int

const (
	OpMin OpKind = iota
	OpMax
	OpSum
	OpMean
	OpMedian
	OpCount
	OpFirst
	OpLast
	OpNUnique
	OpAggList
	OpHead
	OpTail
)

// Op is one aggregation operator, including the row count parameter for the
// head/tail sampling forms.
type Op struct {
	kind OpKind
	n    int
}

// Parameterless operators.
var (
	Min     = Op{kind: OpMin}
	Max     = Op{kind: OpMax}
	Sum     = Op{kind: OpSum}
	Mean    = Op{kind: OpMean}
	Median  = Op{kind: OpMedian}
	Count   = Op{kind: OpCount}
	First   = Op{kind: OpFirst}
	Last    = Op{kind: OpLast}
	NUnique = Op{kind: OpNUnique}
	AggList = Op{kind: OpAggList}
)

// Head returns the operator collecting the first n rows of each group as a
// list. Negative n is treated as zero.
func Head(n int) Op {
	if n < 0 {
		n = 0
	}
	return Op{kind: OpHead, n: n}
}

// Tail returns the operator collecting the last n rows of each group as a
// list. Negative n is treated as zero.
func Tail(n int) Op {
	if n < 0 {
		n = 0
	}
	return Op{kind: OpTail, n: n}
}

// Kind returns the operator kind.
func (o Op) Kind() OpKind {
	return o.kind
}

// N returns the row count parameter for head/tail operators.
func (o Op) N() int {
	return o.n
}

// Name returns the snake_case operator name used in output column naming.
func (o Op) Name() string {
	switch o.kind {
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	case OpSum:
		return "sum"
	case OpMean:
		return "mean"
	case OpMedian:
		return "median"
	case OpCount:
		return "count"
	case OpFirst:
		return "first"
	case OpLast:
		return "last"
	case OpNUnique:
		return "n_unique"
	case OpAggList:
		return "agg_list"
	case OpHead:
		return "head"
	case OpTail:
		return "tail"
	default:
		return "unknown"
	}
}

// String renders the operator in its spec form, e.g. "sum" or "head(3)".
func (o Op) String() string {
	if o.kind == OpHead || o.kind == OpTail {
		return fmt.Sprintf("%s(%d)", o.Name(), o.n)
	}
	return o.Name()
}

// outputName returns the result column name for this operator applied to
// column. Head and tail keep the bare source name since they preserve
// per-row structure as nested lists; every reducing operator appends its
// snake_case suffix.
func (o Op) outputName(column string) string {
	if o.kind == OpHead || o.kind == OpTail {
		return column
	}
	return column + "_" + o.Name()
}

// ParseOp parses an operator from its string form. Accepted names are the
// fixed set min, max, sum, mean, median, count, first, last, n_unique,
// agg_list plus the parameterized head(n) and tail(n) forms.
func ParseOp(s string) (Op, error) {
	name := strings.ToLower(strings.TrimSpace(s))

	if open := strings.Index(name, "("); open != -1 {
		if !strings.HasSuffix(name, ")") {
			return Op{}, errors.NewUnknownOperatorError("ParseOp", s)
		}
		base := strings.TrimSpace(name[:open])
		arg := strings.TrimSpace(name[open+1 : len(name)-1])
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return Op{}, errors.NewUnknownOperatorError("ParseOp", s)
		}
		switch base {
		case "head":
			return Head(n), nil
		case "tail":
			return Tail(n), nil
		default:
			return Op{}, errors.NewUnknownOperatorError("ParseOp", s)
		}
	}

	switch name {
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	case "sum":
		return Sum, nil
	case "mean":
		return Mean, nil
	case "median":
		return Median, nil
	case "count":
		return Count, nil
	case "first":
		return First, nil
	case "last":
		return Last, nil
	case "n_unique":
		return NUnique, nil
	case "agg_list":
		return AggList, nil
	default:
		return Op{}, errors.NewUnknownOperatorError("ParseOp", s)
	}
}

// validateOpType checks the operator against the column's data type once,
// before any group is aggregated, so a mismatch fails the whole call.
func validateOpType(op Op, column string, dtype arrow.DataType) error {
	isNumeric := arrow.TypeEqual(dtype, arrow.PrimitiveTypes.Int64) ||
		arrow.TypeEqual(dtype, arrow.PrimitiveTypes.Float64)
	isScalar := isNumeric ||
		arrow.TypeEqual(dtype, arrow.BinaryTypes.String) ||
		arrow.TypeEqual(dtype, arrow.FixedWidthTypes.Boolean)

	switch op.kind {
	case OpSum, OpMean, OpMedian:
		if !isNumeric {
			return errors.NewTypeMismatchError("Agg", column,
				fmt.Sprintf("%s requires a numeric column, got %s", op.Name(), dtype.String()))
		}
	case OpCount:
		// Counting non-null entries works for every column type.
	case OpMin, OpMax, OpFirst, OpLast, OpNUnique, OpAggList, OpHead, OpTail:
		if !isScalar {
			return errors.NewTypeMismatchError("Agg", column,
				fmt.Sprintf("%s requires a scalar column, got %s", op.Name(), dtype.String()))
		}
	}
	return nil
}
