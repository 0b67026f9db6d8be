package frame

import (
	"fmt"

	"github.com/marmot-data/marmot/internal/errors"
)

// ColumnOps names one source column and the ordered operators to apply to it.
type ColumnOps struct {
	Column string
	Ops    []Op
}

// Spec describes which aggregations to compute. It is a tagged union: either
// a blanket operator applied to every non-key column, or an explicit ordered
// list of per-column operators. The zero value is an empty explicit spec.
type Spec struct {
	blanket *Op
	entries []ColumnOps
}

// Blanket returns a spec applying op to every column that is not a key column.
func Blanket(op Op) Spec {
	return Spec{blanket: &op}
}

// Explicit returns a spec computing exactly the given (column, operators)
// pairs, expanding to one output per pair in the order listed.
func Explicit(entries ...ColumnOps) Spec {
	return Spec{entries: entries}
}

// Col appends one column with its ordered operators to an explicit spec,
// returning the extended spec for chaining. Calling Col on a blanket spec
// converts it to an explicit one.
func (s Spec) Col(column string, ops ...Op) Spec {
	return Spec{entries: append(append([]ColumnOps(nil), s.entries...), ColumnOps{Column: column, Ops: ops})}
}

// resolvedAgg is one fully validated output: its column name in the result
// frame, the source column, and the operator.
type resolvedAgg struct {
	output string
	column string
	op     Op
}

// resolve expands and validates the spec against a frame and key columns,
// producing the flat ordered list of outputs to compute. All error detection
// happens here, before any aggregation work begins, so Agg either fully
// succeeds or fails without partial output.
func (s Spec) resolve(f *Frame, keyCols []string) ([]resolvedAgg, error) {
	entries := s.entries
	if s.blanket != nil {
		keySet := make(map[string]bool, len(keyCols))
		for _, key := range keyCols {
			keySet[key] = true
		}
		entries = nil
		for _, name := range f.Columns() {
			if !keySet[name] {
				entries = append(entries, ColumnOps{Column: name, Ops: []Op{*s.blanket}})
			}
		}
	}

	var resolved []resolvedAgg
	// The result frame holds the key columns plus the outputs, so key names
	// claim their slot up front; any output colliding with a key or an
	// earlier output (including an earlier suffixed one) gets the next free
	// numeric suffix instead of overwriting.
	taken := make(map[string]bool, len(keyCols))
	for _, key := range keyCols {
		taken[key] = true
	}
	for _, entry := range entries {
		col, ok := f.Column(entry.Column)
		if !ok {
			return nil, errors.NewUnknownColumnError("Agg", entry.Column)
		}
		for _, op := range entry.Ops {
			if err := validateOpType(op, entry.Column, col.DataType()); err != nil {
				return nil, err
			}
			base := op.outputName(entry.Column)
			name := base
			for n := 1; taken[name]; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
			}
			taken[name] = true
			resolved = append(resolved, resolvedAgg{
				output: name,
				column: entry.Column,
				op:     op,
			})
		}
	}

	return resolved, nil
}
