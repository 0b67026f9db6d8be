package frame

import (
	"encoding/binary"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cespare/xxhash/v2"

	"github.com/marmot-data/marmot/internal/config"
	"github.com/marmot-data/marmot/internal/errors"
	"github.com/marmot-data/marmot/internal/parallel"
)

// group holds one partition bucket: the rows sharing a key tuple, in source
// row order, plus the first row carrying the key values for materialization.
type group struct {
	firstRow int
	indices  []int
}

// GroupBy represents a partitioned Frame ready for aggregation. Groups are
// kept in first-occurrence order of their key tuples.
type GroupBy struct {
	f       *Frame
	keyCols []string
	groups  []*group
}

// GroupBy partitions the frame rows by the given key columns. Every row
// lands in exactly one group; nulls within a key tuple compare equal, so an
// all-null key column yields a single all-null group. Zero key columns is a
// configuration error, an unknown key column fails with an unknown-column
// error.
func (f *Frame) GroupBy(keyCols ...string) (*GroupBy, error) {
	if len(keyCols) == 0 {
		return nil, errors.NewEmptyInputError("GroupBy", "at least one key column is required")
	}

	keyArrays := make([]arrow.Array, len(keyCols))
	for i, name := range keyCols {
		col, ok := f.Column(name)
		if !ok {
			for _, arr := range keyArrays[:i] {
				arr.Release()
			}
			return nil, errors.NewUnknownColumnError("GroupBy", name)
		}
		keyArrays[i] = col.Array()
	}
	defer func() {
		for _, arr := range keyArrays {
			arr.Release()
		}
	}()

	groups, err := partition(keyArrays, f.Len())
	if err != nil {
		return nil, err
	}

	return &GroupBy{
		f:       f,
		keyCols: append([]string(nil), keyCols...),
		groups:  groups,
	}, nil
}

// NumGroups returns the number of distinct key tuples found.
func (gb *GroupBy) NumGroups() int {
	return len(gb.groups)
}

// partition performs the single linear scan building the group buckets. Each
// row's key tuple is encoded into a compact byte key and looked up in an
// xxhash-bucketed map; buckets are appended to a slice so first-occurrence
// order is preserved.
func partition(keyArrays []arrow.Array, rows int) ([]*group, error) {
	encoders := make([]keyEncoder, len(keyArrays))
	for i, arr := range keyArrays {
		enc, err := newKeyEncoder(arr)
		if err != nil {
			return nil, err
		}
		encoders[i] = enc
	}

	var groups []*group
	gm := newGroupMap(rows)
	buf := make([]byte, 0, 64)

	for row := 0; row < rows; row++ {
		buf = buf[:0]
		for _, enc := range encoders {
			buf = enc(buf, row)
		}
		id, found := gm.lookup(buf)
		if !found {
			id = gm.insert(buf, len(groups))
			groups = append(groups, &group{firstRow: row})
		}
		g := groups[id]
		g.indices = append(g.indices, row)
	}

	return groups, nil
}

// keyEncoder appends one row's key field to buf. The encoding is
// self-delimiting: a type tag, a null marker, and for strings a length
// prefix, so distinct tuples never collide byte-wise.
type keyEncoder func(buf []byte, row int) []byte

func newKeyEncoder(arr arrow.Array) (keyEncoder, error) {
	switch typed := arr.(type) {
	case *array.Int64:
		return func(buf []byte, row int) []byte {
			if typed.IsNull(row) {
				return append(buf, 'i', 0)
			}
			buf = append(buf, 'i', 1)
			return binary.BigEndian.AppendUint64(buf, uint64(typed.Value(row)))
		}, nil
	case *array.Float64:
		return func(buf []byte, row int) []byte {
			if typed.IsNull(row) {
				return append(buf, 'f', 0)
			}
			buf = append(buf, 'f', 1)
			return binary.BigEndian.AppendUint64(buf, math.Float64bits(typed.Value(row)))
		}, nil
	case *array.String:
		return func(buf []byte, row int) []byte {
			if typed.IsNull(row) {
				return append(buf, 's', 0)
			}
			val := typed.Value(row)
			buf = append(buf, 's', 1)
			buf = binary.AppendUvarint(buf, uint64(len(val)))
			return append(buf, val...)
		}, nil
	case *array.Boolean:
		return func(buf []byte, row int) []byte {
			if typed.IsNull(row) {
				return append(buf, 'b', 0)
			}
			if typed.Value(row) {
				return append(buf, 'b', 1, 1)
			}
			return append(buf, 'b', 1, 0)
		}, nil
	default:
		return nil, errors.NewTypeMismatchError("GroupBy", "",
			"unsupported key column type "+arr.DataType().String())
	}
}

// groupMap maps encoded key tuples to group ids using xxhash bucketing with
// exact key comparison on collision.
type groupMap struct {
	buckets  [][]groupEntry
	capacity int
	size     int
}

type groupEntry struct {
	key string
	id  int
}

const groupMapLoadFactor = 0.75

func newGroupMap(estimatedSize int) *groupMap {
	capacity := nextPowerOfTwo(estimatedSize/4 + 1)
	return &groupMap{
		buckets:  make([][]groupEntry, capacity),
		capacity: capacity,
	}
}

func (gm *groupMap) lookup(key []byte) (int, bool) {
	idx := int(xxhash.Sum64(key) & uint64(gm.capacity-1))
	for _, entry := range gm.buckets[idx] {
		if entry.key == string(key) {
			return entry.id, true
		}
	}
	return 0, false
}

func (gm *groupMap) insert(key []byte, id int) int {
	idx := int(xxhash.Sum64(key) & uint64(gm.capacity-1))
	gm.buckets[idx] = append(gm.buckets[idx], groupEntry{key: string(key), id: id})
	gm.size++
	if float64(gm.size) > float64(gm.capacity)*groupMapLoadFactor {
		gm.resize()
	}
	return id
}

func (gm *groupMap) resize() {
	newCapacity := gm.capacity * 2
	newBuckets := make([][]groupEntry, newCapacity)
	for _, bucket := range gm.buckets {
		for _, entry := range bucket {
			idx := int(xxhash.Sum64String(entry.key) & uint64(newCapacity-1))
			newBuckets[idx] = append(newBuckets[idx], entry)
		}
	}
	gm.buckets = newBuckets
	gm.capacity = newCapacity
}

// nextPowerOfTwo returns the next power of two >= n.
func nextPowerOfTwo(n int) int {
	power := 1
	for power < n {
		power <<= 1
	}
	return power
}

// Agg resolves the spec against the source frame and materializes the
// aggregated result: one row per group in first-occurrence order, key
// columns first, then one output column per resolved (column, operator)
// pair. Resolution errors abort the call before any aggregation runs.
func (gb *GroupBy) Agg(spec Spec) (*Frame, error) {
	resolved, err := spec.resolve(gb.f, gb.keyCols)
	if err != nil {
		return nil, err
	}

	mem := memory.NewGoAllocator()

	firstRows := make([]int, len(gb.groups))
	for i, g := range gb.groups {
		firstRows[i] = g.firstRow
	}

	result := make([]ISeries, 0, len(gb.keyCols)+len(resolved))
	releaseAll := func() {
		for _, col := range result {
			col.Release()
		}
	}

	for _, name := range gb.keyCols {
		keyCol, takeErr := takeColumn(gb.f.columns[name], firstRows, mem)
		if takeErr != nil {
			releaseAll()
			return nil, takeErr
		}
		result = append(result, keyCol)
	}

	cfg := config.GetGlobalConfig()
	if len(resolved) > 1 && gb.f.Len() >= cfg.ParallelThreshold {
		outputs, aggErr := gb.aggParallel(resolved, cfg.WorkerPoolSize)
		if aggErr != nil {
			releaseAll()
			return nil, aggErr
		}
		result = append(result, outputs...)
	} else {
		for _, agg := range resolved {
			col, aggErr := gb.aggregateOne(agg, mem)
			if aggErr != nil {
				releaseAll()
				return nil, aggErr
			}
			result = append(result, col)
		}
	}

	return New(result...), nil
}

// aggParallel computes the resolved outputs across a worker pool. Each
// output column is independent, so the only coordination needed is
// order-preserving collection.
func (gb *GroupBy) aggParallel(resolved []resolvedAgg, poolSize int) ([]ISeries, error) {
	pool := parallel.NewWorkerPool(poolSize)
	defer pool.Close()

	type aggResult struct {
		col ISeries
		err error
	}

	results := parallel.ProcessIndexed(pool, resolved, func(_ int, agg resolvedAgg) aggResult {
		// Each worker gets its own allocator so output buffers are never
		// shared across goroutines.
		col, err := gb.aggregateOne(agg, memory.NewGoAllocator())
		return aggResult{col: col, err: err}
	})

	outputs := make([]ISeries, 0, len(results))
	for _, res := range results {
		if res.err != nil {
			for _, r := range results {
				if r.col != nil {
					r.col.Release()
				}
			}
			return nil, res.err
		}
		outputs = append(outputs, res.col)
	}
	return outputs, nil
}

// aggregateOne computes a single output column over all groups.
func (gb *GroupBy) aggregateOne(agg resolvedAgg, mem memory.Allocator) (ISeries, error) {
	col, ok := gb.f.Column(agg.column)
	if !ok {
		return nil, errors.NewUnknownColumnError("Agg", agg.column)
	}
	arr := col.Array()
	defer arr.Release()

	return aggregateColumn(agg.output, arr, gb.groups, agg.op, mem)
}

// Blanket convenience forms, applying one operator to every non-key column.

// Sum aggregates every non-key column by sum.
func (gb *GroupBy) Sum() (*Frame, error) { return gb.Agg(Blanket(Sum)) }

// Mean aggregates every non-key column by arithmetic mean.
func (gb *GroupBy) Mean() (*Frame, error) { return gb.Agg(Blanket(Mean)) }

// Median aggregates every non-key column by median.
func (gb *GroupBy) Median() (*Frame, error) { return gb.Agg(Blanket(Median)) }

// Min aggregates every non-key column by minimum.
func (gb *GroupBy) Min() (*Frame, error) { return gb.Agg(Blanket(Min)) }

// Max aggregates every non-key column by maximum.
func (gb *GroupBy) Max() (*Frame, error) { return gb.Agg(Blanket(Max)) }

// Count counts non-null entries of every non-key column per group.
func (gb *GroupBy) Count() (*Frame, error) { return gb.Agg(Blanket(Count)) }

// First takes the first row's value of every non-key column per group.
func (gb *GroupBy) First() (*Frame, error) { return gb.Agg(Blanket(First)) }

// Last takes the last row's value of every non-key column per group.
func (gb *GroupBy) Last() (*Frame, error) { return gb.Agg(Blanket(Last)) }

// NUnique counts distinct values of every non-key column per group.
func (gb *GroupBy) NUnique() (*Frame, error) { return gb.Agg(Blanket(NUnique)) }

// AggList materializes every non-key column's group values as lists.
func (gb *GroupBy) AggList() (*Frame, error) { return gb.Agg(Blanket(AggList)) }

// Head collects the first n rows of every non-key column per group.
func (gb *GroupBy) Head(n int) (*Frame, error) { return gb.Agg(Blanket(Head(n))) }

// Tail collects the last n rows of every non-key column per group.
func (gb *GroupBy) Tail(n int) (*Frame, error) { return gb.Agg(Blanket(Tail(n))) }
