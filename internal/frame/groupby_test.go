package frame_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmot-data/marmot/internal/config"
	"github.com/marmot-data/marmot/internal/errors"
	"github.com/marmot-data/marmot/internal/frame"
	"github.com/marmot-data/marmot/internal/series"
	"github.com/marmot-data/marmot/internal/testutil"
)

// groupSorted groups the standard fixture by name and sorts the result by
// name, giving deterministic row order a, b, c.
func groupSorted(t *testing.T, f *frame.Frame, spec frame.Spec) *frame.Frame {
	t.Helper()
	gb, err := f.GroupBy("name")
	require.NoError(t, err)
	result, err := gb.Agg(spec)
	require.NoError(t, err)
	defer result.Release()
	sorted, err := result.SortBy("name")
	require.NoError(t, err)
	return sorted
}

func TestGroupBySum(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Blanket(frame.Sum))
	defer result.Release()

	assert.Equal(t, []string{"name", "foo_sum", "bar_sum"}, result.Columns())
	assert.Equal(t, []string{"a", "b", "c"}, testutil.StringValues(t, result, "name"))
	assert.Equal(t, []int64{4, 10, 5}, testutil.Int64Values(t, result, "foo_sum"))
	assert.Equal(t, []float64{6, 12, 6}, testutil.Float64Values(t, result, "bar_sum"))
}

func TestGroupByMin(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Explicit(frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Min}}))
	defer result.Release()

	assert.Equal(t, []int64{1, 3, 5}, testutil.Int64Values(t, result, "foo_min"))
}

func TestGroupByMax(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Explicit(frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Max}}))
	defer result.Release()

	assert.Equal(t, []int64{3, 7, 5}, testutil.Int64Values(t, result, "foo_max"))
}

func TestGroupByCountPerColumn(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Blanket(frame.Count))
	defer result.Release()

	// Blanket count yields one count column per non-key column, not a
	// single group-size column.
	assert.Equal(t, []string{"name", "foo_count", "bar_count"}, result.Columns())
	assert.Equal(t, []int64{2, 2, 1}, testutil.Int64Values(t, result, "foo_count"))
	assert.Equal(t, []int64{2, 2, 1}, testutil.Int64Values(t, result, "bar_count"))
}

func TestGroupByCountSkipsNulls(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator, testutil.WithNulls())
	defer f.Release()

	result := groupSorted(t, f, frame.Blanket(frame.Count))
	defer result.Release()

	// foo[2] (group a) and bar[4] (group b) are null
	assert.Equal(t, []int64{1, 2, 1}, testutil.Int64Values(t, result, "foo_count"))
	assert.Equal(t, []int64{2, 1, 1}, testutil.Int64Values(t, result, "bar_count"))
}

func TestGroupByMeanAndMedian(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Spec{}.Col("foo", frame.Mean, frame.Median).Col("bar", frame.Mean))
	defer result.Release()

	assert.Equal(t, []float64{2, 5, 5}, testutil.Float64Values(t, result, "foo_mean"))
	assert.Equal(t, []float64{2, 5, 5}, testutil.Float64Values(t, result, "foo_median"))
	assert.Equal(t, []float64{3, 6, 6}, testutil.Float64Values(t, result, "bar_mean"))

	// Mean of an int column is always float64
	col, ok := result.Column("foo_mean")
	require.True(t, ok)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, col.DataType())
}

func TestGroupByMedianEvenCount(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	f := frame.New(
		series.New("name", []string{"a", "a", "a", "a"}, mem.Allocator),
		series.New("foo", []int64{4, 1, 3, 2}, mem.Allocator),
	)
	defer f.Release()

	gb, err := f.GroupBy("name")
	require.NoError(t, err)
	result, err := gb.Agg(frame.Blanket(frame.Median))
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []float64{2.5}, testutil.Float64Values(t, result, "foo_median"))
}

func TestGroupByAggList(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Explicit(frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.AggList}}))
	defer result.Release()

	lists := testutil.Int64Lists(t, result, "foo_agg_list")
	assert.Equal(t, [][]int64{{1, 3}, {3, 7}, {5}}, lists)
}

func TestGroupByAggListIncludesNulls(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator, testutil.WithNulls())
	defer f.Release()

	result := groupSorted(t, f, frame.Explicit(frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.AggList}}))
	defer result.Release()

	col, ok := result.Column("foo_agg_list")
	require.True(t, ok)
	// Group a keeps its null element in natural row order
	assert.Equal(t, "[1, null]", col.GetAsString(0))
}

func TestGroupByMultipleOpsOneColumn(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Spec{}.Col("foo", frame.Min, frame.First, frame.Last))
	defer result.Release()

	assert.Equal(t, []string{"name", "foo_min", "foo_first", "foo_last"}, result.Columns())
	assert.Equal(t, []int64{1, 3, 5}, testutil.Int64Values(t, result, "foo_min"))
	assert.Equal(t, []int64{1, 3, 5}, testutil.Int64Values(t, result, "foo_first"))
	assert.Equal(t, []int64{3, 7, 5}, testutil.Int64Values(t, result, "foo_last"))
}

func TestGroupByHeadAndTail(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	head := groupSorted(t, f, frame.Explicit(frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Head(1)}}))
	defer head.Release()
	assert.Equal(t, [][]int64{{1}, {3}, {5}}, testutil.Int64Lists(t, head, "foo"))

	tail := groupSorted(t, f, frame.Explicit(frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Tail(1)}}))
	defer tail.Release()
	assert.Equal(t, [][]int64{{3}, {7}, {5}}, testutil.Int64Lists(t, tail, "foo"))
}

func TestGroupByHeadLargerThanGroup(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Explicit(frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Head(10)}}))
	defer result.Release()

	assert.Equal(t, [][]int64{{1, 3}, {3, 7}, {5}}, testutil.Int64Lists(t, result, "foo"))
}

func TestGroupByNUnique(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	f := frame.New(
		series.New("name", []string{"a", "a", "a", "b"}, mem.Allocator),
		series.NewWithNulls("foo", []int64{1, 1, 0, 2}, []bool{true, true, false, true}, mem.Allocator),
	)
	defer f.Release()

	gb, err := f.GroupBy("name")
	require.NoError(t, err)
	result, err := gb.Agg(frame.Blanket(frame.NUnique))
	require.NoError(t, err)
	defer result.Release()

	// Group a has values {1, 1, null}: one distinct value plus null
	assert.Equal(t, []int64{2, 1}, testutil.Int64Values(t, result, "foo_n_unique"))
}

func TestGroupByAllNullGroupYieldsNullReductions(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	f := frame.New(
		series.New("name", []string{"a", "b"}, mem.Allocator),
		series.NewWithNulls("foo", []int64{0, 7}, []bool{false, true}, mem.Allocator),
	)
	defer f.Release()

	gb, err := f.GroupBy("name")
	require.NoError(t, err)
	result, err := gb.Agg(frame.Spec{}.Col("foo", frame.Min, frame.Max, frame.Sum, frame.Mean, frame.Median, frame.Count))
	require.NoError(t, err)
	defer result.Release()

	for _, name := range []string{"foo_min", "foo_max", "foo_sum", "foo_mean", "foo_median"} {
		col, ok := result.Column(name)
		require.True(t, ok, name)
		assert.True(t, col.IsNull(0), "%s should be null for the all-null group", name)
		assert.False(t, col.IsNull(1), "%s should be present for group b", name)
	}

	assert.Equal(t, []int64{0, 1}, testutil.Int64Values(t, result, "foo_count"))
}

func TestGroupByStringMinMaxFirstLast(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	f := frame.New(
		series.New("name", []string{"g", "g", "g"}, mem.Allocator),
		series.New("city", []string{"osaka", "kyoto", "tokyo"}, mem.Allocator),
	)
	defer f.Release()

	gb, err := f.GroupBy("name")
	require.NoError(t, err)
	result, err := gb.Agg(frame.Spec{}.Col("city", frame.Min, frame.Max, frame.First, frame.Last))
	require.NoError(t, err)
	defer result.Release()

	assert.Equal(t, []string{"kyoto"}, testutil.StringValues(t, result, "city_min"))
	assert.Equal(t, []string{"tokyo"}, testutil.StringValues(t, result, "city_max"))
	assert.Equal(t, []string{"osaka"}, testutil.StringValues(t, result, "city_first"))
	assert.Equal(t, []string{"tokyo"}, testutil.StringValues(t, result, "city_last"))
}

func TestGroupByFailureAtomicity(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	gb, err := f.GroupBy("name")
	require.NoError(t, err)

	result, err := gb.Agg(frame.Explicit(
		frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Sum}},
		frame.ColumnOps{Column: "missing", Ops: []frame.Op{frame.Sum}},
	))
	assert.Nil(t, result)
	assert.True(t, errors.IsKind(err, errors.KindUnknownColumn))

	result, err = gb.Agg(frame.Explicit(
		frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Sum}},
		frame.ColumnOps{Column: "name", Ops: []frame.Op{frame.Mean}},
	))
	assert.Nil(t, result)
	assert.True(t, errors.IsKind(err, errors.KindTypeMismatch))
}

func TestGroupByHeadOnKeyColumnKeepsColumnsUnique(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	gb, err := f.GroupBy("name")
	require.NoError(t, err)

	result, err := gb.Agg(frame.Explicit(frame.ColumnOps{Column: "name", Ops: []frame.Op{frame.Head(1)}}))
	require.NoError(t, err)
	defer result.Release()

	// The list output must not shadow the key column it was built from
	assert.Equal(t, []string{"name", "name_1"}, result.Columns())
	assert.Equal(t, result.Width(), len(result.Columns()))
	assert.Equal(t, []string{"a", "b", "c"}, testutil.StringValues(t, result, "name"))

	lists, ok := result.Column("name_1")
	require.True(t, ok)
	assert.Equal(t, "[a]", lists.GetAsString(0))
	assert.Equal(t, "[b]", lists.GetAsString(1))
	assert.Equal(t, "[c]", lists.GetAsString(2))
}

func TestGroupByDuplicateSpecEntriesKeepBothOutputs(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	result := groupSorted(t, f, frame.Explicit(
		frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Sum}},
		frame.ColumnOps{Column: "foo", Ops: []frame.Op{frame.Sum}},
	))
	defer result.Release()

	assert.Equal(t, []string{"name", "foo_sum", "foo_sum_1"}, result.Columns())
	assert.Equal(t, testutil.Int64Values(t, result, "foo_sum"), testutil.Int64Values(t, result, "foo_sum_1"))
}

func TestGroupByConvenienceMethods(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	gb, err := f.GroupBy("name")
	require.NoError(t, err)

	sum, err := gb.Sum()
	require.NoError(t, err)
	defer sum.Release()
	assert.Equal(t, []string{"name", "foo_sum", "bar_sum"}, sum.Columns())

	lists, err := gb.AggList()
	require.NoError(t, err)
	defer lists.Release()
	assert.Equal(t, []string{"name", "foo_agg_list", "bar_agg_list"}, lists.Columns())

	head, err := gb.Head(2)
	require.NoError(t, err)
	defer head.Release()
	assert.Equal(t, []string{"name", "foo", "bar"}, head.Columns())
}

func TestGroupByParallelMatchesSequential(t *testing.T) {
	original := config.GetGlobalConfig()
	defer config.SetGlobalConfig(original)

	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()
	f := testutil.CreateSalesFrame(mem.Allocator)
	defer f.Release()

	spec := frame.Spec{}.Col("foo", frame.Min, frame.Max, frame.Sum, frame.Mean).Col("bar", frame.Sum, frame.Count)

	sequential := groupSorted(t, f, spec)
	defer sequential.Release()

	lowered := config.NewConfig()
	lowered.ParallelThreshold = 1
	config.SetGlobalConfig(lowered)

	parallelResult := groupSorted(t, f, spec)
	defer parallelResult.Release()

	require.Equal(t, sequential.Columns(), parallelResult.Columns())
	assert.Equal(t,
		testutil.Int64Values(t, sequential, "foo_sum"),
		testutil.Int64Values(t, parallelResult, "foo_sum"))
	assert.Equal(t,
		testutil.Float64Values(t, sequential, "bar_sum"),
		testutil.Float64Values(t, parallelResult, "bar_sum"))
	assert.Equal(t,
		testutil.Int64Values(t, sequential, "bar_count"),
		testutil.Int64Values(t, parallelResult, "bar_count"))
}

func TestGroupByKeyColumnsKeepDtype(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	f := frame.New(
		series.New("id", []int64{7, 7, 9}, mem.Allocator),
		series.New("bar", []float64{1, 2, 3}, mem.Allocator),
	)
	defer f.Release()

	gb, err := f.GroupBy("id")
	require.NoError(t, err)
	result, err := gb.Sum()
	require.NoError(t, err)
	defer result.Release()

	col, ok := result.Column("id")
	require.True(t, ok)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, col.DataType())
	assert.Equal(t, []int64{7, 9}, testutil.Int64Values(t, result, "id"))
}
