package aggregator

import (
	"context"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/tpchq5/internal/index"
	"github.com/arkilian/tpchq5/internal/tpchtest"
	"github.com/arkilian/tpchq5/pkg/types"
)

var asia1994 = index.Filter{Region: "ASIA", StartDate: "1994-01-01", EndDate: "1995-01-01"}

func scan(t *testing.T, ds *tpchtest.Dataset, f index.Filter, threads int) ([]Result, ScanStats) {
	t.Helper()
	tables := ds.Tables()
	ix, err := index.NewBuilder(nil).Build(tables, f)
	require.NoError(t, err)

	acc, stats, err := NewScanner(nil).Scan(context.Background(), tables.LineItem.Rows, ix, threads)
	require.NoError(t, err)

	results := acc.Results()
	SortByRevenue(results)
	return results, stats
}

func TestScan_India(t *testing.T) {
	results, stats := scan(t, tpchtest.India(), asia1994, 4)

	require.Len(t, results, 1)
	assert.Equal(t, "INDIA", results[0].Nation)
	assert.InDelta(t, 1900.0, results[0].Revenue, 1e-9)
	assert.Equal(t, int64(1), results[0].LineItems)
	assert.Equal(t, ScanStats{Partitions: 1, Scanned: 1, Matched: 1}, stats)
}

func TestScan_RevenueFormula(t *testing.T) {
	ds := tpchtest.New().
		Region("2", "ASIA").
		Nation("8", "INDIA", "2").
		Customer("1", "8").
		Supplier("1", "8").
		Order("100", "1", "1994-03-01").
		LineItem("100", "1", "1000.00", "0.10")

	results, _ := scan(t, ds, asia1994, 1)
	require.Len(t, results, 1)
	assert.InDelta(t, 900.0, results[0].Revenue, 1e-9)
}

func TestScan_SameNationRequired(t *testing.T) {
	ds := tpchtest.India().
		Nation("9", "INDONESIA", "2").
		Supplier("2", "9").
		LineItem("100", "2", "5000.00", "0.00")

	results, stats := scan(t, ds, asia1994, 2)
	require.Len(t, results, 1)
	assert.Equal(t, "INDIA", results[0].Nation)
	assert.InDelta(t, 1900.0, results[0].Revenue, 1e-9)
	assert.Equal(t, int64(2), stats.Scanned)
	assert.Equal(t, int64(1), stats.Matched)
}

func TestScan_OtherRegionExcluded(t *testing.T) {
	ds := tpchtest.India().
		Region("3", "EUROPE").
		Nation("7", "GERMANY", "3").
		Customer("2", "7").
		Supplier("2", "7").
		Order("200", "2", "1994-05-05").
		LineItem("200", "2", "3000.00", "0.00")

	results, _ := scan(t, ds, asia1994, 3)
	for _, r := range results {
		assert.NotEqual(t, "GERMANY", r.Nation)
	}
	require.Len(t, results, 1)
}

func TestScan_DateBoundaries(t *testing.T) {
	ds := tpchtest.India().
		Order("101", "1", "1994-01-01").
		Order("102", "1", "1995-01-01").
		Order("103", "1", "1993-12-31").
		LineItem("101", "1", "100.00", "0.00").
		LineItem("102", "1", "10000.00", "0.00").
		LineItem("103", "1", "20000.00", "0.00")

	results, _ := scan(t, ds, asia1994, 2)
	require.Len(t, results, 1)
	assert.InDelta(t, 2000.0, results[0].Revenue, 1e-9)
}

func TestScan_EmptyResult(t *testing.T) {
	results, stats := scan(t, tpchtest.India(), index.Filter{Region: "ASIA", StartDate: "1996-01-01", EndDate: "1997-01-01"}, 8)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), stats.Matched)
}

func TestScan_NoLineItems(t *testing.T) {
	ds := tpchtest.New().Region("2", "ASIA")
	results, stats := scan(t, ds, asia1994, 4)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.Partitions)
}

func TestScan_DuplicateKeysFollowLaterRow(t *testing.T) {
	ds := tpchtest.India().
		Nation("12", "JAPAN", "2").
		Customer("1", "12").
		Supplier("1", "12")

	results, stats := scan(t, ds, asia1994, 2)

	require.Len(t, results, 1)
	assert.Equal(t, "JAPAN", results[0].Nation)
	assert.InDelta(t, 1900.0, results[0].Revenue, 1e-9)
	assert.Equal(t, int64(1), stats.Matched)
}

func TestScan_DuplicateCustomerInOtherNationDropsRow(t *testing.T) {
	ds := tpchtest.India().
		Nation("12", "JAPAN", "2").
		Customer("1", "12")

	results, _ := scan(t, ds, asia1994, 2)
	assert.Empty(t, results, "customer now in JAPAN, supplier still in INDIA")
}

func TestScan_InvalidNumbersSkipped(t *testing.T) {
	ds := tpchtest.India().
		LineItem("100", "1", "12x.00", "0.05").
		LineItem("100", "1", "100.00", "ten percent").
		LineItem("100", "1", "100.00", "0.00")

	results, stats := scan(t, ds, asia1994, 2)
	require.Len(t, results, 1)
	assert.InDelta(t, 2000.0, results[0].Revenue, 1e-9)
	assert.Equal(t, int64(2), stats.Skipped)
	assert.Equal(t, int64(2), stats.Matched)
}

func TestScan_InvalidNumbersOutsideFilterIgnored(t *testing.T) {
	ds := tpchtest.India().LineItem("999", "1", "garbage", "garbage")

	_, stats := scan(t, ds, asia1994, 1)
	assert.Equal(t, int64(0), stats.Skipped)
}

func TestScan_InvalidThreads(t *testing.T) {
	tables := tpchtest.India().Tables()
	ix, err := index.NewBuilder(nil).Build(tables, asia1994)
	require.NoError(t, err)

	_, _, err = NewScanner(nil).Scan(context.Background(), tables.LineItem.Rows, ix, 0)
	assert.Error(t, err)
}

func TestScan_OneMergePerPartition(t *testing.T) {
	ds := tpchtest.Random(7, 50, 10, 200, 1000)
	tables := ds.Tables()
	ix, err := index.NewBuilder(nil).Build(tables, asia1994)
	require.NoError(t, err)

	acc, stats, err := NewScanner(nil).Scan(context.Background(), tables.LineItem.Rows, ix, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Partitions)
	assert.Equal(t, 6, acc.Merges())
	assert.Equal(t, int64(1000), stats.Scanned)
}

func TestScan_WithoutOrderFilter(t *testing.T) {
	tables := tpchtest.India().Tables()
	ix, err := index.NewBuilder(nil).Build(tables, asia1994)
	require.NoError(t, err)
	ix.OrderFilter = nil

	acc, _, err := NewScanner(nil).Scan(context.Background(), tables.LineItem.Rows, ix, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.Len())
}

// sequential is the single-accumulator reference the parallel scan must match.
func sequential(tables *types.Tables, ix *index.Indexes) map[string]float64 {
	out := make(map[string]float64)
	for _, row := range tables.LineItem.Rows {
		li := row.AsLineItem()
		custKey, ok := ix.EligibleOrders[li.OrderKey]
		if !ok {
			continue
		}
		sn, ok := ix.SupplierNation[li.SuppKey]
		if !ok || ix.CustomerNation[custKey] != sn {
			continue
		}
		rev, err := ComputeRevenue(li.ExtendedPrice, li.Discount)
		if err != nil {
			continue
		}
		out[ix.NationNames[sn]] += rev
	}
	return out
}

func TestScan_ThreadCountInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("any thread count matches the sequential sum", prop.ForAll(
		func(seed int64, threads int) bool {
			tables := tpchtest.Random(seed, 40, 8, 150, 600).Tables()
			ix, err := index.NewBuilder(nil).Build(tables, asia1994)
			if err != nil {
				return false
			}
			acc, _, err := NewScanner(nil).Scan(context.Background(), tables.LineItem.Rows, ix, threads)
			if err != nil {
				return false
			}

			want := sequential(tables, ix)
			got := acc.Results()
			if len(got) != len(want) {
				return false
			}
			for _, r := range got {
				w, ok := want[r.Nation]
				if !ok {
					return false
				}
				if math.Abs(r.Revenue-w) > 1e-6*math.Max(1, math.Abs(w)) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(1, 1_000_000),
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t)
}
