package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
	"github.com/arkilian/tpchq5/internal/index"
	"github.com/arkilian/tpchq5/internal/query/aggregator"
	"github.com/arkilian/tpchq5/internal/tpchtest"
)

var asia1994 = index.Filter{Region: "ASIA", StartDate: "1994-01-01", EndDate: "1995-01-01"}

func reference(t *testing.T, ds *tpchtest.Dataset, f index.Filter) []aggregator.Result {
	t.Helper()
	e, err := NewSQLiteExecutor()
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	require.NoError(t, e.Load(ctx, ds.Tables()))
	results, err := e.Revenue(ctx, f)
	require.NoError(t, err)
	return results
}

func TestSQLiteExecutor_India(t *testing.T) {
	results := reference(t, tpchtest.India(), asia1994)
	require.Len(t, results, 1)
	assert.Equal(t, "INDIA", results[0].Nation)
	assert.InDelta(t, 1900.0, results[0].Revenue, 1e-9)
	assert.Equal(t, int64(1), results[0].LineItems)
}

func TestSQLiteExecutor_MatchesEngine(t *testing.T) {
	for _, seed := range []int64{1, 42, 2024} {
		ds := tpchtest.Random(seed, 200, 20, 1500, 20000)
		tables := ds.Tables()

		ix, err := index.NewBuilder(nil).Build(tables, asia1994)
		require.NoError(t, err)
		acc, _, err := aggregator.NewScanner(nil).Scan(context.Background(), tables.LineItem.Rows, ix, 4)
		require.NoError(t, err)

		want := reference(t, ds, asia1994)
		require.NotEmpty(t, want)
		assert.NoError(t, Compare(acc.Results(), want, 1e-6), "seed %d", seed)
	}
}

func engineResults(t *testing.T, ds *tpchtest.Dataset, f index.Filter) []aggregator.Result {
	t.Helper()
	tables := ds.Tables()
	ix, err := index.NewBuilder(nil).Build(tables, f)
	require.NoError(t, err)
	acc, _, err := aggregator.NewScanner(nil).Scan(context.Background(), tables.LineItem.Rows, ix, 3)
	require.NoError(t, err)
	results := acc.Results()
	aggregator.SortByRevenue(results)
	return results
}

// duplicateKeysDataset repeats customer, supplier and order keys and mixes
// in lineitems whose numbers do not parse.
func duplicateKeysDataset() *tpchtest.Dataset {
	return tpchtest.India().
		Nation("12", "JAPAN", "2").
		Customer("1", "8"). // same nation again
		Customer("2", "8").
		Customer("2", "12"). // moves to JAPAN
		Customer("3", "12").
		Customer("3", "99"). // unknown nation, earlier row stays
		Supplier("2", "12").
		Supplier("2", "12").
		Order("100", "1", "1993-01-01"). // out of range, earlier row stays
		Order("200", "2", "1994-06-01").
		Order("300", "3", "1994-07-01").
		Order("400", "1", "1994-02-01").
		Order("400", "2", "1994-03-01"). // now a JAPAN customer
		LineItem("200", "2", "500.00", "0.00").
		LineItem("300", "2", "100.00", "0.10").
		LineItem("400", "2", "10.00", "0.00").
		LineItem("100", "1", "12x.00", "0.05").
		LineItem("100", "1", "300.00", "abc")
}

func TestSQLiteExecutor_DuplicateKeysAndBadNumbers(t *testing.T) {
	ds := duplicateKeysDataset()

	got := engineResults(t, ds, asia1994)
	require.Len(t, got, 2)
	assert.Equal(t, "INDIA", got[0].Nation)
	assert.InDelta(t, 1900.0, got[0].Revenue, 1e-9)
	assert.Equal(t, "JAPAN", got[1].Nation)
	assert.InDelta(t, 600.0, got[1].Revenue, 1e-9)

	want := reference(t, ds, asia1994)
	assert.NoError(t, Compare(got, want, 1e-6))
	for _, r := range want {
		switch r.Nation {
		case "INDIA":
			assert.Equal(t, int64(1), r.LineItems)
		case "JAPAN":
			assert.Equal(t, int64(3), r.LineItems)
		}
	}
}

func TestSQLiteExecutor_NoMatches(t *testing.T) {
	results := reference(t, tpchtest.India(), index.Filter{Region: "AFRICA", StartDate: "1994-01-01", EndDate: "1995-01-01"})
	assert.Empty(t, results)
}

func TestCompare(t *testing.T) {
	want := []aggregator.Result{{Nation: "INDIA", Revenue: 1000}, {Nation: "CHINA", Revenue: 500}}

	assert.NoError(t, Compare([]aggregator.Result{
		{Nation: "CHINA", Revenue: 500.0000001},
		{Nation: "INDIA", Revenue: 1000},
	}, want, 1e-6))

	err := Compare([]aggregator.Result{{Nation: "INDIA", Revenue: 1001}, {Nation: "JAPAN", Revenue: 1}}, want, 1e-6)
	require.Error(t, err)
	assert.Equal(t, engerrors.CodeVerificationMismatch, engerrors.GetCode(err))
	assert.Contains(t, err.Error(), "CHINA: missing")
	assert.Contains(t, err.Error(), "JAPAN: unexpected")
	assert.Contains(t, err.Error(), "INDIA: 1001.0000 != 1000.0000")
}
