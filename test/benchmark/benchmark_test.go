// Package benchmark provides performance benchmarks for the tpch-q5 pipeline.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/arkilian/tpchq5/internal/app"
	"github.com/arkilian/tpchq5/internal/bloom"
	"github.com/arkilian/tpchq5/internal/config"
	"github.com/arkilian/tpchq5/internal/index"
	"github.com/arkilian/tpchq5/internal/loader"
	"github.com/arkilian/tpchq5/internal/query/aggregator"
	"github.com/arkilian/tpchq5/internal/tpchtest"
)

var asia1994 = index.Filter{Region: "ASIA", StartDate: "1994-01-01", EndDate: "1995-01-01"}

// BenchmarkLoadTables measures parsing all six tables from disk.
func BenchmarkLoadTables(b *testing.B) {
	dir, cleanup := writeBenchDataset(b)
	defer cleanup()

	l := loader.New(nil)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := l.LoadAll(ctx, dir); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(benchLineItems*b.N)/b.Elapsed().Seconds(), "lineitems/sec")
}

// BenchmarkIndexBuild measures building the lookup indexes.
func BenchmarkIndexBuild(b *testing.B) {
	tables := tpchtest.Random(42, benchCustomers, benchSuppliers, benchOrders, benchLineItems).Tables()
	builder := index.NewBuilder(nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := builder.Build(tables, asia1994); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkScan measures the partitioned lineitem scan at several worker counts.
func BenchmarkScan(b *testing.B) {
	tables := tpchtest.Random(42, benchCustomers, benchSuppliers, benchOrders, benchLineItems).Tables()
	ix, err := index.NewBuilder(nil).Build(tables, asia1994)
	if err != nil {
		b.Fatal(err)
	}
	scanner := aggregator.NewScanner(nil)
	ctx := context.Background()

	for _, threads := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("threads=%d", threads), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := scanner.Scan(ctx, tables.LineItem.Rows, ix, threads); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(len(tables.LineItem.Rows)*b.N)/b.Elapsed().Seconds(), "rows/sec")
		})
	}
}

// BenchmarkComputeRevenue measures the per-row revenue arithmetic.
func BenchmarkComputeRevenue(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := aggregator.ComputeRevenue("36901.50", "0.07"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBloomFilterLookup measures order key pre-check lookups.
func BenchmarkBloomFilterLookup(b *testing.B) {
	filter := bloom.NewWithEstimates(benchOrders, 0.01)
	for i := 0; i < benchOrders; i++ {
		filter.Add(fmt.Sprintf("%d", i))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		filter.MayContain("7500")
	}
}

// BenchmarkBloomFilterFalsePositiveRate measures actual FPR against a 1% target.
func BenchmarkBloomFilterFalsePositiveRate(b *testing.B) {
	numItems := 10000
	filter := bloom.NewWithEstimates(numItems, 0.01)
	for i := 0; i < numItems; i++ {
		filter.Add(fmt.Sprintf("item_%d", i))
	}

	falsePositives := 0
	testCount := 100000
	for i := 0; i < testCount; i++ {
		if filter.MayContain(fmt.Sprintf("nonmember_%d", i)) {
			falsePositives++
		}
	}

	actualFPR := float64(falsePositives) / float64(testCount)
	b.ReportMetric(actualFPR*100, "FPR%")

	if actualFPR > 0.011 { // Allow 10% margin
		b.Errorf("False positive rate %.4f exceeds target 1.1%%", actualFPR)
	}
}

// BenchmarkRunFromStorage measures a full run with tables fetched from
// object storage.
func BenchmarkRunFromStorage(b *testing.B) {
	dir, cleanup := writeBenchDataset(b)
	defer cleanup()

	st, cleanupStorage := getBenchmarkStorage(b, "run")
	defer cleanupStorage()
	uploadTables(b, st, dir, "tables")

	outDir := b.TempDir()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cfg := config.DefaultConfig()
		cfg.Query = config.QueryConfig{
			RegionName: "ASIA",
			StartDate:  "1994-01-01",
			EndDate:    "1995-01-01",
			Threads:    4,
			TablePath:  "tables",
			ResultPath: filepath.Join(outDir, "result.tbl"),
		}
		cfg.WorkDir = outDir

		r, err := app.New(cfg, app.WithSource(st), app.WithStdout(io.Discard))
		if err != nil {
			b.Fatal(err)
		}
		if _, err := r.Run(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
