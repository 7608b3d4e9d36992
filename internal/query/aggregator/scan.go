package aggregator

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/arkilian/tpchq5/internal/index"
	"github.com/arkilian/tpchq5/internal/partition"
	"github.com/arkilian/tpchq5/pkg/types"
)

// ScanStats reports what a scan did.
type ScanStats struct {
	Partitions int
	Scanned    int64 // rows visited
	Matched    int64 // rows that contributed revenue
	Skipped    int64 // rows that matched but had unparseable numbers
}

// Scanner runs the partitioned revenue scan.
type Scanner struct {
	logger log.Logger
}

// NewScanner creates a Scanner. A nil logger discards output.
func NewScanner(logger log.Logger) *Scanner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Scanner{logger: log.With(logger, "component", "aggregator")}
}

// Scan splits rows into at most threads contiguous partitions and scans them
// concurrently. Each worker accumulates locally and merges into the returned
// accumulator once. ix must not be modified while Scan runs.
func (s *Scanner) Scan(ctx context.Context, rows []types.Row, ix *index.Indexes, threads int) (*ResultAccumulator, ScanStats, error) {
	ranges, err := partition.Split(len(rows), threads)
	if err != nil {
		return nil, ScanStats{}, err
	}
	if ix == nil {
		return nil, ScanStats{}, fmt.Errorf("aggregator: nil indexes")
	}

	level.Info(s.logger).Log("msg", "starting query execution", "threads", threads, "partitions", len(ranges), "rows", len(rows))

	acc := NewResultAccumulator()
	counts := make([]workerCounts, len(ranges))

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partial, c := s.scanPartition(rows[r.Start:r.End], ix, i)
			acc.Merge(partial)
			counts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ScanStats{}, err
	}

	stats := ScanStats{Partitions: len(ranges)}
	for _, c := range counts {
		stats.Scanned += c.scanned
		stats.Matched += c.matched
		stats.Skipped += c.skipped
	}

	level.Info(s.logger).Log("msg", "query execution completed", "matched", stats.Matched, "skipped", stats.Skipped, "groups", acc.Len())
	return acc, stats, nil
}

type workerCounts struct {
	scanned int64
	matched int64
	skipped int64
}

// scanPartition applies the join and filter to each row of one partition.
func (s *Scanner) scanPartition(rows []types.Row, ix *index.Indexes, worker int) (*PartialRevenue, workerCounts) {
	partial := NewPartialRevenue()
	var c workerCounts
	var firstErr error

	for _, row := range rows {
		c.scanned++

		orderKey := row[types.LineItemOrderKey]
		if ix.OrderFilter != nil && !ix.OrderFilter.MayContain(orderKey) {
			continue
		}
		custKey, ok := ix.EligibleOrders[orderKey]
		if !ok {
			continue
		}
		suppNation, ok := ix.SupplierNation[row[types.LineItemSuppKey]]
		if !ok {
			continue
		}
		custNation, ok := ix.CustomerNation[custKey]
		if !ok {
			continue
		}
		if custNation != suppNation {
			continue
		}
		if _, ok := ix.ValidNations[custNation]; !ok {
			continue
		}

		revenue, err := ComputeRevenue(row[types.LineItemExtendedPrice], row[types.LineItemDiscount])
		if err != nil {
			c.skipped++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		partial.Accumulate(ix.NationNames[custNation], revenue)
		c.matched++
	}

	if c.skipped > 0 {
		level.Warn(s.logger).Log("msg", "skipped lineitems with invalid numbers", "worker", worker, "skipped", c.skipped, "first_err", firstErr)
	}
	return partial, c
}
