// Package observability tracks run statistics and exports Prometheus
// metrics for a query run.
package observability

import (
	"sort"
	"sync"
	"time"
)

// Phases of a run, in execution order.
const (
	PhaseLoad   = "load"
	PhaseIndex  = "index"
	PhaseScan   = "scan"
	PhaseVerify = "verify"
	PhaseReport = "report"
)

// TableStats holds load statistics for one table.
type TableStats struct {
	Table   string
	Rows    int
	Dropped int
}

// RunStats collects statistics for one run. Safe for concurrent use.
type RunStats struct {
	mu         sync.Mutex
	tables     map[string]TableStats
	phases     map[string]time.Duration
	scanned    int64
	matched    int64
	skipped    int64
	partitions int
	groups     int
}

// Snapshot is a point-in-time copy of RunStats.
type Snapshot struct {
	Tables     []TableStats
	Phases     map[string]time.Duration
	Scanned    int64
	Matched    int64
	Skipped    int64
	Partitions int
	Groups     int
}

// NewRunStats creates an empty statistics collector.
func NewRunStats() *RunStats {
	return &RunStats{
		tables: make(map[string]TableStats),
		phases: make(map[string]time.Duration),
	}
}

// RecordTable records the load result of a table.
func (s *RunStats) RecordTable(table string, rows, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = TableStats{Table: table, Rows: rows, Dropped: dropped}
}

// RecordPhase records the wall-clock duration of a phase.
func (s *RunStats) RecordPhase(phase string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[phase] += d
}

// AddScan adds one worker's scan counters.
func (s *RunStats) AddScan(scanned, matched, skipped int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanned += scanned
	s.matched += matched
	s.skipped += skipped
}

// SetPartitions records how many scan partitions were run.
func (s *RunStats) SetPartitions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions = n
}

// SetGroups records the number of result groups.
func (s *RunStats) SetGroups(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = n
}

// Snapshot returns a copy of the statistics with tables sorted by name.
func (s *RunStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make([]TableStats, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Table < tables[j].Table
	})

	phases := make(map[string]time.Duration, len(s.phases))
	for k, v := range s.phases {
		phases[k] = v
	}

	return Snapshot{
		Tables:     tables,
		Phases:     phases,
		Scanned:    s.scanned,
		Matched:    s.matched,
		Skipped:    s.skipped,
		Partitions: s.partitions,
		Groups:     s.groups,
	}
}
