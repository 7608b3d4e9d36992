package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for a run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	rowsLoaded    *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	scanned       prometheus.Counter
	matched       prometheus.Counter
	skipped       prometheus.Counter
	phaseDuration *prometheus.HistogramVec
	resultGroups  prometheus.Gauge
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		reg: reg,
		rowsLoaded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "tpchq5",
			Name:      "rows_loaded_total",
			Help:      "Total number of rows loaded per table.",
		}, []string{"table"}),
		rowsDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "tpchq5",
			Name:      "rows_dropped_total",
			Help:      "Total number of lines dropped for having too few fields, per table.",
		}, []string{"table"}),
		scanned: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "tpchq5",
			Name:      "lineitems_scanned_total",
			Help:      "Total number of lineitem rows scanned.",
		}),
		matched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "tpchq5",
			Name:      "lineitems_matched_total",
			Help:      "Total number of lineitem rows that contributed revenue.",
		}),
		skipped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "tpchq5",
			Name:      "lineitems_skipped_total",
			Help:      "Total number of matching lineitem rows skipped for unparseable numbers.",
		}),
		phaseDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tpchq5",
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each phase of the run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
		resultGroups: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "tpchq5",
			Name:      "result_groups",
			Help:      "Number of nations in the result.",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// TableLoaded records a loaded table.
func (m *Metrics) TableLoaded(table string, rows, dropped int) {
	if m == nil {
		return
	}
	m.rowsLoaded.WithLabelValues(table).Add(float64(rows))
	m.rowsDropped.WithLabelValues(table).Add(float64(dropped))
}

// ScanCompleted records one worker's scan counters.
func (m *Metrics) ScanCompleted(scanned, matched, skipped int64) {
	if m == nil {
		return
	}
	m.scanned.Add(float64(scanned))
	m.matched.Add(float64(matched))
	m.skipped.Add(float64(skipped))
}

// ResultGroups records the number of result rows.
func (m *Metrics) ResultGroups(n int) {
	if m == nil {
		return
	}
	m.resultGroups.Set(float64(n))
}

// PhaseTimer starts a timer for phase. A nil Metrics still measures time.
func (m *Metrics) PhaseTimer(phase string) *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.phaseDuration.WithLabelValues(phase))
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("observability: write metrics: %w", err)
	}
	return nil
}
