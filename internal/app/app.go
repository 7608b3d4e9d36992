// Package app runs one regional revenue query end to end:
// load tables, build indexes, scan lineitem in parallel, report.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/arkilian/tpchq5/internal/config"
	"github.com/arkilian/tpchq5/internal/index"
	"github.com/arkilian/tpchq5/internal/loader"
	"github.com/arkilian/tpchq5/internal/observability"
	"github.com/arkilian/tpchq5/internal/query/aggregator"
	"github.com/arkilian/tpchq5/internal/query/executor"
	"github.com/arkilian/tpchq5/internal/report"
	"github.com/arkilian/tpchq5/internal/storage"
	"github.com/arkilian/tpchq5/pkg/types"
)

// VerifyTolerance is the relative difference allowed against the SQLite
// reference result.
const VerifyTolerance = 1e-6

// Runner executes a single query run.
type Runner struct {
	cfg     *config.Config
	runID   string
	logger  log.Logger
	stdout  io.Writer
	metrics *observability.Metrics
	stats   *observability.RunStats

	// source provides tables when they are not read from a local directory
	source storage.ObjectStorage
	// sink receives the published result
	sink storage.ObjectStorage
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger log.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithStdout sets where the result is echoed. The default is os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) { r.stdout = w }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithSource reads tables from st under the table path prefix.
func WithSource(st storage.ObjectStorage) Option {
	return func(r *Runner) { r.source = st }
}

// WithSink publishes results to st.
func WithSink(st storage.ObjectStorage) Option {
	return func(r *Runner) { r.sink = st }
}

// Summary describes a completed run.
type Summary struct {
	RunID   string
	Results []aggregator.Result
	Stats   observability.Snapshot
}

// New validates cfg and creates a Runner.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:    cfg,
		runID:  uuid.New().String(),
		logger: log.NewNopLogger(),
		stdout: os.Stdout,
		stats:  observability.NewRunStats(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.With(r.logger, "run_id", r.runID)
	return r, nil
}

// RunID returns the identifier attached to every log line of the run.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes the query. Any failure before the report phase leaves no
// result file behind.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if err := r.initStorage(ctx); err != nil {
		return nil, err
	}
	if r.cfg.MetricsPath != "" {
		defer func() {
			if err := r.metrics.WriteTextfile(r.cfg.MetricsPath); err != nil {
				level.Warn(r.logger).Log("msg", "failed to write metrics", "err", err)
			}
		}()
	}

	q := r.cfg.Query
	filter := index.Filter{Region: q.RegionName, StartDate: q.StartDate, EndDate: q.EndDate}

	tables, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	timer := r.metrics.PhaseTimer(observability.PhaseIndex)
	ix, err := index.NewBuilder(r.logger).Build(tables, filter)
	r.stats.RecordPhase(observability.PhaseIndex, timer.ObserveDuration())
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer = r.metrics.PhaseTimer(observability.PhaseScan)
	acc, scanStats, err := aggregator.NewScanner(r.logger).Scan(ctx, tables.LineItem.Rows, ix, q.Threads)
	r.stats.RecordPhase(observability.PhaseScan, timer.ObserveDuration())
	if err != nil {
		return nil, err
	}
	r.stats.AddScan(scanStats.Scanned, scanStats.Matched, scanStats.Skipped)
	r.stats.SetPartitions(scanStats.Partitions)
	r.metrics.ScanCompleted(scanStats.Scanned, scanStats.Matched, scanStats.Skipped)

	results := acc.Results()
	aggregator.SortByRevenue(results)
	r.stats.SetGroups(len(results))
	r.metrics.ResultGroups(len(results))

	if r.cfg.Verify {
		if err := r.verify(ctx, tables, filter, results); err != nil {
			return nil, err
		}
	}

	timer = r.metrics.PhaseTimer(observability.PhaseReport)
	err = report.NewWriter(r.stdout, r.logger).Write(q.ResultPath, results)
	r.stats.RecordPhase(observability.PhaseReport, timer.ObserveDuration())
	if err != nil {
		return nil, err
	}

	if r.cfg.ResultObject != "" {
		if err := report.Publish(ctx, r.sink, q.ResultPath, r.cfg.ResultObject); err != nil {
			return nil, err
		}
		level.Info(r.logger).Log("msg", "result published", "object", r.cfg.ResultObject)
	}

	return &Summary{RunID: r.runID, Results: results, Stats: r.stats.Snapshot()}, nil
}

func (r *Runner) initStorage(ctx context.Context) error {
	sc := r.cfg.Storage
	if sc.Type == config.StorageS3 && (r.source == nil || r.sink == nil) {
		s3Cfg := storage.DefaultS3Config()
		if sc.S3.Region != "" {
			s3Cfg.Region = sc.S3.Region
		}
		s3Cfg.Endpoint = sc.S3.Endpoint
		s3Cfg.UsePathStyle = sc.S3.UsePathStyle

		st, err := storage.NewS3Storage(ctx, sc.S3.Bucket, s3Cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		if r.source == nil {
			r.source = st
		}
		if r.sink == nil {
			r.sink = st
		}
	}

	if r.sink == nil && r.cfg.ResultObject != "" {
		st, err := storage.NewLocalStorage(sc.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		r.sink = st
	}
	return nil
}

func (r *Runner) load(ctx context.Context) (*types.Tables, error) {
	timer := r.metrics.PhaseTimer(observability.PhaseLoad)
	defer func() {
		r.stats.RecordPhase(observability.PhaseLoad, timer.ObserveDuration())
	}()

	l := loader.New(r.logger)
	dir := r.cfg.Query.TablePath
	if r.source != nil {
		dir = filepath.Join(r.cfg.WorkDir, r.runID)
		defer os.RemoveAll(dir)
		if err := l.Fetch(ctx, r.source, r.cfg.Query.TablePath, dir, r.cfg.DownloadConcurrency); err != nil {
			return nil, err
		}
	}

	tables, err := l.LoadAll(ctx, dir)
	if err != nil {
		return nil, err
	}

	var total int
	for _, schema := range types.Schemas() {
		tbl := tables.Get(schema.Name)
		r.stats.RecordTable(schema.Name, tbl.Len(), tbl.Dropped)
		r.metrics.TableLoaded(schema.Name, tbl.Len(), tbl.Dropped)
		total += tbl.Len()
	}
	level.Info(r.logger).Log("msg", fmt.Sprintf("loaded %s rows from %d tables", humanize.Comma(int64(total)), len(types.Schemas())))
	return tables, nil
}

func (r *Runner) verify(ctx context.Context, tables *types.Tables, f index.Filter, results []aggregator.Result) error {
	timer := r.metrics.PhaseTimer(observability.PhaseVerify)
	defer func() {
		r.stats.RecordPhase(observability.PhaseVerify, timer.ObserveDuration())
	}()

	e, err := executor.NewSQLiteExecutor()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Load(ctx, tables); err != nil {
		return err
	}
	want, err := e.Revenue(ctx, f)
	if err != nil {
		return err
	}
	if err := executor.Compare(results, want, VerifyTolerance); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "result verified against SQLite", "groups", len(want))
	return nil
}
