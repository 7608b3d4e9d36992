package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/arkilian/tpchq5/internal/config"
	engerrors "github.com/arkilian/tpchq5/internal/errors"
)

const usageLine = "Usage: tpch-q5 --r_name ASIA --start_date 1994-01-01 --end_date 1995-01-01 " +
	"--threads 4 --table_path /path/to/tables --result_path /path/to/results"

// parseArgs builds the run configuration. Sources are applied in order:
// defaults, --config file, TPCHQ5_* environment, then flags given on the
// command line. The returned FlagSet is nil when flag parsing failed; the
// flag package has already reported that error along with usage.
func parseArgs(args []string, stderr io.Writer) (*config.Config, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("tpch-q5", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), usageLine)
		fmt.Fprintln(fs.Output())
		fmt.Fprintln(fs.Output(), "Flags:")
		fs.PrintDefaults()
	}

	var (
		configPath string
		flags      = config.DefaultConfig()
	)
	fs.StringVar(&configPath, "config", "", "YAML or JSON configuration file")
	fs.StringVar(&flags.Query.RegionName, "r_name", "", "Region name to filter on (required)")
	fs.StringVar(&flags.Query.StartDate, "start_date", "", "Inclusive start of the order date range, YYYY-MM-DD (required)")
	fs.StringVar(&flags.Query.EndDate, "end_date", "", "Exclusive end of the order date range, YYYY-MM-DD (required)")
	fs.IntVar(&flags.Query.Threads, "threads", 0, "Number of scan workers (required)")
	fs.StringVar(&flags.Query.TablePath, "table_path", "", "Directory holding the .tbl files, or key prefix for s3 storage (required)")
	fs.StringVar(&flags.Query.ResultPath, "result_path", "", "Result file to write (required)")
	fs.BoolVar(&flags.Verify, "verify", false, "Cross-check the result with the SQLite reference executor")
	fs.StringVar(&flags.MetricsPath, "metrics_path", "", "Write Prometheus metrics to this textfile after the run")
	fs.StringVar(&flags.ResultObject, "result_object", "", "Upload the result file to this storage key")
	fs.StringVar(&flags.Storage.Type, "storage", flags.Storage.Type, "Storage type: local or s3")
	fs.StringVar(&flags.Storage.Path, "storage_path", "", "Local storage root results are published under")
	fs.StringVar(&flags.Storage.S3.Bucket, "s3_bucket", "", "S3 bucket")
	fs.StringVar(&flags.Storage.S3.Region, "s3_region", "", "S3 region")
	fs.StringVar(&flags.Storage.S3.Endpoint, "s3_endpoint", "", "S3 endpoint for S3-compatible storage")
	fs.StringVar(&flags.WorkDir, "work_dir", "", "Directory downloaded tables are staged in")
	fs.StringVar(&flags.LogLevel, "log_level", flags.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, fs, err
		}
		return nil, nil, engerrors.NewConfigError(engerrors.CodeInvalidArgument, err.Error())
	}
	if fs.NArg() > 0 {
		return nil, fs, engerrors.NewConfigError(engerrors.CodeInvalidArgument,
			"unexpected argument: "+strings.Join(fs.Args(), " "))
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fs, engerrors.Wrap(engerrors.ErrCategoryConfig, engerrors.CodeInvalidArgument, "load "+configPath, err)
		}
		cfg = loaded
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, fs, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "r_name":
			cfg.Query.RegionName = flags.Query.RegionName
		case "start_date":
			cfg.Query.StartDate = flags.Query.StartDate
		case "end_date":
			cfg.Query.EndDate = flags.Query.EndDate
		case "threads":
			cfg.Query.Threads = flags.Query.Threads
		case "table_path":
			cfg.Query.TablePath = flags.Query.TablePath
		case "result_path":
			cfg.Query.ResultPath = flags.Query.ResultPath
		case "verify":
			cfg.Verify = flags.Verify
		case "metrics_path":
			cfg.MetricsPath = flags.MetricsPath
		case "result_object":
			cfg.ResultObject = flags.ResultObject
		case "storage":
			cfg.Storage.Type = flags.Storage.Type
		case "storage_path":
			cfg.Storage.Path = flags.Storage.Path
		case "s3_bucket":
			cfg.Storage.S3.Bucket = flags.Storage.S3.Bucket
		case "s3_region":
			cfg.Storage.S3.Region = flags.Storage.S3.Region
		case "s3_endpoint":
			cfg.Storage.S3.Endpoint = flags.Storage.S3.Endpoint
		case "work_dir":
			cfg.WorkDir = flags.WorkDir
		case "log_level":
			cfg.LogLevel = flags.LogLevel
		}
	})

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fs, err
	}
	return cfg, fs, nil
}
