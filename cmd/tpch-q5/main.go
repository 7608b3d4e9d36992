// Package main implements the tpch-q5 binary.
// It computes TPC-H query 5 revenue per nation for one region and date range.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"

	"github.com/arkilian/tpchq5/internal/app"
	engerrors "github.com/arkilian/tpchq5/internal/errors"
	"github.com/arkilian/tpchq5/internal/logging"
	"github.com/arkilian/tpchq5/internal/observability"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	// A .env file in the working directory is optional.
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command with the process environment as it is; the
// .env file is loaded by main.
func run(args []string, stdout, stderr io.Writer) int {
	cfg, fs, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		if fs != nil {
			printError(stderr, err)
			fs.Usage()
		}
		return exitUsage
	}

	metrics := observability.NewMetrics()
	logger, err := logging.NewCounted(stderr, cfg.LogLevel, metrics.Registry())
	if err != nil {
		printError(stderr, err)
		return exitUsage
	}

	runner, err := app.New(cfg, app.WithLogger(logger), app.WithStdout(stdout), app.WithMetrics(metrics))
	if err != nil {
		printError(stderr, err)
		if engerrors.IsConfig(err) {
			fs.Usage()
			return exitUsage
		}
		return exitFailure
	}

	level.Info(logger).Log("msg", "Starting tpch-q5",
		"run_id", runner.RunID(),
		"region", cfg.Query.RegionName,
		"start_date", cfg.Query.StartDate,
		"end_date", cfg.Query.EndDate,
		"threads", cfg.Query.Threads,
		"storage", cfg.Storage.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		level.Error(logger).Log("msg", "query failed", "run_id", runner.RunID(), "err", err)
		printError(stderr, err)
		return exitFailure
	}

	level.Info(logger).Log("msg", "query complete",
		"run_id", summary.RunID,
		"groups", len(summary.Results),
		"scanned", humanize.Comma(summary.Stats.Scanned),
		"matched", humanize.Comma(summary.Stats.Matched),
		"skipped", summary.Stats.Skipped,
		"duration", time.Since(start).Round(time.Millisecond))
	return exitOK
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}
