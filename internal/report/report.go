// Package report writes the sorted revenue result as pipe-delimited text.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
	"github.com/arkilian/tpchq5/internal/query/aggregator"
	"github.com/arkilian/tpchq5/internal/storage"
)

// Header is the first line of every result.
const Header = "n_name|revenue"

// Format writes the header and one "name|revenue" line per result, in the
// given order, with revenue in fixed-point with two decimals.
func Format(w io.Writer, results []aggregator.Result) error {
	if _, err := fmt.Fprintln(w, Header); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s|%.2f\n", r.Nation, r.Revenue); err != nil {
			return err
		}
	}
	return nil
}

// Writer emits results to a file and echoes them to Stdout.
type Writer struct {
	Stdout io.Writer
	logger log.Logger
}

// NewWriter creates a Writer echoing to stdout. A nil logger discards output.
func NewWriter(stdout io.Writer, logger log.Logger) *Writer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Writer{Stdout: stdout, logger: log.With(logger, "component", "report")}
}

// Write sorts results by revenue descending, writes them to path and echoes
// the same content. The file is only created once formatting succeeded.
func (w *Writer) Write(path string, results []aggregator.Result) error {
	sorted := make([]aggregator.Result, len(results))
	copy(sorted, results)
	aggregator.SortByRevenue(sorted)

	var buf bytes.Buffer
	if err := Format(&buf, sorted); err != nil {
		return engerrors.NewInternalError("format result", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return engerrors.NewOutputError(path, err)
	}

	if w.Stdout != nil {
		if _, err := w.Stdout.Write(buf.Bytes()); err != nil {
			level.Warn(w.logger).Log("msg", "failed to echo result", "err", err)
		}
	}

	level.Info(w.logger).Log("msg", "result written", "path", path, "rows", len(sorted))
	return nil
}

// Publish uploads the result file to objectPath. It is attempted once.
func Publish(ctx context.Context, st storage.ObjectStorage, path, objectPath string) error {
	if err := st.Upload(ctx, path, objectPath); err != nil {
		return engerrors.Wrap(engerrors.ErrCategoryIO, engerrors.CodePublishFailed, "publish "+objectPath, err)
	}
	return nil
}
