// Package loader reads the six pipe-delimited TPC-H tables into memory.
//
// A line is split on '|'. Lines with fewer fields than the table schema
// are dropped; extra trailing fields are ignored. A table named <t> is read
// from <t>.tbl, or from the snappy-framed <t>.tbl.sz when the plain file is
// absent.
package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/golang/snappy"
	"golang.org/x/sync/errgroup"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
	"github.com/arkilian/tpchq5/pkg/types"
)

const (
	// Delimiter separates fields within a line.
	Delimiter = "|"

	// Extension is the plain table file suffix.
	Extension = ".tbl"

	// CompressedExtension is the snappy-framed table file suffix.
	CompressedExtension = ".tbl.sz"
)

// SplitFields splits a line into fields. A single trailing empty field,
// produced by a trailing delimiter, is not counted.
func SplitFields(line string) []string {
	if line == "" {
		return nil
	}
	fields := strings.Split(line, Delimiter)
	if fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// ReadTable parses every line from r into a table for schema.
func ReadTable(r io.Reader, schema types.TableSchema) (*types.Table, error) {
	tbl := types.NewTable(schema)
	width := schema.Width()

	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			fields := SplitFields(line)
			if len(fields) >= width {
				tbl.Rows = append(tbl.Rows, types.Row(fields[:width:width]))
			} else {
				tbl.Dropped++
			}
		}
		if err == io.EOF {
			return tbl, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// TableFiles returns the plain and compressed file names for a table.
func TableFiles(dir string, schema types.TableSchema) (plain, compressed string) {
	base := filepath.Join(dir, schema.Name)
	return base + Extension, base + CompressedExtension
}

// LoadTable reads the table for schema from dir.
func LoadTable(dir string, schema types.TableSchema) (*types.Table, error) {
	plain, compressed := TableFiles(dir, schema)

	path := plain
	f, err := os.Open(plain)
	if errors.Is(err, os.ErrNotExist) {
		if cf, cerr := os.Open(compressed); cerr == nil {
			f, err, path = cf, nil, compressed
		}
	}
	if err != nil {
		code := engerrors.CodeTableReadFailed
		if errors.Is(err, os.ErrNotExist) {
			code = engerrors.CodeTableNotFound
		}
		return nil, engerrors.NewTableError(code, plain, err)
	}
	defer f.Close()

	var r io.Reader = f
	if path == compressed {
		r = snappy.NewReader(f)
	}

	tbl, err := ReadTable(r, schema)
	if err != nil {
		return nil, engerrors.NewTableError(engerrors.CodeTableReadFailed, path, err)
	}
	return tbl, nil
}

// Loader loads all six tables.
type Loader struct {
	logger log.Logger
}

// New creates a Loader.
func New(logger log.Logger) *Loader {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Loader{logger: log.With(logger, "component", "loader")}
}

// LoadAll loads every table from dir concurrently. The first failure
// cancels the remaining loads and no tables are returned.
func (l *Loader) LoadAll(ctx context.Context, dir string) (*types.Tables, error) {
	schemas := types.Schemas()
	loaded := make([]*types.Table, len(schemas))

	g, ctx := errgroup.WithContext(ctx)
	for i, schema := range schemas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tbl, err := LoadTable(dir, schema)
			if err != nil {
				return err
			}
			level.Info(l.logger).Log(
				"msg", fmt.Sprintf("Loaded %s rows", humanize.Comma(int64(tbl.Len()))),
				"table", schema.Name,
				"rows", tbl.Len(),
				"dropped", tbl.Dropped,
			)
			loaded[i] = tbl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := &types.Tables{}
	for _, tbl := range loaded {
		tables.Set(tbl)
	}
	return tables, nil
}
