// Package executor runs the regional revenue query on SQLite as an
// independent reference for the in-memory engine.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	engerrors "github.com/arkilian/tpchq5/internal/errors"
	"github.com/arkilian/tpchq5/internal/index"
	"github.com/arkilian/tpchq5/internal/query/aggregator"
	"github.com/arkilian/tpchq5/pkg/types"
)

// RevenueQuery is the regional revenue statement. Keys are stored as TEXT
// so joins use exact string equality.
//
// Each dimension keeps, per key, the last row that passes its own filter
// (rows are inserted in file order, so that is the highest rowid). Lineitems
// whose price or discount did not convert to a number are left out.
const RevenueQuery = `
	WITH
	region_keys AS (
		SELECT DISTINCT r_regionkey FROM region WHERE r_name = ?
	),
	nations AS (
		SELECT n_nationkey, n_name FROM nation WHERE rowid IN (
			SELECT MAX(rowid) FROM nation
			WHERE n_regionkey IN (SELECT r_regionkey FROM region_keys)
			GROUP BY n_nationkey)
	),
	customers AS (
		SELECT c_custkey, c_nationkey FROM customer WHERE rowid IN (
			SELECT MAX(rowid) FROM customer
			WHERE c_nationkey IN (SELECT n_nationkey FROM nations)
			GROUP BY c_custkey)
	),
	suppliers AS (
		SELECT s_suppkey, s_nationkey FROM supplier WHERE rowid IN (
			SELECT MAX(rowid) FROM supplier
			WHERE s_nationkey IN (SELECT n_nationkey FROM nations)
			GROUP BY s_suppkey)
	),
	eligible_orders AS (
		SELECT o_orderkey, o_custkey FROM orders WHERE rowid IN (
			SELECT MAX(rowid) FROM orders
			WHERE o_orderdate >= ? AND o_orderdate < ?
			  AND o_custkey IN (SELECT c_custkey FROM customers)
			GROUP BY o_orderkey)
	)
	SELECT n_name, SUM(l_extendedprice * (1 - l_discount)) AS revenue, COUNT(*)
	FROM lineitem
	JOIN eligible_orders ON l_orderkey = o_orderkey
	JOIN customers ON o_custkey = c_custkey
	JOIN suppliers ON l_suppkey = s_suppkey
	JOIN nations ON s_nationkey = n_nationkey
	WHERE c_nationkey = s_nationkey
	  AND typeof(l_extendedprice) IN ('real', 'integer')
	  AND typeof(l_discount) IN ('real', 'integer')
	GROUP BY n_name
	ORDER BY revenue DESC`

// SQLiteExecutor holds the tables in an in-memory SQLite database.
type SQLiteExecutor struct {
	db *sql.DB
}

// NewSQLiteExecutor opens an empty in-memory database.
func NewSQLiteExecutor() (*SQLiteExecutor, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("executor: failed to open SQLite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return &SQLiteExecutor{db: db}, nil
}

// Close releases the database.
func (e *SQLiteExecutor) Close() error {
	return e.db.Close()
}

// Load creates and fills one SQLite table per source table.
func (e *SQLiteExecutor) Load(ctx context.Context, tables *types.Tables) error {
	for _, schema := range types.Schemas() {
		tbl := tables.Get(schema.Name)
		if tbl == nil {
			return fmt.Errorf("executor: table %s not loaded", schema.Name)
		}
		if err := e.loadTable(ctx, tbl); err != nil {
			return err
		}
	}

	indexes := []string{
		"CREATE INDEX idx_orders_key ON orders(o_orderkey)",
		"CREATE INDEX idx_lineitem_order ON lineitem(l_orderkey)",
		"CREATE INDEX idx_customer_key ON customer(c_custkey)",
		"CREATE INDEX idx_supplier_key ON supplier(s_suppkey)",
	}
	for _, idx := range indexes {
		if _, err := e.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("executor: failed to create index: %w", err)
		}
	}
	return nil
}

func (e *SQLiteExecutor) loadTable(ctx context.Context, tbl *types.Table) error {
	schema := tbl.Schema
	defs := make([]string, len(schema.Columns))
	marks := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		defs[i] = c.Name + " " + c.Type
		marks[i] = "?"
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", schema.Name, strings.Join(defs, ", "))
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("executor: failed to create %s table: %w", schema.Name, err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("executor: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.Name, strings.Join(schema.ColumnNames(), ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("executor: failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, schema.Width())
	for _, row := range tbl.Rows {
		for i := range args {
			args[i] = row[i]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("executor: failed to insert into %s: %w", schema.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("executor: failed to commit %s: %w", schema.Name, err)
	}
	return nil
}

// Revenue runs RevenueQuery for the filter.
func (e *SQLiteExecutor) Revenue(ctx context.Context, f index.Filter) ([]aggregator.Result, error) {
	rows, err := e.db.QueryContext(ctx, RevenueQuery, f.Region, f.StartDate, f.EndDate)
	if err != nil {
		return nil, fmt.Errorf("executor: query failed: %w", err)
	}
	defer rows.Close()

	var results []aggregator.Result
	for rows.Next() {
		var r aggregator.Result
		if err := rows.Scan(&r.Nation, &r.Revenue, &r.LineItems); err != nil {
			return nil, fmt.Errorf("executor: failed to scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("executor: row iteration failed: %w", err)
	}
	return results, nil
}

// Compare checks that got and want contain the same nations with revenues
// equal within relTol relative difference.
func Compare(got, want []aggregator.Result, relTol float64) error {
	byNation := make(map[string]float64, len(want))
	for _, r := range want {
		byNation[r.Nation] = r.Revenue
	}

	var mismatches []string
	seen := make(map[string]bool, len(got))
	for _, r := range got {
		seen[r.Nation] = true
		w, ok := byNation[r.Nation]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: unexpected", r.Nation))
			continue
		}
		if math.Abs(r.Revenue-w) > relTol*math.Max(1, math.Abs(w)) {
			mismatches = append(mismatches, fmt.Sprintf("%s: %.4f != %.4f", r.Nation, r.Revenue, w))
		}
	}
	for _, r := range want {
		if !seen[r.Nation] {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing", r.Nation))
		}
	}

	if len(mismatches) == 0 {
		return nil
	}
	sort.Strings(mismatches)
	return engerrors.NewQueryError(engerrors.CodeVerificationMismatch,
		"result differs from reference: "+strings.Join(mismatches, "; "))
}
