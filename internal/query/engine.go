// Package query runs ad hoc analytical SQL against the tabular store by
// loading every table into an in-memory SQLite database per request. It is
// a convenience surface, unrelated to the experiment runner's logic.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mosaictheory-jt/unstructured-analytics/internal/store"
	"github.com/mosaictheory-jt/unstructured-analytics/pkg/logger"
)

type Engine struct {
	store *store.Store
}

type Result struct {
	Columns []string
	Rows    []map[string]any
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Execute loads all tables into a fresh in-memory database and runs one
// SQL statement against them.
func (e *Engine) Execute(ctx context.Context, sqlText string) (*Result, error) {
	tables, err := e.store.LoadAllTables()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	defer db.Close()

	start := time.Now()
	for name, table := range tables {
		if err := loadTable(ctx, db, name, table); err != nil {
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	logger.Debug("analytical query executed",
		zap.Int("tables", len(tables)),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

func loadTable(ctx context.Context, db *sql.DB, name string, table *store.Table) error {
	if len(table.Columns) == 0 {
		return nil
	}

	defs := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		defs[i] = fmt.Sprintf("%q %s", col, columnType(table, col))
	}
	ddl := fmt.Sprintf("CREATE TABLE %q (%s)", name, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(table.Columns)), ",")
	insert := fmt.Sprintf("INSERT INTO %q VALUES (%s)", name, placeholders)
	stmt, err := db.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", name, err)
	}
	defer stmt.Close()

	for _, row := range table.Rows {
		values := make([]any, len(table.Columns))
		for i, col := range table.Columns {
			values[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", name, err)
		}
	}
	return nil
}

// columnType picks a SQLite affinity from the first non-missing value in
// the column.
func columnType(table *store.Table, col string) string {
	for _, row := range table.Rows {
		switch row[col].(type) {
		case int64:
			return "INTEGER"
		case float64:
			return "REAL"
		case string:
			return "TEXT"
		}
	}
	return "TEXT"
}
