// Package sqlengine executes generated statements against a live
// database/sql connection.
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/query"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Options struct {
	Timeout     time.Duration
	RowLimit    int
	AllowWrites bool
}

type Engine struct {
	DB      *database.DB
	Options Options
}

func NewEngine(db *database.DB, opts Options) *Engine {
	return &Engine{DB: db, Options: opts}
}

// Execute runs a single guarded statement. Unless writes are allowed, drivers
// that support it run the statement inside a read-only transaction that is
// rolled back once the rows are read.
func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	if e.DB == nil {
		return query.Result{}, fmt.Errorf("database is required")
	}
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, query.ErrEmptyStatement
	}
	if err := query.CheckReadOnly(sqlText, e.Options.AllowWrites); err != nil {
		return query.Result{}, err
	}

	limit := request.RowLimit
	if limit == 0 {
		limit = e.Options.RowLimit
	}
	if limit == 0 {
		limit = query.DefaultRowLimit
	}
	if e.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Options.Timeout)
		defer cancel()
	}

	start := time.Now()
	var q queryer = e.DB.DB
	if !e.Options.AllowWrites && e.DB.Dialect.ReadOnlyTx {
		tx, err := e.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return query.Result{}, query.Classify(fmt.Errorf("begin read-only transaction: %w", err))
		}
		defer func() { _ = tx.Rollback() }()
		q = tx
	}
	rows, err := q.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, query.Classify(fmt.Errorf("execute query: %w", err))
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, query.Classify(fmt.Errorf("query columns: %w", err))
	}

	result := query.Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if limit > 0 && len(result.Rows) == limit {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, query.Classify(fmt.Errorf("scan row: %w", err))
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, query.Classify(fmt.Errorf("iterate rows: %w", err))
	}
	result.Duration = time.Since(start)
	return result, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		normalized[i] = database.NormalizeValue(value)
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
