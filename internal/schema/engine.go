package schema

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/tools/sqldatabase"
	mysqlengine "github.com/tmc/langchaingo/tools/sqldatabase/mysql"
	"github.com/tmc/langchaingo/tools/sqldatabase/postgresql"

	"github.com/nishithraj14/text-to-sql-generator/internal/database"
)

const maxCellWidth = 100

// OpenEngine returns the introspection engine for db. MySQL and PostgreSQL use
// the langchaingo engines on their own pool opened from dsn. DuckDB is
// introspected over db itself: a second handle on the same database file
// would conflict with the lock held by the first.
func OpenEngine(db *database.DB, dsn string) (sqldatabase.Engine, error) {
	switch db.Dialect.Driver {
	case database.MySQL.Driver:
		engine, err := mysqlengine.NewMySQL(dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql introspection engine: %w", err)
		}
		return engine, nil
	case database.PostgreSQL.Driver:
		engine, err := postgresql.NewPostgreSQL(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgresql introspection engine: %w", err)
		}
		return postgresEngine{Engine: engine}, nil
	default:
		return NewDBEngine(db), nil
	}
}

// DBEngine implements sqldatabase.Engine on an already open pool using the
// dialect's information_schema queries. Close leaves the pool open.
type DBEngine struct {
	db *database.DB
}

var _ sqldatabase.Engine = (*DBEngine)(nil)

func NewDBEngine(db *database.DB) *DBEngine {
	return &DBEngine{db: db}
}

func (e *DBEngine) Dialect() string {
	return e.db.Dialect.Driver
}

func (e *DBEngine) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	results := make([][]string, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		targets := make([]any, len(cols))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, value := range values {
			row[i] = formatCell(database.NormalizeValue(value))
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, results, nil
}

func (e *DBEngine) TableNames(ctx context.Context) ([]string, error) {
	_, rows, err := e.Query(ctx, e.db.Dialect.ListTablesSQL)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row[0])
	}
	return names, nil
}

func (e *DBEngine) TableInfo(ctx context.Context, table string) (string, error) {
	return createTableInfo(ctx, e, e.db.Dialect.ColumnsSQL, table)
}

func (e *DBEngine) Close() error {
	return nil
}

// postgresEngine renders the full column list of a table; the langchaingo
// PostgreSQL engine only reports the first column name.
type postgresEngine struct {
	sqldatabase.Engine
}

func (e postgresEngine) TableInfo(ctx context.Context, table string) (string, error) {
	return createTableInfo(ctx, e.Engine, database.PostgreSQL.ColumnsSQL, table)
}

// sampleEngine clips sample row cells so one long value cannot crowd out the
// rest of the prompt.
type sampleEngine struct {
	sqldatabase.Engine
}

func (e sampleEngine) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	cols, rows, err := e.Engine.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	for _, row := range rows {
		for i, cell := range row {
			row[i] = clipCell(cell)
		}
	}
	return cols, rows, nil
}

// createTableInfo renders CREATE TABLE text from a query returning
// column_name, data_type, is_nullable for the given table.
func createTableInfo(ctx context.Context, engine sqldatabase.Engine, columnsSQL, table string) (string, error) {
	_, rows, err := engine.Query(ctx, columnsSQL, table)
	if err != nil {
		return "", fmt.Errorf("list columns of %q: %w", table, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: %s", sqldatabase.ErrTableNotFound, table)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(table)
	b.WriteString(" (\n")
	for i, row := range rows {
		if len(row) < 3 {
			return "", sqldatabase.ErrInvalidResult
		}
		b.WriteString("\t")
		b.WriteString(row[0])
		b.WriteString(" ")
		b.WriteString(strings.ToUpper(row[1]))
		if !strings.EqualFold(row[2], "YES") {
			b.WriteString(" NOT NULL")
		}
		if i < len(rows)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String(), nil
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "None"
	case time.Time:
		return typed.Format(time.RFC3339)
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}

// clipCell flattens newlines and keeps at most maxCellWidth runes.
func clipCell(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if utf8.RuneCountInString(text) <= maxCellWidth {
		return text
	}
	count := 0
	for i := range text {
		if count == maxCellWidth {
			return text[:i]
		}
		count++
	}
	return text
}
