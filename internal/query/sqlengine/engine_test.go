package sqlengine

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/query"
)

func TestExecuteReturnsTypedRows(t *testing.T) {
	engine, mock := newMockEngine(t, Options{})
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM customers")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("Ada")).
			AddRow(int64(2), nil))
	mock.ExpectRollback()

	result, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT id, name FROM customers;"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[1] != "name" {
		t.Fatalf("Columns = %#v", result.Columns)
	}
	if len(result.Rows) != 2 || result.Rows[0][1] != "Ada" || result.Rows[1][1] != nil {
		t.Fatalf("Rows = %#v", result.Rows)
	}
	if result.Truncated {
		t.Fatal("result should not be truncated")
	}
	assertSQLMock(t, mock)
}

func TestExecuteTruncatesAtRowLimit(t *testing.T) {
	engine, mock := newMockEngine(t, Options{RowLimit: 2})
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectRollback()

	result, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT id FROM orders"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 2 || !result.Truncated {
		t.Fatalf("rows = %d truncated = %v", len(result.Rows), result.Truncated)
	}
}

func TestExecuteRejectsWritesBeforeReachingDriver(t *testing.T) {
	engine, mock := newMockEngine(t, Options{})
	for _, sqlText := range []string{
		"DELETE FROM customers",
		"DROP TABLE orders",
		"SELECT 1; DELETE FROM t",
		"WITH x AS (SELECT 1) DELETE FROM t",
		"EXPLAIN ANALYZE DELETE FROM t",
		"SELECT * INTO t2 FROM t",
	} {
		if _, err := engine.Execute(context.Background(), query.Request{SQL: sqlText}); err == nil {
			t.Fatalf("Execute(%q) expected error", sqlText)
		}
	}
	assertSQLMock(t, mock)
}

func TestExecuteAllowsWritesWhenConfigured(t *testing.T) {
	engine, mock := newMockEngine(t, Options{AllowWrites: true})
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE t SET a = 1 RETURNING a")).
		WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(1))
	if _, err := engine.Execute(context.Background(), query.Request{SQL: "UPDATE t SET a = 1 RETURNING a"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestExecuteClassifiesDriverErrors(t *testing.T) {
	engine, mock := newMockEngine(t, Options{})
	mock.ExpectBegin()
	mock.ExpectQuery("SELEC").WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'e_commerce.nope' doesn't exist"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT").WillReturnError(&mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"})
	mock.ExpectRollback()

	_, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT * FROM nope"})
	var execErr *query.ExecError
	if !errors.As(err, &execErr) || execErr.Class != query.ClassOperational {
		t.Fatalf("missing table error = %#v", err)
	}

	_, err = engine.Execute(context.Background(), query.Request{SQL: "SELECT FROM WHERE"})
	if !errors.As(err, &execErr) || execErr.Class != query.ClassSyntax {
		t.Fatalf("syntax error = %#v", err)
	}
	assertSQLMock(t, mock)
}

func TestExecuteRunsInsideReadOnlyTransactionForPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	engine := NewEngine(database.Wrap(db, database.PostgreSQL, "analytics"), Options{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('s')")).
		WillReturnError(&pgconn.PgError{Code: "25006", Message: "cannot execute nextval() in a read-only transaction"})
	mock.ExpectRollback()

	_, err = engine.Execute(context.Background(), query.Request{SQL: "SELECT nextval('s')"})
	var execErr *query.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestExecuteGuardKeepsDuckDBRowsIntact(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{Driver: "duckdb", DataDir: t.TempDir()}, "analytics")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.ExecContext(context.Background(), `CREATE TABLE t (id INTEGER)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), `INSERT INTO t VALUES (1), (2)`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	engine := NewEngine(db, Options{})
	for _, sqlText := range []string{
		"WITH x AS (SELECT 1) DELETE FROM t",
		"EXPLAIN ANALYZE DELETE FROM t",
		"SELECT * INTO t2 FROM t",
		"EXPLAIN ANALYZE CREATE TABLE t3 AS SELECT 1",
	} {
		if _, err := engine.Execute(context.Background(), query.Request{SQL: sqlText}); !errors.Is(err, query.ErrNotReadOnly) {
			t.Fatalf("Execute(%q) error = %v", sqlText, err)
		}
	}
	var count int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("rows left = %d, want 2", count)
	}
}

func TestExecuteAgainstDuckDB(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{Driver: "duckdb", DataDir: filepath.Join(t.TempDir(), "data")}, "analytics")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.ExecContext(context.Background(), `CREATE TABLE events (id INTEGER, kind VARCHAR)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), `INSERT INTO events VALUES (1, 'click'), (2, 'view'), (3, 'click')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	engine := NewEngine(db, Options{})
	result, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT COUNT(*) AS c FROM events WHERE kind = 'click'"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != int64(2) {
		t.Fatalf("Rows = %#v", result.Rows)
	}

	_, err = engine.Execute(context.Background(), query.Request{SQL: "SELECT * FROM WHERE"})
	var execErr *query.ExecError
	if !errors.As(err, &execErr) || execErr.Class != query.ClassSyntax {
		t.Fatalf("syntax error = %v", err)
	}
	_, err = engine.Execute(context.Background(), query.Request{SQL: "SELECT * FROM missing_table"})
	if !errors.As(err, &execErr) || execErr.Class == query.ClassSyntax {
		t.Fatalf("missing table error = %v", err)
	}
}

func newMockEngine(t *testing.T, opts Options) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewEngine(database.Wrap(db, database.MySQL, "e_commerce"), opts), mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
