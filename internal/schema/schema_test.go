package schema

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/tmc/langchaingo/tools/sqldatabase"

	"github.com/nishithraj14/text-to-sql-generator/internal/database"
)

func TestDescribeRendersTablesColumnsAndSamples(t *testing.T) {
	db, mock := newSQLMock(t)
	expectCustomersSchema(mock)

	provider := NewProvider(NewDBEngine(database.Wrap(db, database.MySQL, "e_commerce")), "MySQL", Options{})
	desc, err := provider.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if desc.Dialect != "MySQL" {
		t.Fatalf("Dialect = %q", desc.Dialect)
	}
	if len(desc.Tables) != 1 || desc.Tables[0] != "customers" {
		t.Fatalf("Tables = %#v", desc.Tables)
	}

	want := "CREATE TABLE customers (\n" +
		"\tid INT NOT NULL,\n" +
		"\tname VARCHAR(64)\n" +
		")\n\n" +
		"/*\n" +
		"3 rows from customers table:\n" +
		"id\tname\n" +
		"1\tAda\n" +
		"2\tNone\n" +
		"*/"
	if desc.Text != want {
		t.Fatalf("Text =\n%s\nwant\n%s", desc.Text, want)
	}
	assertSQLMock(t, mock)
}

func TestDescribeUsesCacheWithinTTL(t *testing.T) {
	db, mock := newSQLMock(t)
	expectCustomersSchema(mock)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	provider := NewProvider(NewDBEngine(database.Wrap(db, database.MySQL, "e_commerce")), "MySQL", Options{CacheTTL: time.Minute})
	provider.now = func() time.Time { return now }

	if _, err := provider.Describe(context.Background()); err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	now = now.Add(30 * time.Second)
	if _, err := provider.Describe(context.Background()); err != nil {
		t.Fatalf("cached Describe() error = %v", err)
	}
	assertSQLMock(t, mock)

	now = now.Add(time.Minute)
	expectCustomersSchema(mock)
	if _, err := provider.Describe(context.Background()); err != nil {
		t.Fatalf("refreshed Describe() error = %v", err)
	}
	assertSQLMock(t, mock)

	provider.Invalidate()
	expectCustomersSchema(mock)
	if _, err := provider.Describe(context.Background()); err != nil {
		t.Fatalf("Describe() after Invalidate error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestDescribePropagatesConnectivityErrors(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ListTablesSQL)).
		WillReturnError(errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"))

	provider := NewProvider(NewDBEngine(database.Wrap(db, database.MySQL, "e_commerce")), "MySQL", Options{})
	_, err := provider.Describe(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("Describe() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestDescribeEmptyDatabase(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ListTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	provider := NewProvider(NewDBEngine(database.Wrap(db, database.MySQL, "e_commerce")), "MySQL", Options{})
	desc, err := provider.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if desc.Text != "" || len(desc.Tables) != 0 {
		t.Fatalf("desc = %+v", desc)
	}
	assertSQLMock(t, mock)
}

func TestTablesListsNamesForPostgres(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(database.PostgreSQL.ListTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("invoices").AddRow("accounts"))

	provider := NewProvider(NewDBEngine(database.Wrap(db, database.PostgreSQL, "enterprise_saas")), "PostgreSQL", Options{})
	tables, err := provider.Tables(context.Background())
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	if len(tables) != 2 || tables[0] != "accounts" || tables[1] != "invoices" {
		t.Fatalf("Tables() = %#v", tables)
	}
	assertSQLMock(t, mock)
}

func TestPostgresEngineRendersEveryColumn(t *testing.T) {
	fake := &fakeEngine{rows: [][]string{
		{"id", "integer", "NO"},
		{"email", "character varying", "YES"},
	}}
	info, err := postgresEngine{Engine: fake}.TableInfo(context.Background(), "users")
	if err != nil {
		t.Fatalf("TableInfo() error = %v", err)
	}
	if info != "CREATE TABLE users (\n\tid INTEGER NOT NULL,\n\temail CHARACTER VARYING\n)" {
		t.Fatalf("TableInfo() = %q", info)
	}
	if fake.lastQuery != database.PostgreSQL.ColumnsSQL || len(fake.lastArgs) != 1 || fake.lastArgs[0] != "users" {
		t.Fatalf("query = %q args = %v", fake.lastQuery, fake.lastArgs)
	}

	fake.rows = nil
	if _, err := (postgresEngine{Engine: fake}).TableInfo(context.Background(), "missing"); !errors.Is(err, sqldatabase.ErrTableNotFound) {
		t.Fatalf("missing table error = %v", err)
	}
}

func TestSampleRowsAreClippedOnRuneBoundaries(t *testing.T) {
	long := strings.Repeat("é", 150)
	fake := &fakeEngine{rows: [][]string{{long, "a\nb"}}}
	_, rows, err := sampleEngine{Engine: fake}.Query(context.Background(), "SELECT * FROM notes LIMIT 3")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := rows[0][0]; !utf8.ValidString(got) || utf8.RuneCountInString(got) != maxCellWidth {
		t.Fatalf("clipped cell = %q", got)
	}
	if rows[0][1] != "a b" {
		t.Fatalf("newline cell = %q", rows[0][1])
	}
}

func TestDescribeDuckDB(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{Driver: "duckdb", DataDir: t.TempDir()}, "analytics")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range []string{
		`CREATE TABLE events (id INTEGER NOT NULL, kind VARCHAR, amount DOUBLE)`,
		`INSERT INTO events VALUES (1, 'click', 2.50), (2, NULL, NULL)`,
	} {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	engine, err := OpenEngine(db, "ignored")
	if err != nil {
		t.Fatalf("OpenEngine() error = %v", err)
	}
	desc, err := NewProvider(engine, db.Dialect.Name, Options{}).Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE events (\n\tid INTEGER NOT NULL,\n\tkind VARCHAR,\n\tamount DOUBLE\n)",
		"3 rows from events table:\nid\tkind\tamount\n",
		"2\tNone\tNone\n",
	} {
		if !strings.Contains(desc.Text, want) {
			t.Fatalf("Text missing %q:\n%s", want, desc.Text)
		}
	}
}

type fakeEngine struct {
	rows      [][]string
	lastQuery string
	lastArgs  []any
}

func (f *fakeEngine) Dialect() string { return "fake" }

func (f *fakeEngine) Query(_ context.Context, query string, args ...any) ([]string, [][]string, error) {
	f.lastQuery = query
	f.lastArgs = args
	return []string{"a", "b", "c"}, f.rows, nil
}

func (f *fakeEngine) TableNames(context.Context) ([]string, error) { return nil, nil }

func (f *fakeEngine) TableInfo(context.Context, string) (string, error) { return "", nil }

func (f *fakeEngine) Close() error { return nil }

func expectCustomersSchema(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ListTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers"))
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ColumnsSQL)).
		WithArgs("customers").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_type", "is_nullable"}).
			AddRow("id", "int", "NO").
			AddRow("name", "varchar(64)", "YES"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM customers LIMIT 3")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("Ada")).
			AddRow(int64(2), nil))
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
