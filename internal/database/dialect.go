package database

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect captures what differs between the supported engines: driver
// registration name, DSN layout, identifier quoting and the catalog queries
// used for introspection.
type Dialect struct {
	Driver string
	// Name is the human-facing engine name used in prompts ("MySQL").
	Name string

	// ListTablesSQL returns one column with the base table names of the
	// connected database, ordered by name.
	ListTablesSQL string
	// ColumnsSQL takes the table name as its only argument and returns
	// column_name, data_type, is_nullable ordered by ordinal position.
	ColumnsSQL string
	// ReadOnlyTx reports whether the driver honors sql.TxOptions.ReadOnly.
	ReadOnlyTx bool

	quote func(string) string
}

var (
	MySQL = Dialect{
		Driver: "mysql",
		Name:   "MySQL",
		ListTablesSQL: `SELECT table_name
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		ColumnsSQL: `SELECT column_name, column_type, is_nullable
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position`,
		ReadOnlyTx: true,
		quote:      func(name string) string {
			return "`" + strings.ReplaceAll(name, "`", "``") + "`"
		},
	}

	PostgreSQL = Dialect{
		Driver: "pgx",
		Name:   "PostgreSQL",
		ListTablesSQL: `SELECT table_name
FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		ColumnsSQL: `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`,
		ReadOnlyTx: true,
		quote:      quoteDouble,
	}

	DuckDB = Dialect{
		Driver: "duckdb",
		Name:   "DuckDB",
		ListTablesSQL: `SELECT table_name
FROM information_schema.tables
WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
ORDER BY table_name`,
		ColumnsSQL: `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = ?
ORDER BY ordinal_position`,
		quote: quoteDouble,
	}
)

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return MySQL, nil
	case "pgx", "postgres", "postgresql":
		return PostgreSQL, nil
	case "duckdb":
		return DuckDB, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// QuoteIdent quotes a table or column name for this dialect.
func (d Dialect) QuoteIdent(name string) string {
	if d.quote == nil {
		return quoteDouble(name)
	}
	return d.quote(name)
}

// SampleRowsSQL selects up to limit rows of a table.
func (d Dialect) SampleRowsSQL(table string, limit int) string {
	return "SELECT * FROM " + d.QuoteIdent(table) + " LIMIT " + strconv.Itoa(limit)
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.Driver == PostgreSQL.Driver {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// DSN builds the data source name for one schema of the configured server.
func (d Dialect) DSN(cfg Config, schemaName string) (string, error) {
	switch d.Driver {
	case MySQL.Driver:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = schemaName
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case PostgreSQL.Driver:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.User, cfg.Password),
			Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Path:   "/" + schemaName,
		}
		query := u.Query()
		query.Set("sslmode", firstNonEmpty(cfg.SSLMode, "disable"))
		u.RawQuery = query.Encode()
		return u.String(), nil
	case DuckDB.Driver:
		if strings.ContainsAny(schemaName, `/\`) || strings.Contains(schemaName, "..") {
			return "", fmt.Errorf("invalid duckdb schema name %q", schemaName)
		}
		return filepath.Join(cfg.DataDir, schemaName+".duckdb"), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", d.Driver)
	}
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}
