package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
)

type Config struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	SSLMode         string
	DataDir         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// DB is an open connection pool bound to a single schema.
type DB struct {
	*sql.DB
	Dialect Dialect
	Schema  string
}

func Open(ctx context.Context, cfg Config, schemaName string) (*DB, error) {
	if schemaName == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := dialect.DSN(cfg, schemaName)
	if err != nil {
		return nil, err
	}
	if dialect.Driver == DuckDB.Driver && cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database %q: %w", dialect.Name, schemaName, err)
	}
	return configure(ctx, db, cfg, dialect, schemaName)
}

// Wrap binds an already opened pool, used with sqlmock in tests.
func Wrap(db *sql.DB, dialect Dialect, schemaName string) *DB {
	return &DB{DB: db, Dialect: dialect, Schema: schemaName}
}

func configure(ctx context.Context, db *sql.DB, cfg Config, dialect Dialect, schemaName string) (*DB, error) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database %q: %w", dialect.Name, schemaName, err)
	}

	return Wrap(db, dialect, schemaName), nil
}
