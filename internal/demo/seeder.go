package demo

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/nl2sql"
)

type TableCount struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

type Stats struct {
	Schema string       `json:"schema"`
	Tables []TableCount `json:"tables"`
	// Skipped is set when the schema already held data and Reset was off.
	Skipped bool `json:"skipped"`
}

type Seeder struct {
	cfg Config
	log *slog.Logger
}

func NewSeeder(cfg Config, logger *slog.Logger) (*Seeder, error) {
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("rows must be > 0")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{cfg: cfg, log: logger}, nil
}

// Seed creates the demo tables of db.Schema and fills them. Each schema gets
// its own generator derived from the configured seed, so re-running with the
// same seed reproduces the same rows.
func (s *Seeder) Seed(ctx context.Context, db *database.DB) (Stats, error) {
	dataset, err := DatasetFor(db.Schema)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Schema: dataset.Schema}

	if err := s.createTables(ctx, db, dataset); err != nil {
		return Stats{}, err
	}

	populated, err := hasRows(ctx, db, dataset.Tables[0].Name)
	if err != nil {
		return Stats{}, err
	}
	if populated && !s.cfg.Reset {
		s.log.Info("demo schema already populated", slog.String("schema", dataset.Schema))
		stats.Skipped = true
		return stats, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if populated {
		for i := len(dataset.Tables) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+db.Dialect.QuoteIdent(dataset.Tables[i].Name)); err != nil {
				return Stats{}, fmt.Errorf("reset %q: %w", dataset.Tables[i].Name, err)
			}
		}
	}

	g := NewGenerator(s.cfg.Seed + schemaOffset(dataset.Schema))
	for _, table := range dataset.Tables {
		rows := table.Rows(g, s.cfg.Rows)
		if err := insertRows(ctx, tx, db.Dialect, table, rows); err != nil {
			return Stats{}, err
		}
		stats.Tables = append(stats.Tables, TableCount{Table: table.Name, Rows: len(rows)})
		s.log.Info("demo table seeded",
			slog.String("schema", dataset.Schema),
			slog.String("table", table.Name),
			slog.Int("rows", len(rows)),
		)
	}
	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}
	return stats, nil
}

func (s *Seeder) createTables(ctx context.Context, db *database.DB, dataset Dataset) error {
	ddl, err := dataset.DDL()
	if err != nil {
		return err
	}
	for _, statement := range nl2sql.SplitStatements(ddl) {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("create demo tables of %q: %w", dataset.Schema, err)
		}
	}
	return nil
}

func hasRows(ctx context.Context, db *database.DB, table string) (bool, error) {
	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+db.Dialect.QuoteIdent(table)).Scan(&count); err != nil {
		return false, fmt.Errorf("count %q: %w", table, err)
	}
	return count > 0, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, dialect database.Dialect, table Table, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, InsertSQL(dialect, table.Name, table.Columns))
	if err != nil {
		return fmt.Errorf("prepare insert into %q: %w", table.Name, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert row %d into %q: %w", i+1, table.Name, err)
		}
	}
	return nil
}

// InsertSQL renders a single-row INSERT with the dialect's placeholders.
func InsertSQL(dialect database.Dialect, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = dialect.QuoteIdent(column)
		placeholders[i] = dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		dialect.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

func schemaOffset(schemaName string) int64 {
	var sum int64
	for _, r := range schemaName {
		sum = sum*31 + int64(r)
	}
	return sum
}
