// Package pipeline wires schema introspection, translation and execution
// into the question-to-answer flow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tmc/langchaingo/tools/sqldatabase"

	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/nl2sql"
	"github.com/nishithraj14/text-to-sql-generator/internal/query"
	"github.com/nishithraj14/text-to-sql-generator/internal/query/sqlengine"
	"github.com/nishithraj14/text-to-sql-generator/internal/schema"
)

var ErrUnknownSchema = errors.New("unknown schema")

// Opener opens the connection for one schema.
type Opener func(ctx context.Context, schemaName string) (*database.DB, error)

// EngineOpener builds the schema introspection engine of an open connection.
type EngineOpener func(db *database.DB, schemaName string) (sqldatabase.Engine, error)

type SessionConfig struct {
	Schemas  []string
	Database database.Config
	Schema   schema.Options
	Engine   sqlengine.Options
}

// Connection is everything the pipeline needs for one schema.
type Connection struct {
	DB     *database.DB
	Schema *schema.Provider
	Engine query.Engine
}

// Session owns the connections and the translator used by a running tool.
// Connections are opened lazily and reused until Close.
type Session struct {
	cfg        SessionConfig
	translator nl2sql.Translator
	open       Opener
	openEngine EngineOpener

	mu     sync.Mutex
	conns  map[string]*Connection
	closed bool
}

type SessionOption func(*Session)

// WithEngineOpener replaces how introspection engines are built.
func WithEngineOpener(open EngineOpener) SessionOption {
	return func(s *Session) {
		s.openEngine = open
	}
}

// WithOpener replaces the database opener.
func WithOpener(open Opener) SessionOption {
	return func(s *Session) {
		s.open = open
	}
}

func NewSession(cfg SessionConfig, translator nl2sql.Translator, opts ...SessionOption) (*Session, error) {
	if len(cfg.Schemas) == 0 {
		return nil, fmt.Errorf("at least one schema is required")
	}
	if translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	s := &Session{
		cfg:        cfg,
		translator: translator,
		conns:      map[string]*Connection{},
	}
	s.open = func(ctx context.Context, schemaName string) (*database.DB, error) {
		return database.Open(ctx, s.cfg.Database, schemaName)
	}
	s.openEngine = func(db *database.DB, schemaName string) (sqldatabase.Engine, error) {
		dsn, err := db.Dialect.DSN(s.cfg.Database, schemaName)
		if err != nil {
			return nil, err
		}
		return schema.OpenEngine(db, dsn)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Schemas returns the selectable schema names, default first.
func (s *Session) Schemas() []string {
	return slices.Clone(s.cfg.Schemas)
}

func (s *Session) DefaultSchema() string {
	return s.cfg.Schemas[0]
}

func (s *Session) Translator() nl2sql.Translator {
	return s.translator
}

// Database returns the cached connection for schemaName, opening it on first
// use. Names outside the configured set fail with ErrUnknownSchema.
func (s *Session) Database(ctx context.Context, schemaName string) (*Connection, error) {
	if !slices.Contains(s.cfg.Schemas, schemaName) {
		return nil, fmt.Errorf("%w %q", ErrUnknownSchema, schemaName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}
	if conn, ok := s.conns[schemaName]; ok {
		return conn, nil
	}

	db, err := s.open(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	introspection, err := s.openEngine(db, schemaName)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	conn := &Connection{
		DB:     db,
		Schema: schema.NewProvider(introspection, db.Dialect.Name, s.cfg.Schema),
		Engine: sqlengine.NewEngine(db, s.cfg.Engine),
	}
	s.conns[schemaName] = conn
	return conn, nil
}

// Ping checks connectivity of the default schema.
func (s *Session) Ping(ctx context.Context) error {
	conn, err := s.Database(ctx, s.DefaultSchema())
	if err != nil {
		return err
	}
	return conn.DB.PingContext(ctx)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	var errs []error
	for name, conn := range s.conns {
		if err := conn.Schema.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close introspection of %q: %w", name, err))
		}
		if err := conn.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	s.conns = map[string]*Connection{}
	return errors.Join(errs...)
}
