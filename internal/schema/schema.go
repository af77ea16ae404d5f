// Package schema turns a live database connection into the textual schema
// description handed to the language model.
package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/tools/sqldatabase"
)

const DefaultSampleRows = 3

type Description struct {
	Dialect string    `json:"dialect"`
	Tables  []string  `json:"tables"`
	Text    string    `json:"text"`
	Fetched time.Time `json:"fetched_at"`
}

// Provider introspects one database connection through a sqldatabase engine.
// Descriptions are memoized for ttl; a zero ttl disables the cache.
type Provider struct {
	engine     sqldatabase.Engine
	dialect    string
	sampleRows int
	ttl        time.Duration
	now        func() time.Time

	mu     sync.Mutex
	cached *Description
}

type Options struct {
	SampleRows int
	CacheTTL   time.Duration
}

// NewProvider describes the database behind engine. dialect is the engine name
// shown to the model, e.g. "MySQL".
func NewProvider(engine sqldatabase.Engine, dialect string, opts Options) *Provider {
	sampleRows := opts.SampleRows
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	return &Provider{
		engine:     engine,
		dialect:    dialect,
		sampleRows: sampleRows,
		ttl:        opts.CacheTTL,
		now:        time.Now,
	}
}

// Describe returns the CREATE TABLE text of every table followed by a block
// of sample rows, in table name order.
func (p *Provider) Describe(ctx context.Context) (Description, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.ttl > 0 && p.now().Sub(p.cached.Fetched) < p.ttl {
		return *p.cached, nil
	}

	names, err := p.Tables(ctx)
	if err != nil {
		return Description{}, err
	}
	desc := Description{
		Dialect: p.dialect,
		Tables:  names,
		Fetched: p.now(),
	}
	if len(names) > 0 {
		db := &sqldatabase.SQLDatabase{
			Engine:           sampleEngine{Engine: p.engine},
			SampleRowsNumber: p.sampleRows,
		}
		text, err := db.TableInfo(ctx, names)
		if err != nil {
			return Description{}, fmt.Errorf("describe tables: %w", err)
		}
		desc.Text = strings.TrimSpace(text)
	}
	if p.ttl > 0 {
		p.cached = &desc
	}
	return desc, nil
}

// Tables returns the usable table names, sorted, without touching the cache.
func (p *Provider) Tables(ctx context.Context) ([]string, error) {
	names, err := p.engine.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Invalidate drops the cached description.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// Close releases the introspection engine.
func (p *Provider) Close() error {
	return p.engine.Close()
}
