// Package export writes query results to the object store as Parquet.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/nishithraj14/text-to-sql-generator/internal/query"
	"github.com/nishithraj14/text-to-sql-generator/internal/storage"
)

const ContentType = "application/vnd.apache.parquet"

var ErrNotConfigured = errors.New("result export is not configured")

type Exporter struct {
	Store  storage.ObjectStore
	Logger *slog.Logger
	Now    func() time.Time
}

func NewExporter(store storage.ObjectStore, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{Store: store, Logger: logger, Now: time.Now}
}

// Export encodes result and uploads it under a fresh key for schemaName.
func (e *Exporter) Export(ctx context.Context, schemaName string, result query.Result) (storage.ObjectInfo, error) {
	if e == nil || e.Store == nil {
		return storage.ObjectInfo{}, ErrNotConfigured
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	key, err := storage.BuildExportPath(schemaName, now())
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	encoded, err := EncodeResultToParquet(result)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("encode result: %w", err)
	}

	info, err := e.Store.Put(ctx, key, bytes.NewReader(encoded.Data), int64(len(encoded.Data)), storage.PutOptions{
		ContentType: ContentType,
		Metadata: map[string]string{
			"schema":    schemaName,
			"rows":      strconv.FormatInt(encoded.RowCount, 10),
			"truncated": strconv.FormatBool(result.Truncated),
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if e.Logger != nil {
		e.Logger.InfoContext(ctx, "result exported",
			slog.String("schema", schemaName),
			slog.String("key", key),
			slog.Int64("rows", encoded.RowCount),
			slog.Int64("bytes", int64(len(encoded.Data))),
		)
	}
	return info, nil
}

// Open returns a previously exported object. Only keys produced by Export are
// accepted.
func (e *Exporter) Open(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	if e == nil || e.Store == nil {
		return nil, storage.ObjectInfo{}, ErrNotConfigured
	}
	if err := storage.ValidateExportPath(key); err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	info, err := e.Store.Stat(ctx, key)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	reader, err := e.Store.Get(ctx, key)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	return reader, info, nil
}
