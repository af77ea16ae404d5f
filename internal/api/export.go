package api

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/nishithraj14/text-to-sql-generator/internal/export"
	"github.com/nishithraj14/text-to-sql-generator/internal/pipeline"
	"github.com/nishithraj14/text-to-sql-generator/internal/query"
	"github.com/nishithraj14/text-to-sql-generator/internal/storage"
)

type exportRequest struct {
	Schema string `json:"schema"`
	SQL    string `json:"sql"`
}

func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil || deps.Exporter.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", export.ErrNotConfigured.Error(), "Set TEXT2SQL_EXPORT_ENABLED=true and the TEXT2SQL_EXPORT_* settings.", false, nil)
		return
	}
	if deps.Session == nil {
		writeSessionMissing(w, r)
		return
	}
	var req exportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid export request body", "", false, map[string]any{"details": err.Error()})
		return
	}
	schemaName := strings.TrimSpace(req.Schema)
	if schemaName == "" {
		schemaName = deps.Session.DefaultSchema()
	}

	conn, err := deps.Session.Database(r.Context(), schemaName)
	if err != nil {
		writeStageError(w, r, &pipeline.StageError{Stage: pipeline.StageConnect, Err: err}, nil)
		return
	}
	result, err := conn.Engine.Execute(r.Context(), query.Request{SQL: req.SQL})
	if err != nil {
		stage := pipeline.StageExecute
		if errors.Is(err, query.ErrNotReadOnly) || errors.Is(err, query.ErrMultipleStatements) || errors.Is(err, query.ErrEmptyStatement) {
			stage = pipeline.StageGuard
		}
		writeStageError(w, r, &pipeline.StageError{Stage: stage, Err: err}, map[string]any{"sql": req.SQL})
		return
	}

	info, err := deps.Exporter.Export(r.Context(), schemaName, result)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_FAILED", "failed to export result", "Check the export bucket settings and that the object store is reachable.", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"schema":    schemaName,
		"key":       info.Key,
		"size":      info.Size,
		"rows":      len(result.Rows),
		"truncated": result.Truncated,
	})
}

func handleDownloadExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Exporter == nil || deps.Exporter.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EXPORT_NOT_CONFIGURED", export.ErrNotConfigured.Error(), "", false, nil)
		return
	}
	key := r.PathValue("key")
	reader, info, err := deps.Exporter.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "EXPORT_NOT_FOUND", "export was not found", "", false, map[string]any{"key": key})
			return
		}
		if storage.ValidateExportPath(key) != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_EXPORT_KEY", err.Error(), "", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_FAILED", "failed to read export", "", true, map[string]any{"details": err.Error()})
		return
	}
	defer func() { _ = reader.Close() }()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(key)+`"`)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
