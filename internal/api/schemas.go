package api

import (
	"net/http"
	"strconv"

	"github.com/nishithraj14/text-to-sql-generator/internal/pipeline"
)

func handleListSchemas(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeSessionMissing(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schemas": deps.Session.Schemas(),
		"default": deps.Session.DefaultSchema(),
	})
}

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeSessionMissing(w, r)
		return
	}
	schemaName := r.PathValue("schema")
	conn, err := deps.Session.Database(r.Context(), schemaName)
	if err != nil {
		writeStageError(w, r, &pipeline.StageError{Stage: pipeline.StageConnect, Err: err}, nil)
		return
	}
	tables, err := conn.Schema.Tables(r.Context())
	if err != nil {
		writeStageError(w, r, &pipeline.StageError{Stage: pipeline.StageSchema, Err: err}, nil)
		return
	}
	response := map[string]any{
		"schema": schemaName,
		"tables": tables,
	}
	if len(tables) == 0 {
		response["message"] = "No tables found in this database. You need to import data into the database first."
	}
	writeJSON(w, http.StatusOK, response)
}

func handleDescribeSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeSessionMissing(w, r)
		return
	}
	schemaName := r.PathValue("schema")
	conn, err := deps.Session.Database(r.Context(), schemaName)
	if err != nil {
		writeStageError(w, r, &pipeline.StageError{Stage: pipeline.StageConnect, Err: err}, nil)
		return
	}
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		conn.Schema.Invalidate()
	}
	desc, err := conn.Schema.Describe(r.Context())
	if err != nil {
		writeStageError(w, r, &pipeline.StageError{Stage: pipeline.StageSchema, Err: err}, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schema":     schemaName,
		"dialect":    desc.Dialect,
		"tables":     desc.Tables,
		"text":       desc.Text,
		"fetched_at": desc.Fetched,
	})
}

func writeSessionMissing(w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "database session is not configured", "", false, nil)
}
