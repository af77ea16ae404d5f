package api

import (
	"errors"
	"net/http"

	"github.com/nishithraj14/text-to-sql-generator/internal/nl2sql"
	"github.com/nishithraj14/text-to-sql-generator/internal/pipeline"
	"github.com/nishithraj14/text-to-sql-generator/internal/query"
)

type questionRequest struct {
	Schema   string `json:"schema"`
	Question string `json:"question"`
}

func handleTranslate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeSessionMissing(w, r)
		return
	}
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid translation request body", "", false, map[string]any{"details": err.Error()})
		return
	}

	answer, err := deps.Pipeline.Translate(r.Context(), deps.Session, req.Schema, req.Question)
	if err != nil {
		writeStageError(w, r, err, answerContext(answer))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schema":        answer.Schema,
		"sql":           answer.SQL,
		"formatted_sql": answer.FormattedSQL,
		"raw_sql":       answer.RawSQL,
		"provider":      answer.Provider,
		"model":         answer.Model,
		"stats": map[string]any{
			"schema_ms":    answer.Timings.Schema.Milliseconds(),
			"translate_ms": answer.Timings.Translate.Milliseconds(),
			"total_ms":     answer.Timings.Total.Milliseconds(),
		},
	})
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeSessionMissing(w, r)
		return
	}
	var req questionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", "", false, map[string]any{"details": err.Error()})
		return
	}

	answer, err := deps.Pipeline.Ask(r.Context(), deps.Session, req.Schema, req.Question)
	if err != nil {
		writeStageError(w, r, err, answerContext(answer))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schema":        answer.Schema,
		"question":      answer.Question,
		"sql":           answer.SQL,
		"formatted_sql": answer.FormattedSQL,
		"raw_sql":       answer.RawSQL,
		"result":        answer.Display,
		"provider":      answer.Provider,
		"model":         answer.Model,
		"stats": map[string]any{
			"rows":         answer.Display.RowCount(),
			"truncated":    answer.Result.Truncated,
			"schema_ms":    answer.Timings.Schema.Milliseconds(),
			"translate_ms": answer.Timings.Translate.Milliseconds(),
			"execute_ms":   answer.Timings.Execute.Milliseconds(),
			"total_ms":     answer.Timings.Total.Milliseconds(),
		},
	})
}

// answerContext keeps the generated statement visible when a later stage fails.
func answerContext(answer pipeline.Answer) map[string]any {
	if answer.SQL == "" && answer.RawSQL == "" {
		return nil
	}
	return map[string]any{
		"schema":        answer.Schema,
		"sql":           answer.SQL,
		"formatted_sql": answer.FormattedSQL,
		"raw_sql":       answer.RawSQL,
	}
}

func writeStageError(w http.ResponseWriter, r *http.Request, err error, extra map[string]any) {
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", err.Error(), "", false, extra)
		return
	}

	hint := stageErr.Hint()
	message := stageErr.Err.Error()
	switch stageErr.Stage {
	case pipeline.StageQuestion:
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", message, hint, false, extra)
	case pipeline.StageConnect:
		if errors.Is(err, pipeline.ErrUnknownSchema) {
			writeError(r.Context(), w, http.StatusNotFound, "UNKNOWN_SCHEMA", message, hint, false, extra)
			return
		}
		writeError(r.Context(), w, http.StatusServiceUnavailable, "CONNECTION_FAILED", "failed to connect to database: "+message, hint, true, extra)
	case pipeline.StageSchema:
		writeError(r.Context(), w, http.StatusBadGateway, "SCHEMA_FETCH_FAILED", "failed to load schema: "+message, hint, true, extra)
	case pipeline.StageTranslate:
		var modelErr *nl2sql.ModelError
		writeError(r.Context(), w, http.StatusBadGateway, "TRANSLATE_FAILED", "failed to translate question: "+message, hint, errors.As(err, &modelErr), extra)
	case pipeline.StageGuard:
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "SQL_NOT_ALLOWED", message, hint, false, extra)
	case pipeline.StageExecute:
		switch query.Classify(stageErr.Err).Class {
		case query.ClassSyntax:
			writeError(r.Context(), w, http.StatusUnprocessableEntity, "SQL_SYNTAX_ERROR", "SQL syntax error: "+message, hint, false, extra)
		case query.ClassOperational:
			writeError(r.Context(), w, http.StatusBadGateway, "DATABASE_ERROR", "database error: "+message, hint, false, extra)
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", "error: "+message, hint, false, extra)
		}
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_FAILED", message, hint, false, extra)
	}
}
