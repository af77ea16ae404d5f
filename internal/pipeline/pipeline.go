package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nishithraj14/text-to-sql-generator/internal/nl2sql"
	"github.com/nishithraj14/text-to-sql-generator/internal/observability"
	"github.com/nishithraj14/text-to-sql-generator/internal/query"
	"github.com/nishithraj14/text-to-sql-generator/internal/render"
)

type Stage string

const (
	StageQuestion  Stage = "question"
	StageConnect   Stage = "connect"
	StageSchema    Stage = "schema"
	StageTranslate Stage = "translate"
	StageGuard     Stage = "guard"
	StageExecute   Stage = "execute"
)

var ErrEmptyQuestion = errors.New("please enter a natural language query")

// StageError reports which step of the flow failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Hint is the remediation text shown under the error.
func (e *StageError) Hint() string {
	switch e.Stage {
	case StageQuestion:
		return "Type a question about the selected database, for example \"How many customers are in the database?\"."
	case StageConnect:
		if errors.Is(e.Err, ErrUnknownSchema) {
			return "Pick one of the listed database schemas."
		}
		return "Check your .env file and make sure the database server is running."
	case StageSchema:
		return "Make sure the database is reachable and that tables have been imported."
	case StageTranslate:
		var modelErr *nl2sql.ModelError
		if errors.As(e.Err, &modelErr) {
			return "Check the API key in your .env file and try again."
		}
		return "Try rephrasing your question."
	case StageGuard:
		return "Only single read-only queries are run. Rephrase the question as a lookup."
	case StageExecute:
		return query.Classify(e.Err).Hint()
	default:
		return ""
	}
}

type Timings struct {
	Schema    time.Duration `json:"schema"`
	Translate time.Duration `json:"translate"`
	Execute   time.Duration `json:"execute"`
	Total     time.Duration `json:"total"`
}

type Answer struct {
	Schema       string         `json:"schema"`
	Question     string         `json:"question"`
	RawSQL       string         `json:"raw_sql"`
	SQL          string         `json:"sql"`
	FormattedSQL string         `json:"formatted_sql"`
	Result       query.Result   `json:"-"`
	Display      render.Display `json:"result"`
	Provider     string         `json:"provider"`
	Model        string         `json:"model"`
	Timings      Timings        `json:"timings"`
}

type Pipeline struct {
	Logger *slog.Logger
}

func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger}
}

// Translate runs the flow up to the sanitized statement without executing it.
func (p *Pipeline) Translate(ctx context.Context, sess *Session, schemaName, question string) (Answer, error) {
	start := time.Now()
	answer, _, err := p.translate(ctx, sess, schemaName, question)
	answer.Timings.Total = time.Since(start)
	return answer, err
}

// Ask answers a question end to end: describe, translate, guard, execute
// and normalize.
func (p *Pipeline) Ask(ctx context.Context, sess *Session, schemaName, question string) (answer Answer, err error) {
	start := time.Now()
	defer func() { answer.Timings.Total = time.Since(start) }()

	var conn *Connection
	answer, conn, err = p.translate(ctx, sess, schemaName, question)
	if err != nil {
		return answer, err
	}

	if err := query.CheckReadOnly(answer.SQL, sess.cfg.Engine.AllowWrites); err != nil {
		observability.ObserveExecution("rejected", 0, 0)
		p.Logger.WarnContext(ctx, "generated statement rejected",
			slog.String("schema", answer.Schema),
			slog.String("sql", answer.SQL),
			slog.Any("error", err),
		)
		return answer, &StageError{Stage: StageGuard, Err: err}
	}

	execStart := time.Now()
	result, err := conn.Engine.Execute(ctx, query.Request{SQL: answer.SQL})
	answer.Timings.Execute = time.Since(execStart)
	if err != nil {
		execErr := query.Classify(err)
		observability.ObserveExecution(string(execErr.Class), 0, answer.Timings.Execute)
		p.Logger.WarnContext(ctx, "generated statement failed",
			slog.String("schema", answer.Schema),
			slog.String("class", string(execErr.Class)),
			slog.Any("error", err),
		)
		return answer, &StageError{Stage: StageExecute, Err: execErr}
	}

	answer.Result = result
	answer.Display = render.Normalize(result)
	observability.ObserveExecution("ok", len(result.Rows), answer.Timings.Execute)
	p.Logger.InfoContext(ctx, "question answered",
		slog.String("schema", answer.Schema),
		slog.Int("rows", len(result.Rows)),
		slog.String("display", string(answer.Display.Kind)),
		slog.Duration("execute", answer.Timings.Execute),
	)
	return answer, nil
}

func (p *Pipeline) translate(ctx context.Context, sess *Session, schemaName, question string) (Answer, *Connection, error) {
	question = strings.TrimSpace(question)
	answer := Answer{Schema: schemaName, Question: question}
	if question == "" {
		return answer, nil, &StageError{Stage: StageQuestion, Err: ErrEmptyQuestion}
	}
	if sess == nil {
		return answer, nil, &StageError{Stage: StageConnect, Err: fmt.Errorf("session is required")}
	}
	if strings.TrimSpace(schemaName) == "" {
		schemaName = sess.DefaultSchema()
		answer.Schema = schemaName
	}

	conn, err := sess.Database(ctx, schemaName)
	if err != nil {
		p.Logger.ErrorContext(ctx, "database connection failed", slog.String("schema", schemaName), slog.Any("error", err))
		return answer, nil, &StageError{Stage: StageConnect, Err: err}
	}

	schemaStart := time.Now()
	desc, err := conn.Schema.Describe(ctx)
	answer.Timings.Schema = time.Since(schemaStart)
	if err != nil {
		p.Logger.ErrorContext(ctx, "schema introspection failed", slog.String("schema", schemaName), slog.Any("error", err))
		return answer, nil, &StageError{Stage: StageSchema, Err: err}
	}

	translateStart := time.Now()
	translated, err := sess.Translator().Translate(ctx, nl2sql.Request{SchemaText: desc.Text, Question: question})
	answer.Timings.Translate = time.Since(translateStart)
	answer.RawSQL = translated.RawText
	answer.Provider = translated.Provider
	answer.Model = translated.Model
	if err != nil {
		observability.ObserveTranslation("error", answer.Timings.Translate)
		p.Logger.WarnContext(ctx, "translation failed", slog.String("schema", schemaName), slog.Any("error", err))
		return answer, nil, &StageError{Stage: StageTranslate, Err: err}
	}
	observability.ObserveTranslation("ok", answer.Timings.Translate)

	answer.SQL = translated.SQL
	answer.FormattedSQL = render.FormatSQL(translated.SQL)
	p.Logger.DebugContext(ctx, "statement generated",
		slog.String("schema", schemaName),
		slog.String("model", translated.Model),
		slog.String("sql", translated.SQL),
	)
	return answer, conn, nil
}
