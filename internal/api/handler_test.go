package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/tmc/langchaingo/tools/sqldatabase"

	"github.com/nishithraj14/text-to-sql-generator/internal/config"
	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/nl2sql"
	"github.com/nishithraj14/text-to-sql-generator/internal/pipeline"
	"github.com/nishithraj14/text-to-sql-generator/internal/schema"
)

func TestHealthEndpoint(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["service"] != "text2sql-api" {
		t.Fatalf("service = %v", body["service"])
	}
}

func TestReadyEndpointReturns503WhenDependencyFails(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Readiness: func(context.Context) error {
			return errors.New("dependency down")
		},
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error_code"] != "NOT_READY" || body["retryable"] != true {
		t.Fatalf("body = %v", body)
	}
	if body["trace_id"] == "" {
		t.Fatal("trace_id should be set by the trace middleware")
	}
}

func TestReadyEndpointPingsSession(t *testing.T) {
	sess, mock := newTestSession(t, &fakeTranslator{}, true)
	mock.ExpectPing()

	h := NewHandler(testConfig(t), Dependencies{Readiness: CheckSession(sess)})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	assertSQLMock(t, mock)
}

func TestCheckAIConfigRequiresKey(t *testing.T) {
	cfg := testConfig(t)
	if err := CheckAIConfig(cfg)(context.Background()); !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("CheckAIConfig() error = %v", err)
	}
	cfg.AI.APIKey = "secret"
	if err := CheckAIConfig(cfg)(context.Background()); err != nil {
		t.Fatalf("CheckAIConfig() error = %v", err)
	}
	if err := CheckSession(nil)(context.Background()); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestCombineReadinessChecksStopsOnFirstFailure(t *testing.T) {
	order := make([]int, 0, 3)
	combined := CombineReadinessChecks(
		func(_ context.Context) error {
			order = append(order, 1)
			return nil
		},
		nil,
		func(_ context.Context) error {
			order = append(order, 2)
			return errors.New("boom")
		},
		func(_ context.Context) error {
			order = append(order, 3)
			return nil
		},
	)

	err := combined(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("execution order = %#v", order)
	}
}

func TestUIHandlerServesNonAPIRoutes(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		UI: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>ok</html>")
		}),
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}

func TestRoutesWithoutSessionReturn501(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})
	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/v1/schemas", nil),
		httptest.NewRequest(http.MethodGet, "/v1/schemas/e_commerce/tables", nil),
		httptest.NewRequest(http.MethodPost, "/v1/ask", bytes.NewBufferString(`{"question":"q"}`)),
		httptest.NewRequest(http.MethodPost, "/v1/translate", bytes.NewBufferString(`{"question":"q"}`)),
	}
	for _, req := range requests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("%s %s status = %d", req.Method, req.URL.Path, rr.Code)
		}
		if body := decodeBody(t, rr); body["error_code"] != "SESSION_NOT_CONFIGURED" {
			t.Fatalf("%s body = %v", req.URL.Path, body)
		}
	}
}

type fakeTranslator struct {
	result nl2sql.Result
	err    error
	calls  int
}

func (f *fakeTranslator) Translate(_ context.Context, _ nl2sql.Request) (nl2sql.Result, error) {
	f.calls++
	return f.result, f.err
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("text2sql-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return cfg
}

// newTestSession backs the schemas e_commerce and analytics with one sqlmock
// pool speaking MySQL.
func newTestSession(t *testing.T, translator nl2sql.Translator, monitorPings bool) (*pipeline.Session, sqlmock.Sqlmock) {
	t.Helper()
	return newTestSessionWithSchema(t, translator, monitorPings, schema.Options{})
}

func newTestSessionWithSchema(t *testing.T, translator nl2sql.Translator, monitorPings bool, schemaOpts schema.Options) (*pipeline.Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(monitorPings))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	sess, err := pipeline.NewSession(
		pipeline.SessionConfig{Schemas: []string{"e_commerce", "analytics"}, Schema: schemaOpts},
		translator,
		pipeline.WithOpener(func(_ context.Context, name string) (*database.DB, error) {
			return database.Wrap(db, database.MySQL, name), nil
		}),
		pipeline.WithEngineOpener(func(db *database.DB, _ string) (sqldatabase.Engine, error) {
			return schema.NewDBEngine(db), nil
		}),
	)
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return sess, mock
}

func expectCustomersDescribe(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ListTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers"))
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ColumnsSQL)).
		WithArgs("customers").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "column_type", "is_nullable"}).
			AddRow("id", "int", "NO").
			AddRow("name", "varchar(64)", "YES"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM customers LIMIT 3")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Ada"))
}

func postJSON(t *testing.T, h http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json decode failed: %v (body=%s)", err, rr.Body.String())
	}
	return body
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func mapLookup(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
