package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/schema"
)

func TestListSchemas(t *testing.T) {
	sess, _ := newTestSession(t, &fakeTranslator{}, false)
	h := NewHandler(testConfig(t), Dependencies{Session: sess})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schemas", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	schemas, _ := body["schemas"].([]any)
	if len(schemas) != 2 || schemas[0] != "e_commerce" || body["default"] != "e_commerce" {
		t.Fatalf("body = %v", body)
	}
}

func TestListTables(t *testing.T) {
	sess, mock := newTestSession(t, &fakeTranslator{}, false)
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ListTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))
	h := NewHandler(testConfig(t), Dependencies{Session: sess})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schemas/analytics/tables", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	tables, _ := body["tables"].([]any)
	if body["schema"] != "analytics" || len(tables) != 2 || tables[1] != "orders" {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["message"]; ok {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	assertSQLMock(t, mock)
}

func TestListTablesEmptyDatabase(t *testing.T) {
	sess, mock := newTestSession(t, &fakeTranslator{}, false)
	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ListTablesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	h := NewHandler(testConfig(t), Dependencies{Session: sess})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schemas/e_commerce/tables", nil))
	body := decodeBody(t, rr)
	message, _ := body["message"].(string)
	if rr.Code != http.StatusOK || !strings.HasPrefix(message, "No tables found") {
		t.Fatalf("status = %d body = %v", rr.Code, body)
	}
}

func TestListTablesErrors(t *testing.T) {
	sess, mock := newTestSession(t, &fakeTranslator{}, false)
	h := NewHandler(testConfig(t), Dependencies{Session: sess})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schemas/payroll/tables", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown schema status = %d", rr.Code)
	}

	mock.ExpectQuery(regexp.QuoteMeta(database.MySQL.ListTablesSQL)).
		WillReturnError(errors.New("connection reset by peer"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schemas/e_commerce/tables", nil))
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "SCHEMA_FETCH_FAILED" {
		t.Fatalf("body = %v", body)
	}
	assertSQLMock(t, mock)
}

func TestDescribeSchema(t *testing.T) {
	sess, mock := newTestSession(t, &fakeTranslator{}, false)
	expectCustomersDescribe(mock)
	h := NewHandler(testConfig(t), Dependencies{Session: sess})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schemas/e_commerce/describe", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	text, _ := body["text"].(string)
	if body["dialect"] != "MySQL" || !strings.Contains(text, "CREATE TABLE customers") {
		t.Fatalf("body = %v", body)
	}
	assertSQLMock(t, mock)
}

func TestDescribeSchemaServesCacheUntilRefresh(t *testing.T) {
	sess, mock := newTestSessionWithSchema(t, &fakeTranslator{}, false, schema.Options{CacheTTL: time.Hour})
	h := NewHandler(testConfig(t), Dependencies{Session: sess})

	expectCustomersDescribe(mock)
	for _, path := range []string{"/v1/schemas/e_commerce/describe", "/v1/schemas/e_commerce/describe"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
		}
	}
	assertSQLMock(t, mock)

	expectCustomersDescribe(mock)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schemas/e_commerce/describe?refresh=true", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body=%s", rr.Code, rr.Body.String())
	}
	assertSQLMock(t, mock)
}
