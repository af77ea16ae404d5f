package query

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marcboeker/go-duckdb/v2"
)

type Class string

const (
	ClassSyntax      Class = "syntax"
	ClassOperational Class = "operational"
	ClassOther       Class = "other"
)

const (
	mysqlParseError      = 1064
	mysqlSyntaxError     = 1149
	postgresSyntaxError  = "42601"
	postgresClassSyntax  = "42"
	postgresClassConnect = "08"
)

// ExecError is a failed statement execution tagged with the kind of remedy
// the user should try.
type ExecError struct {
	Class Class
	Err   error
}

func (e *ExecError) Error() string {
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Hint is the remediation shown next to the error.
func (e *ExecError) Hint() string {
	switch e.Class {
	case ClassSyntax:
		return "The generated SQL query has syntax errors. Try rephrasing your question."
	case ClassOperational:
		return "Make sure tables exist in the database."
	default:
		return "Try rephrasing your question or check if the database has tables."
	}
}

// Classify wraps err in an ExecError. Errors that already are ExecErrors are
// returned as they are.
func Classify(err error) *ExecError {
	if err == nil {
		return nil
	}
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr
	}
	return &ExecError{Class: classOf(err), Err: err}
}

func classOf(err error) Class {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		if mysqlErr.Number == mysqlParseError || mysqlErr.Number == mysqlSyntaxError {
			return ClassSyntax
		}
		return ClassOperational
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == postgresSyntaxError {
			return ClassSyntax
		}
		if len(pgErr.Code) >= 2 && (pgErr.Code[:2] == postgresClassSyntax || pgErr.Code[:2] == postgresClassConnect) {
			return ClassOperational
		}
		return ClassOther
	}

	var duckErr *duckdb.Error
	if errors.As(err, &duckErr) {
		if duckErr.Type == duckdb.ErrorTypeParser {
			return ClassSyntax
		}
		return ClassOperational
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return ClassOperational
	}
	return ClassOther
}
