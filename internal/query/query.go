package query

import (
	"context"
	"time"
)

const DefaultRowLimit = 1000

type Request struct {
	SQL string
	// RowLimit caps how many rows are read back; zero means DefaultRowLimit
	// and a negative value reads everything.
	RowLimit int
}

type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool
	Duration  time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
