// Package nl2sql turns a natural-language question plus a schema description
// into a single executable SQL statement.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptySQL = errors.New("model returned empty SQL")

type Request struct {
	SchemaText string `json:"schema_text"`
	Question   string `json:"question"`
}

type Result struct {
	// RawText is the model output before sanitization.
	RawText  string `json:"raw_text"`
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

// ModelError marks failures of the language model call itself (auth, rate
// limit, timeout) as opposed to problems with what it returned.
type ModelError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s completion with model %s failed: %v", e.Provider, e.Model, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// Translate synthesizes raw model output for the request and sanitizes it.
func (s *Synthesizer) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Question) == "" {
		return Result{}, fmt.Errorf("question is required")
	}
	raw, err := s.Synthesize(ctx, req.SchemaText, req.Question)
	if err != nil {
		return Result{}, err
	}
	sql := Sanitize(raw)
	if sql == "" {
		return Result{RawText: raw, Provider: s.completer.Provider(), Model: s.completer.Model()}, ErrEmptySQL
	}
	return Result{
		RawText:  raw,
		SQL:      sql,
		Provider: s.completer.Provider(),
		Model:    s.completer.Model(),
	}, nil
}
