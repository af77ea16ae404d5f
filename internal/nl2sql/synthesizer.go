package nl2sql

import (
	"context"
	"fmt"
	"time"
)

type CompletionOptions struct {
	Temperature float64
	Stop        []string
}

// Completer is a single-prompt text completion backend.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
	Provider() string
	Model() string
}

type SynthesizerConfig struct {
	// Dialect is the engine name written into the prompt, e.g. "MySQL".
	Dialect     string
	Temperature float64
	Timeout     time.Duration
}

type Synthesizer struct {
	completer   Completer
	dialect     string
	temperature float64
	timeout     time.Duration
}

func NewSynthesizer(completer Completer, cfg SynthesizerConfig) (*Synthesizer, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	return &Synthesizer{
		completer:   completer,
		dialect:     cfg.Dialect,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Synthesize renders the prompt and returns the model output unmodified.
// There is no retry: the caller reports the error and the user resubmits.
func (s *Synthesizer) Synthesize(ctx context.Context, schemaText, question string) (string, error) {
	prompt, err := RenderPrompt(s.dialect, schemaText, question)
	if err != nil {
		return "", err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	raw, err := s.completer.Complete(ctx, prompt, CompletionOptions{
		Temperature: s.temperature,
		Stop:        StopSequences,
	})
	if err != nil {
		return "", &ModelError{Provider: s.completer.Provider(), Model: s.completer.Model(), Err: err}
	}
	return raw, nil
}
