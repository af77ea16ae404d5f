package nl2sql

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LangChainCompleter talks to any OpenAI-compatible chat completion endpoint
// (Groq, OpenAI, local gateways).
type LangChainCompleter struct {
	llm   llms.Model
	model string
}

func NewLangChainCompleter(cfg OpenAIConfig) (*LangChainCompleter, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	llm, err := openai.New(
		openai.WithBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")),
		openai.WithToken(strings.TrimSpace(cfg.APIKey)),
		openai.WithModel(model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}
	return &LangChainCompleter{llm: llm, model: model}, nil
}

func (c *LangChainCompleter) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if len(opts.Stop) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(opts.Stop))
	}
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOpts...)
}

func (c *LangChainCompleter) Provider() string {
	return "openai-compatible"
}

func (c *LangChainCompleter) Model() string {
	return c.model
}
