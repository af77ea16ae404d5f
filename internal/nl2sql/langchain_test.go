package nl2sql

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewLangChainCompleterValidatesConfig(t *testing.T) {
	if _, err := NewLangChainCompleter(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewLangChainCompleter(OpenAIConfig{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	completer, err := NewLangChainCompleter(OpenAIConfig{BaseURL: "http://localhost/", APIKey: "k"})
	if err != nil {
		t.Fatalf("NewLangChainCompleter() error = %v", err)
	}
	if completer.Model() != "llama-3.3-70b-versatile" || completer.Provider() != "openai-compatible" {
		t.Fatalf("completer = %s/%s", completer.Provider(), completer.Model())
	}
}

func TestLangChainCompleterCallsChatCompletions(t *testing.T) {
	var captured map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "SELECT COUNT(*) FROM customers"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	completer, err := NewLangChainCompleter(OpenAIConfig{BaseURL: server.URL, APIKey: "secret", Model: "test-model", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewLangChainCompleter() error = %v", err)
	}
	out, err := completer.Complete(context.Background(), "prompt text", CompletionOptions{Stop: StopSequences})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "SELECT COUNT(*) FROM customers" {
		t.Fatalf("Complete() = %q", out)
	}
	if auth != "Bearer secret" {
		t.Fatalf("Authorization = %q", auth)
	}
	if captured["model"] != "test-model" {
		t.Fatalf("model = %v", captured["model"])
	}
	if !strings.Contains(string(mustJSON(t, captured["messages"])), "prompt text") {
		t.Fatalf("messages = %v", captured["messages"])
	}
}

func TestLangChainCompleterSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	completer, err := NewLangChainCompleter(OpenAIConfig{BaseURL: server.URL, APIKey: "bad"})
	if err != nil {
		t.Fatalf("NewLangChainCompleter() error = %v", err)
	}
	if _, err := completer.Complete(context.Background(), "p", CompletionOptions{}); err == nil {
		t.Fatal("expected error for unauthorized response")
	}
}

func mustJSON(t *testing.T, value any) []byte {
	t.Helper()
	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return raw
}
