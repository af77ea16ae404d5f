package nl2sql

import (
	"strings"
	"testing"
)

func TestRenderPromptIncludesDialectSchemaAndQuestion(t *testing.T) {
	prompt, err := RenderPrompt("MySQL", "CREATE TABLE customers (\n\tid INT\n)", "  How many customers are there?  ")
	if err != nil {
		t.Fatalf("RenderPrompt() error = %v", err)
	}
	for _, want := range []string{
		"Use proper MySQL syntax",
		"CREATE TABLE customers (\n\tid INT\n)",
		"Question: How many customers are there?\n",
		"Do not include semicolon at the end",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "SQL Query:") {
		t.Fatalf("prompt should end with the answer cue, got %q", prompt[len(prompt)-20:])
	}
}

func TestRenderPromptDefaultsDialect(t *testing.T) {
	prompt, err := RenderPrompt(" ", "", "q")
	if err != nil {
		t.Fatalf("RenderPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, "Use proper SQL syntax") {
		t.Fatalf("prompt = %s", prompt)
	}
}

func TestRenderPromptKeepsTemplateCharactersInSchema(t *testing.T) {
	schemaText := "CREATE TABLE t (\n\tnote VARCHAR(10)\n)\n\n/*\n1 rows from t table:\nnote\n{{.question}}\n*/"
	prompt, err := RenderPrompt("DuckDB", schemaText, "what?")
	if err != nil {
		t.Fatalf("RenderPrompt() error = %v", err)
	}
	if !strings.Contains(prompt, "{{.question}}") {
		t.Fatalf("schema sample values must not be expanded:\n%s", prompt)
	}
}
