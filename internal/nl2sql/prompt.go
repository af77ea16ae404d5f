package nl2sql

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// StopSequences cut the completion off once the model starts inventing a
// result section or a second paragraph after the statement.
var StopSequences = []string{"\nSQLResult:", "\n\n"}

const promptTemplate = `Based on the table schema below, write a SQL query that would answer the user's question:

IMPORTANT RULES:
- Only provide the SQL query, nothing else
- Provide the SQL query in a single line without line breaks
- Use proper {{.dialect}} syntax
- Do not include any explanations or markdown formatting
- Do not include semicolon at the end

Table Schema:
{{.schema}}

Question: {{.question}}

SQL Query:`

var questionPrompt = prompts.NewPromptTemplate(promptTemplate, []string{"dialect", "schema", "question"})

// RenderPrompt fills the instruction template.
func RenderPrompt(dialect, schemaText, question string) (string, error) {
	if strings.TrimSpace(dialect) == "" {
		dialect = "SQL"
	}
	prompt, err := questionPrompt.Format(map[string]any{
		"dialect":  dialect,
		"schema":   schemaText,
		"question": strings.TrimSpace(question),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return prompt, nil
}
