// Package text2sqlctl is the terminal client of the text-to-SQL API.
package text2sqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	DefaultBaseURL = "http://localhost:8501"
	defaultTimeout = 60 * time.Second
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// requestError marks failures that happened after the command line was
// accepted, so they exit with 1 instead of the usage code 2.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

type runner struct {
	opts    Options
	baseURL string
	timeout time.Duration
	asJSON  bool
	noColor bool
	stdout  io.Writer
	stderr  io.Writer
}

// Run executes one command and returns the process exit code.
func Run(ctx context.Context, args []string, defaults Options) int {
	r := &runner{
		opts:   defaults,
		stdout: defaults.Stdout,
		stderr: defaults.Stderr,
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = io.Discard
	}

	root := r.command()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		r.printError(reqErr.err)
		return 1
	}
	_, _ = fmt.Fprintf(r.stderr, "%v\n\n", err)
	_, _ = fmt.Fprint(r.stderr, root.UsageString())
	return 2
}

func (r *runner) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "text2sqlctl",
		Short:         "Ask questions about your databases in plain English",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return errors.New("a command is required")
		},
		PersistentPreRun: func(*cobra.Command, []string) {
			if r.noColor {
				pterm.DisableColor()
			}
		},
	}
	root.PersistentFlags().StringVar(&r.baseURL, "base-url", firstNonEmpty(r.opts.BaseURL, DefaultBaseURL), "text-to-SQL API base URL")
	root.PersistentFlags().DurationVar(&r.timeout, "timeout", durationOr(r.opts.Timeout, defaultTimeout), "HTTP timeout (e.g. 60s)")
	root.PersistentFlags().BoolVar(&r.asJSON, "json", false, "print the raw JSON response")
	root.PersistentFlags().BoolVar(&r.noColor, "no-color", false, "disable colored output")

	var askSchema, translateSchema string
	root.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Check that the API is up",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.simple(cmd.Context(), "/v1/health", "API is healthy")
			},
		},
		&cobra.Command{
			Use:   "ready",
			Short: "Check that the database and model settings are usable",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.simple(cmd.Context(), "/v1/ready", "API is ready")
			},
		},
		&cobra.Command{
			Use:   "schemas",
			Short: "List the selectable database schemas",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.schemas(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "tables <schema>",
			Short: "List the tables of a schema",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.tables(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "describe <schema>",
			Short: "Show the schema description handed to the model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return r.describe(cmd.Context(), args[0])
			},
		},
	)

	ask := &cobra.Command{
		Use:   "ask <question>",
		Short: "Generate SQL for a question and run it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.ask(cmd.Context(), "/v1/ask", askSchema, strings.Join(args, " "))
		},
	}
	ask.Flags().StringVarP(&askSchema, "schema", "s", "", "database schema (defaults to the first configured one)")

	translate := &cobra.Command{
		Use:   "translate <question>",
		Short: "Generate SQL for a question without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.ask(cmd.Context(), "/v1/translate", translateSchema, strings.Join(args, " "))
		},
	}
	translate.Flags().StringVarP(&translateSchema, "schema", "s", "", "database schema (defaults to the first configured one)")

	root.AddCommand(ask, translate)
	return root
}

func (r *runner) client() *client {
	httpClient := r.opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: r.timeout}
	}
	return &client{baseURL: r.baseURL, http: httpClient}
}

func (r *runner) simple(ctx context.Context, path, success string) error {
	body, err := r.client().get(ctx, path)
	if err != nil {
		return &requestError{err: err}
	}
	if r.asJSON {
		return r.printJSON(body)
	}
	_, _ = fmt.Fprintln(r.stdout, pterm.Success.Sprint(success))
	return nil
}

func (r *runner) schemas(ctx context.Context) error {
	body, err := r.client().get(ctx, "/v1/schemas")
	if err != nil {
		return &requestError{err: err}
	}
	if r.asJSON {
		return r.printJSON(body)
	}
	var payload struct {
		Schemas []string `json:"schemas"`
		Default string   `json:"default"`
	}
	if err := decode(body, &payload); err != nil {
		return &requestError{err: err}
	}
	data := pterm.TableData{{"Schema", "Default"}}
	for _, name := range payload.Schemas {
		marker := ""
		if name == payload.Default {
			marker = "yes"
		}
		data = append(data, []string{name, marker})
	}
	return r.printTable(data)
}

func (r *runner) tables(ctx context.Context, schemaName string) error {
	body, err := r.client().get(ctx, schemaPath(schemaName, "/tables"))
	if err != nil {
		return &requestError{err: err}
	}
	if r.asJSON {
		return r.printJSON(body)
	}
	var payload struct {
		Tables  []string `json:"tables"`
		Message string   `json:"message"`
	}
	if err := decode(body, &payload); err != nil {
		return &requestError{err: err}
	}
	if len(payload.Tables) == 0 {
		_, _ = fmt.Fprintln(r.stdout, pterm.Warning.Sprint(payload.Message))
		return nil
	}
	_, _ = fmt.Fprintf(r.stdout, "Available tables: %d\n", len(payload.Tables))
	items := make([]pterm.BulletListItem, 0, len(payload.Tables))
	for _, name := range payload.Tables {
		items = append(items, pterm.BulletListItem{Level: 0, Text: name})
	}
	list, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return &requestError{err: err}
	}
	_, _ = fmt.Fprint(r.stdout, list)
	return nil
}

func (r *runner) describe(ctx context.Context, schemaName string) error {
	body, err := r.client().get(ctx, schemaPath(schemaName, "/describe"))
	if err != nil {
		return &requestError{err: err}
	}
	if r.asJSON {
		return r.printJSON(body)
	}
	var payload struct {
		Dialect string `json:"dialect"`
		Text    string `json:"text"`
	}
	if err := decode(body, &payload); err != nil {
		return &requestError{err: err}
	}
	_, _ = fmt.Fprintln(r.stdout, pterm.DefaultBox.WithTitle(schemaName+" ("+payload.Dialect+")").Sprint(payload.Text))
	return nil
}

func (r *runner) ask(ctx context.Context, path, schemaName, question string) error {
	body, err := r.client().post(ctx, path, map[string]string{"schema": schemaName, "question": question})
	if err != nil {
		return &requestError{err: err}
	}
	if r.asJSON {
		return r.printJSON(body)
	}
	var answer answerPayload
	if err := decode(body, &answer); err != nil {
		return &requestError{err: err}
	}
	r.printSQL(firstNonEmpty(answer.FormattedSQL, answer.SQL))
	if answer.Result == nil {
		return nil
	}
	if err := r.printDisplay(*answer.Result); err != nil {
		return &requestError{err: err}
	}
	_, _ = fmt.Fprintln(r.stdout, pterm.Success.Sprint("Query executed successfully!"))
	return nil
}

func (r *runner) printSQL(sqlText string) {
	if sqlText == "" {
		return
	}
	_, _ = fmt.Fprintln(r.stdout, pterm.DefaultBox.WithTitle("Generated SQL Query").Sprint(sqlText))
}

func (r *runner) printTable(data pterm.TableData) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return &requestError{err: err}
	}
	_, _ = fmt.Fprintln(r.stdout, table)
	return nil
}

func (r *runner) printError(err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		_, _ = fmt.Fprintln(r.stderr, pterm.Error.Sprint("request failed: "+err.Error()))
		return
	}
	if sqlText, ok := apiErr.Context["formatted_sql"].(string); ok && sqlText != "" {
		_, _ = fmt.Fprintln(r.stderr, pterm.DefaultBox.WithTitle("Generated SQL Query").Sprint(sqlText))
	}
	_, _ = fmt.Fprintln(r.stderr, pterm.Error.Sprint(apiErr.Error()))
	if apiErr.Hint != "" {
		_, _ = fmt.Fprintln(r.stderr, pterm.Info.Sprint(apiErr.Hint))
	}
}

func (r *runner) printJSON(raw []byte) error {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(r.stdout, pretty)
		return nil
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(r.stdout, string(raw))
	}
	return nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
