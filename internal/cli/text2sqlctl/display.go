package text2sqlctl

import (
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"

	"github.com/nishithraj14/text-to-sql-generator/internal/render"
)

type answerPayload struct {
	Schema       string          `json:"schema"`
	SQL          string          `json:"sql"`
	FormattedSQL string          `json:"formatted_sql"`
	Result       *render.Display `json:"result"`
}

func (r *runner) printDisplay(display render.Display) error {
	_, _ = fmt.Fprintln(r.stdout, pterm.DefaultSection.Sprint("Query Results"))
	switch display.Kind {
	case render.KindEmpty:
		_, _ = fmt.Fprintln(r.stdout, pterm.Info.Sprint(firstNonEmpty(display.Message, render.NoResultsMessage)))
	case render.KindScalar:
		_, _ = fmt.Fprintln(r.stdout, formatCell(display.Scalar))
	case render.KindList:
		raw, err := json.MarshalIndent(display.Values, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(r.stdout, string(raw))
	case render.KindTable:
		data := pterm.TableData{display.Columns}
		for _, row := range display.Rows {
			cells := make([]string, len(row))
			for i, value := range row {
				cells[i] = formatCell(value)
			}
			data = append(data, cells)
		}
		if err := r.printTable(data); err != nil {
			return err
		}
		if display.Truncated {
			_, _ = fmt.Fprintln(r.stdout, pterm.Warning.Sprintf("Only the first %d rows are shown.", len(display.Rows)))
		}
	default:
		_, _ = fmt.Fprintln(r.stdout, display.Text)
	}
	return nil
}

func formatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return "None"
	case string:
		return typed
	case json.Number:
		return typed.String()
	case map[string]any, []any:
		raw, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(raw)
	default:
		return fmt.Sprint(typed)
	}
}
