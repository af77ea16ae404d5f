// Package render converts execution results and generated SQL into their
// display forms.
package render

import (
	"strconv"

	"github.com/nishithraj14/text-to-sql-generator/internal/query"
)

type Kind string

const (
	KindEmpty  Kind = "empty"
	KindScalar Kind = "scalar"
	KindList   Kind = "list"
	KindTable  Kind = "table"
	KindText   Kind = "text"
)

const NoResultsMessage = "No results found."

// Display is the single shape a result is shown in. Only the fields matching
// Kind are set.
type Display struct {
	Kind      Kind     `json:"kind"`
	Columns   []string `json:"columns,omitempty"`
	Rows      [][]any  `json:"rows,omitempty"`
	Values    []any    `json:"values,omitempty"`
	Scalar    any      `json:"scalar,omitempty"`
	Text      string   `json:"text,omitempty"`
	Message   string   `json:"message,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}

// RowCount is the number of records the display represents.
func (d Display) RowCount() int {
	switch d.Kind {
	case KindTable:
		return len(d.Rows)
	case KindList:
		return len(d.Values)
	case KindScalar, KindText:
		return 1
	default:
		return 0
	}
}

// Normalize picks the display for a raw execution result. Typed results are
// shaped by their dimensions; text is parsed as a literal value first and
// shown verbatim when that fails.
func Normalize(raw any) Display {
	switch typed := raw.(type) {
	case query.Result:
		return fromResult(typed)
	case *query.Result:
		if typed == nil {
			return empty()
		}
		return fromResult(*typed)
	case []byte:
		return fromText(string(typed))
	case string:
		return fromText(typed)
	case Tuple:
		return Display{Kind: KindScalar, Scalar: []any(typed)}
	case [][]any:
		return fromRows(typed)
	case []any:
		return fromValues(typed)
	default:
		return Display{Kind: KindScalar, Scalar: typed}
	}
}

func fromResult(result query.Result) Display {
	switch {
	case len(result.Rows) == 0:
		return empty()
	case len(result.Rows) == 1 && len(result.Columns) == 1 && len(result.Rows[0]) == 1:
		return Display{Kind: KindScalar, Scalar: result.Rows[0][0], Columns: result.Columns}
	default:
		return Display{Kind: KindTable, Columns: result.Columns, Rows: result.Rows, Truncated: result.Truncated}
	}
}

func fromText(text string) Display {
	value, err := ParseLiteral(text)
	if err != nil {
		return Display{Kind: KindText, Text: text}
	}
	if values, ok := value.([]any); ok {
		return fromValues(values)
	}
	return Display{Kind: KindScalar, Scalar: value}
}

func fromValues(values []any) Display {
	if len(values) == 0 {
		return empty()
	}
	if !isRecord(values[0]) {
		return Display{Kind: KindList, Values: values}
	}
	rows := make([][]any, 0, len(values))
	for _, value := range values {
		rows = append(rows, recordFields(value))
	}
	return tableOf(rows)
}

func fromRows(rows [][]any) Display {
	if len(rows) == 0 {
		return empty()
	}
	return tableOf(rows)
}

// tableOf builds a table with positional column names sized by the first
// record.
func tableOf(rows [][]any) Display {
	columns := make([]string, len(rows[0]))
	for i := range columns {
		columns[i] = strconv.Itoa(i)
	}
	return Display{Kind: KindTable, Columns: columns, Rows: rows}
}

func isRecord(value any) bool {
	_, ok := value.(Tuple)
	return ok
}

func recordFields(value any) []any {
	if tuple, ok := value.(Tuple); ok {
		return []any(tuple)
	}
	return []any{value}
}

func empty() Display {
	return Display{Kind: KindEmpty, Message: NoResultsMessage}
}
