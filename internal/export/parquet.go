package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/nishithraj14/text-to-sql-generator/internal/query"
)

// Cell is one value of a result in long format: one parquet row per cell, so
// results of any shape share a single file schema.
type Cell struct {
	Row    int64  `parquet:"row"`
	Column string `parquet:"column"`
	Value  string `parquet:"value"`
	IsNull bool   `parquet:"is_null"`
}

type EncodeResult struct {
	Data      []byte
	RowCount  int64
	CellCount int64
}

func EncodeResultToParquet(result query.Result) (EncodeResult, error) {
	if len(result.Columns) == 0 {
		return EncodeResult{}, fmt.Errorf("result has no columns")
	}

	cells := make([]Cell, 0, len(result.Rows)*len(result.Columns))
	for rowIndex, row := range result.Rows {
		if len(row) != len(result.Columns) {
			return EncodeResult{}, fmt.Errorf("row %d has %d values for %d columns", rowIndex, len(row), len(result.Columns))
		}
		for columnIndex, value := range row {
			cells = append(cells, Cell{
				Row:    int64(rowIndex),
				Column: result.Columns[columnIndex],
				Value:  formatValue(value),
				IsNull: value == nil,
			})
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Cell](buf)
	if _, err := writer.Write(cells); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{
		Data:      buf.Bytes(),
		RowCount:  int64(len(result.Rows)),
		CellCount: int64(len(cells)),
	}, nil
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'g', -1, 32)
	default:
		return fmt.Sprint(typed)
	}
}
