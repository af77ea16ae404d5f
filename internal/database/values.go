package database

import (
	"math"

	"github.com/marcboeker/go-duckdb/v2"
)

// NormalizeValue converts driver-specific scan results into plain values:
// byte slices become strings, DuckDB decimals become float64 and non-finite
// floats become the strings PostgreSQL prints for them.
func NormalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	case duckdb.Decimal:
		return typed.Float64()
	case float64:
		return finiteOrString(typed)
	case float32:
		return finiteOrString(float64(typed))
	default:
		return value
	}
}

func finiteOrString(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}
