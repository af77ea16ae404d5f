package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nishithraj14/text-to-sql-generator/internal/nl2sql"
)

var (
	ErrEmptyStatement     = errors.New("sql is required")
	ErrMultipleStatements = errors.New("only a single SQL statement can be executed")
	ErrNotReadOnly        = errors.New("only read-only statements are allowed")
)

var readOnlyKeywords = map[string]struct{}{
	"SELECT":   {},
	"WITH":     {},
	"SHOW":     {},
	"DESCRIBE": {},
	"DESC":     {},
	"EXPLAIN":  {},
}

// writeKeywords may not appear anywhere in a read-only statement. INTO covers
// SELECT ... INTO as well as INSERT/MERGE/REPLACE/COPY ... INTO.
var writeKeywords = map[string]struct{}{
	"INSERT":     {},
	"UPDATE":     {},
	"DELETE":     {},
	"MERGE":      {},
	"UPSERT":     {},
	"CREATE":     {},
	"DROP":       {},
	"ALTER":      {},
	"TRUNCATE":   {},
	"RENAME":     {},
	"INTO":       {},
	"COPY":       {},
	"ATTACH":     {},
	"DETACH":     {},
	"GRANT":      {},
	"REVOKE":     {},
	"CALL":       {},
	"EXEC":       {},
	"EXECUTE":    {},
	"LOAD":       {},
	"INSTALL":    {},
	"VACUUM":     {},
	"EXPORT":     {},
	"IMPORT":     {},
	"LOCK":       {},
	"CHECKPOINT": {},
}

// CheckReadOnly accepts exactly one statement and, unless allowWrites is set,
// requires it to start with a read-only keyword and to contain no keyword
// that modifies data or schema outside of literals and quoted identifiers.
// EXPLAIN ANALYZE runs the explained statement and is rejected too.
func CheckReadOnly(sqlText string, allowWrites bool) error {
	statements := nl2sql.SplitStatements(sqlText)
	switch len(statements) {
	case 0:
		return ErrEmptyStatement
	case 1:
	default:
		return fmt.Errorf("%w: found %d", ErrMultipleStatements, len(statements))
	}
	if allowWrites {
		return nil
	}
	statement := statements[0]
	keyword := LeadingKeyword(statement)
	if _, ok := readOnlyKeywords[keyword]; !ok {
		return fmt.Errorf("%w: statement starts with %q", ErrNotReadOnly, keyword)
	}
	for _, word := range statementWords(statement) {
		if _, ok := writeKeywords[word]; ok {
			return fmt.Errorf("%w: statement contains %s", ErrNotReadOnly, word)
		}
		if keyword == "EXPLAIN" && (word == "ANALYZE" || word == "ANALYSE") {
			return fmt.Errorf("%w: EXPLAIN %s executes the statement", ErrNotReadOnly, word)
		}
	}
	return nil
}

// LeadingKeyword returns the first word of a statement in upper case,
// skipping opening parentheses.
func LeadingKeyword(statement string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(statement), "( \t\r\n")
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return !isWordRune(r)
	})
	if end >= 0 {
		trimmed = trimmed[:end]
	}
	return strings.ToUpper(trimmed)
}

// statementWords returns the bare words of a comment-free statement in upper
// case. String literals and quoted identifiers are skipped.
func statementWords(statement string) []string {
	var (
		words []string
		quote byte
		start = -1
	)
	flush := func(end int) {
		if start >= 0 {
			words = append(words, strings.ToUpper(statement[start:end]))
			start = -1
		}
	}
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote == '\'':
				i++
			case c == quote && i+1 < len(statement) && statement[i+1] == quote:
				i++
			case c == quote:
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			flush(i)
			quote = c
		case isWordRune(rune(c)) || c >= 0x80 || (start >= 0 && (c == '$' || c >= '0' && c <= '9')):
			if start < 0 {
				start = i
			}
		default:
			flush(i)
		}
	}
	flush(len(statement))
	return words
}

func isWordRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
