package nl2sql

import "strings"

// wrapperPrefixes are checked in order; the fenced form with a language tag
// has to come before the bare fence.
var wrapperPrefixes = []string{"```sql", "```", "SQL Query:", "Query:"}

const maxSanitizePasses = 8

// Sanitize removes the formatting noise models add around a statement despite
// being told not to: code fences, "SQL Query:" style labels, trailing
// semicolons and stray backticks. Passes repeat until nothing changes so
// nested wrappers are removed too. The result is not validated as SQL.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)
	for pass := 0; pass < maxSanitizePasses; pass++ {
		next := sanitizePass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// sanitizePass removes either one wrapper prefix or the trailing noise, never
// both, so a fence that follows a label is still recognized as a fence.
func sanitizePass(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range wrapperPrefixes {
		if hasPrefixFold(text, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}
	text = strings.TrimSpace(strings.TrimRight(text, ";"))
	return strings.TrimSpace(trimBackticks(text))
}

// trimBackticks drops leading and trailing backticks unless doing so would
// unbalance backtick-quoted identifiers inside the statement.
func trimBackticks(text string) string {
	if inner := strings.Trim(text, "`"); strings.Count(inner, "`")%2 == 0 {
		return inner
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimPrefix(text, "```")
}

func hasPrefixFold(text, prefix string) bool {
	return len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix)
}

// SplitStatements splits text on semicolons that are outside string literals,
// quoted identifiers and comments. Empty statements are dropped.
func SplitStatements(text string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      byte
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			current.WriteByte(c)
			if c == '\\' && quote != '`' && i+1 < len(text) {
				i++
				current.WriteByte(text[i])
				continue
			}
			if c == quote {
				// doubled quote is an escaped quote
				if i+1 < len(text) && text[i+1] == quote {
					i++
					current.WriteByte(text[i])
					continue
				}
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
			current.WriteByte(c)
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				i = len(text)
				continue
			}
			i += end
			current.WriteByte('\n')
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				i = len(text)
				continue
			}
			i += end + 3
			current.WriteByte(' ')
		case c == ';':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return statements
}
