package render

import (
	"strings"
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuoted
	tokenNumber
	tokenPunct
	tokenComment
)

type sqlToken struct {
	kind tokenKind
	text string
}

var sqlKeywords = toSet(
	"ALL", "AND", "AS", "ASC", "BETWEEN", "BY", "CASE", "CROSS", "DELETE", "DESC", "DESCRIBE",
	"DISTINCT", "ELSE", "END", "EXISTS", "EXPLAIN", "FALSE", "FROM", "FULL", "GROUP",
	"HAVING", "ILIKE", "IN", "INNER", "INSERT", "INTERVAL", "INTO", "IS", "JOIN", "LEFT",
	"LIKE", "LIMIT", "NATURAL", "NOT", "NULL", "OFFSET", "ON", "OR", "ORDER", "OUTER",
	"OVER", "PARTITION", "RIGHT", "SELECT", "SET", "SHOW", "TABLES", "THEN", "TRUE",
	"UNION", "UPDATE", "USING", "VALUES", "WHEN", "WHERE", "WITH",
)

var sqlFunctions = toSet(
	"AVG", "CAST", "COALESCE", "CONCAT", "COUNT", "DATE", "DATE_TRUNC", "EXTRACT",
	"IFNULL", "LEFT", "LOWER", "MAX", "MIN", "MONTH", "NOW", "NULLIF", "RIGHT", "ROUND",
	"ROW_NUMBER", "SUM", "UPPER", "YEAR",
)

// clauses that start a new line when they appear outside parentheses
var sqlClauses = toSet(
	"SELECT", "FROM", "WHERE", "GROUP", "ORDER", "HAVING", "LIMIT", "OFFSET", "UNION",
	"JOIN", "LEFT", "RIGHT", "INNER", "FULL", "CROSS", "NATURAL",
)

var joinModifiers = toSet("LEFT", "RIGHT", "INNER", "FULL", "CROSS", "NATURAL", "OUTER")

const selectIndent = "       "

// FormatSQL reindents a statement for display: keywords upper-cased, one
// top-level clause per line, select-list items aligned under the first one
// and AND/OR conditions on their own indented lines. Text inside quotes and
// parentheses is kept on one line.
func FormatSQL(sqlText string) string {
	tokens := tokenizeSQL(sqlText)
	if len(tokens) == 0 {
		return ""
	}

	var (
		b       strings.Builder
		depth   int
		clause  string
		prev    *sqlToken
		between bool
		newline = true
	)
	for i := range tokens {
		token := tokens[i]
		upper := strings.ToUpper(token.text)
		if token.kind == tokenWord && (sqlKeywords[upper] || sqlFunctions[upper]) {
			token.text = upper
		}

		breakBefore := ""
		if token.kind == tokenWord && depth == 0 {
			switch {
			case sqlClauses[upper] && !continuesJoin(upper, prev) && !isCall(tokens, i):
				if b.Len() > 0 {
					breakBefore = "\n"
				}
				clause = upper
			case (upper == "AND" || upper == "OR") && !between && clause != "SELECT":
				breakBefore = "\n  "
			}
		}
		if upper == "BETWEEN" {
			between = true
		} else if upper == "AND" && between {
			between = false
		}

		switch {
		case breakBefore != "":
			b.WriteString(breakBefore)
		case newline:
		case needsSpace(prev, &token):
			b.WriteByte(' ')
		}
		b.WriteString(token.text)
		newline = false

		switch token.text {
		case "(":
			depth++
		case ")":
			if depth > 0 {
				depth--
			}
		case ",":
			if depth == 0 && clause == "SELECT" {
				b.WriteString("\n" + selectIndent)
				newline = true
			}
		}
		if token.kind == tokenComment && strings.HasPrefix(token.text, "--") {
			b.WriteString("\n")
			newline = true
		}
		tokens[i] = token
		prev = &tokens[i]
	}
	return strings.TrimRight(b.String(), " \n")
}

func continuesJoin(upper string, prev *sqlToken) bool {
	return upper == "JOIN" && prev != nil && joinModifiers[prev.text]
}

// isCall reports whether the word at i is used as a function, as in LEFT(name, 3).
func isCall(tokens []sqlToken, i int) bool {
	return i+1 < len(tokens) && tokens[i+1].text == "("
}

func needsSpace(prev, cur *sqlToken) bool {
	if prev == nil {
		return false
	}
	switch cur.text {
	case ")", ",", ".", ";":
		return false
	case "(":
		if prev.kind == tokenWord {
			upper := strings.ToUpper(prev.text)
			return sqlKeywords[upper] && !sqlFunctions[upper]
		}
		return prev.kind != tokenQuoted
	}
	switch prev.text {
	case "(", ".":
		return false
	}
	return true
}

func tokenizeSQL(text string) []sqlToken {
	var tokens []sqlToken
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				end = len(text) - i
			}
			tokens = append(tokens, sqlToken{kind: tokenComment, text: strings.TrimSpace(text[i : i+end])})
			i += end
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				end = len(text) - i - 2
			} else {
				end += 2
			}
			tokens = append(tokens, sqlToken{kind: tokenComment, text: text[i : i+2+end]})
			i += 2 + end
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(text) {
				if text[j] == '\\' && c != '`' {
					j += 2
					continue
				}
				if text[j] == c {
					if j+1 < len(text) && text[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(text) {
				j = len(text) - 1
			}
			tokens = append(tokens, sqlToken{kind: tokenQuoted, text: text[i : j+1]})
			i = j + 1
		case isWordByte(c):
			j := i
			for j < len(text) && isWordByte(text[j]) {
				j++
			}
			kind := tokenWord
			if c >= '0' && c <= '9' {
				kind = tokenNumber
			}
			tokens = append(tokens, sqlToken{kind: kind, text: text[i:j]})
			i = j
		default:
			j := i + 1
			// keep two-character operators together
			if j < len(text) && strings.Contains("<=>=!=<>||::", text[i:j+1]) && strings.IndexByte("<>!|:", c) >= 0 {
				j++
			}
			tokens = append(tokens, sqlToken{kind: tokenPunct, text: text[i:j]})
			i = j
		}
	}
	return tokens
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c == '@' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, value := range values {
		set[value] = true
	}
	return set
}
