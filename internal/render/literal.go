package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Tuple is a parenthesized sequence in a literal. Lists parse to []any.
type Tuple []any

var errTrailingInput = errors.New("unexpected trailing input")

// ParseLiteral parses the textual form drivers and scripting layers use for
// result sets: nested lists and tuples of quoted strings, integers, floats,
// None, True and False.
func ParseLiteral(text string) (any, error) {
	p := &literalParser{src: text}
	value, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w at offset %d", errTrailingInput, p.pos)
	}
	return value, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, errors.New("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '[':
		p.pos++
		items, _, err := p.sequence(']')
		if err != nil {
			return nil, err
		}
		return items, nil
	case c == '(':
		p.pos++
		items, trailingComma, err := p.sequence(')')
		if err != nil {
			return nil, err
		}
		// (x) is just x; (x,) is a one-element tuple.
		if len(items) == 1 && !trailingComma {
			return items[0], nil
		}
		return Tuple(items), nil
	case c == '\'' || c == '"':
		return p.quoted(c)
	case c == '-' || c == '+' || c == '.' || c >= '0' && c <= '9':
		return p.number()
	default:
		return p.name()
	}
}

func (p *literalParser) sequence(closing byte) ([]any, bool, error) {
	items := make([]any, 0)
	trailingComma := false
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, false, fmt.Errorf("missing %q", closing)
		}
		if p.src[p.pos] == closing {
			p.pos++
			return items, trailingComma, nil
		}
		if len(items) > 0 && !trailingComma {
			return nil, false, fmt.Errorf("expected ',' or %q at offset %d", closing, p.pos)
		}
		item, err := p.value()
		if err != nil {
			return nil, false, err
		}
		items = append(items, item)

		p.skipSpace()
		trailingComma = p.pos < len(p.src) && p.src[p.pos] == ','
		if trailingComma {
			p.pos++
		}
	}
}

func (p *literalParser) quoted(quote byte) (string, error) {
	start := p.pos
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\' && p.pos+1 < len(p.src):
			p.pos++
			b.WriteByte(unescape(p.src[p.pos]))
		default:
			b.WriteByte(c)
		}
		p.pos++
	}
	return "", fmt.Errorf("unterminated string at offset %d", start)
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return c
	}
}

func (p *literalParser) number() (any, error) {
	start := p.pos
	if c := p.src[p.pos]; c == '-' || c == '+' {
		p.pos++
	}
	for p.pos < len(p.src) && strings.IndexByte("0123456789.eE+-_", p.src[p.pos]) >= 0 {
		// a sign only belongs to the number right after an exponent marker
		if c := p.src[p.pos]; (c == '+' || c == '-') && !strings.ContainsAny(p.src[p.pos-1:p.pos], "eE") {
			break
		}
		p.pos++
	}
	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", p.src[start:p.pos])
	}
	return f, nil
}

func (p *literalParser) name() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			break
		}
		p.pos++
	}
	switch word := p.src[start:p.pos]; word {
	case "None":
		return nil, nil
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "":
		return nil, fmt.Errorf("unexpected %q at offset %d", p.src[start], start)
	default:
		return nil, fmt.Errorf("unsupported name %q", word)
	}
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}
