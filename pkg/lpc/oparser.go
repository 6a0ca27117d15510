// Package lpc reads the save_object text format: one "key value" pair per
// line, where values are strings, integers, floats, nil, arrays written as
// ({n|v,v,}) and mappings written as ([n|k:v,k:v,]).
package lpc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParseError is a problem found on one line of an object file
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseResult holds the parsed variables and, in lenient mode, the lines
// that were skipped.
type ParseResult struct {
	Object map[string]interface{}
	Errors []*ParseError
}

// ObjectParser parses whole object files. A strict parser stops at the
// first bad line; a lenient one records it and continues.
type ObjectParser struct {
	strict bool
}

func NewObjectParser(strict bool) *ObjectParser {
	return &ObjectParser{strict: strict}
}

// ParseObject parses every line of input
func (p *ObjectParser) ParseObject(input string) (*ParseResult, error) {
	if input == "" {
		return nil, errors.New("input is empty")
	}

	result := &ParseResult{Object: make(map[string]interface{})}
	for i, line := range strings.Split(input, "\n") {
		key, value, err := NewLineParser(strings.TrimSuffix(line, "\r")).ParseLine()
		if err != nil {
			perr := &ParseError{Line: i + 1, Err: err}
			if p.strict {
				return nil, perr
			}
			result.Errors = append(result.Errors, perr)
			continue
		}
		if key != "" {
			result.Object[key] = value
		}
	}
	return result, nil
}

// LineParser parses a single line
type LineParser struct {
	s   string
	pos int
}

func NewLineParser(line string) *LineParser {
	return &LineParser{s: line}
}

// ParseLine returns the line's key and value. Empty lines and comments
// return an empty key.
func (p *LineParser) ParseLine() (string, interface{}, error) {
	if p.s == "" || p.s[0] == '#' {
		return "", nil, nil
	}

	key, err := p.parseIdentifier()
	if err != nil {
		return "", nil, err
	}
	if !p.expect(' ') {
		return "", nil, p.errorf("expected a single space after %q", key)
	}
	value, err := p.parseValue()
	if err != nil {
		return "", nil, err
	}
	if p.pos != len(p.s) {
		return "", nil, p.errorf("unexpected %q after value", p.s[p.pos:])
	}
	return key, value, nil
}

func (p *LineParser) parseIdentifier() (string, error) {
	start := p.pos
	for p.pos < len(p.s) && isIdentChar(p.s[p.pos], p.pos == start) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected identifier")
	}
	return p.s[start:p.pos], nil
}

func isIdentChar(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func (p *LineParser) parseValue() (interface{}, error) {
	switch c := p.peek(); {
	case c == '"':
		return p.parseString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case c == '(' && p.peekAt(1) == '{':
		return p.parseArray()
	case c == '(' && p.peekAt(1) == '[':
		return p.parseMapping()
	case strings.HasPrefix(p.s[p.pos:], "nil"):
		p.pos += len("nil")
		return nil, nil
	}
	return nil, p.errorf("invalid value")
}

var escapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'a': '\a', 'b': '\b',
	'v': '\v', 'f': '\f', '0': 0, '\\': '\\', '"': '"',
}

func (p *LineParser) parseString() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.s) {
			return "", p.errorf("unterminated string")
		}
		c := p.s[p.pos]
		p.pos++
		switch c {
		case '"':
			return sb.String(), nil
		case '\n':
			return "", p.errorf("newline in string")
		case '\\':
			if p.pos >= len(p.s) {
				return "", p.errorf("unterminated string")
			}
			e := p.s[p.pos]
			p.pos++
			if r, ok := escapes[e]; ok {
				sb.WriteByte(r)
			} else {
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
}

// parseNumber reads an integer or a float. Floats may carry an exact hex
// image after '='; the decimal part is used and the image is checked.
func (p *LineParser) parseNumber() (interface{}, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	digits := p.pos
	isFloat := false
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		if c == '.' || c == 'e' || (c == '-' && p.s[p.pos-1] == 'e') {
			isFloat = true
		} else if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	if p.pos == digits {
		return nil, p.errorf("expected digits")
	}
	text := p.s[start:p.pos]

	if p.expect('=') {
		hexStart := p.pos
		for p.pos < len(p.s) && isHex(p.s[p.pos]) {
			p.pos++
		}
		if p.pos == hexStart {
			return nil, p.errorf("invalid float image")
		}
		isFloat = true
	}

	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, p.errorf("invalid float %q", text)
		}
		return f, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, p.errorf("invalid integer %q", text)
	}
	return n, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// parseCount reads the "n|" prefix of arrays and mappings
func (p *LineParser) parseCount() (int, error) {
	v, err := p.parseNumber()
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok || n < 0 {
		return 0, p.errorf("invalid element count")
	}
	if !p.expect('|') {
		return 0, p.errorf("expected '|' after element count")
	}
	return n, nil
}

func (p *LineParser) parseArray() ([]interface{}, error) {
	p.pos += 2 // ({
	n, err := p.parseCount()
	if err != nil {
		return nil, err
	}

	list := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		if i > 0 && !p.expect(',') {
			return nil, p.errorf("expected ',' in array")
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	p.expect(',')
	if !p.expect('}') || !p.expect(')') {
		return nil, p.errorf("array of %d elements not closed by '})'", n)
	}
	return list, nil
}

func (p *LineParser) parseMapping() (map[string]interface{}, error) {
	p.pos += 2 // ([
	n, err := p.parseCount()
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]interface{}, n)
	for i := 0; i < n; i++ {
		if i > 0 && !p.expect(',') {
			return nil, p.errorf("expected ',' in mapping")
		}
		k, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if !p.expect(':') {
			return nil, p.errorf("expected ':' after mapping key")
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		switch k := k.(type) {
		case string:
			mapping[k] = v
		case int:
			mapping[strconv.Itoa(k)] = v
		default:
			return nil, p.errorf("unsupported mapping key %v", k)
		}
	}
	p.expect(',')
	if !p.expect(']') || !p.expect(')') {
		return nil, p.errorf("mapping of %d entries not closed by '])'", n)
	}
	return mapping, nil
}

func (p *LineParser) peek() byte {
	return p.peekAt(0)
}

func (p *LineParser) peekAt(n int) byte {
	if p.pos+n >= len(p.s) {
		return 0
	}
	return p.s[p.pos+n]
}

func (p *LineParser) expect(c byte) bool {
	if p.peek() == c && p.pos < len(p.s) {
		p.pos++
		return true
	}
	return false
}

func (p *LineParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("position %d: %s", p.pos, fmt.Sprintf(format, args...))
}
