// Package dirtyjson is a best-effort structured decoder for JSON-ish text
// produced by language models. Responses are routinely wrapped in prose or
// markdown fences, use single quotes or unquoted keys, carry trailing
// commas or comments, and are sometimes truncated mid-structure. Decode
// recovers what it can instead of failing; callers that need strict JSON
// should use encoding/json directly.
package dirtyjson

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode"
)

// #region api

// ErrNoValue is returned when no JSON-like value could be found at all.
var ErrNoValue = errors.New("dirtyjson: no value found")

// Decode parses s leniently and returns the first value found.
// A strict json.Unmarshal is tried first as a fast path.
func Decode(s string) (any, error) {
	var strict any
	if err := json.Unmarshal([]byte(s), &strict); err == nil {
		return strict, nil
	}

	p := &parser{input: []rune(s)}
	p.seekStart()
	if p.eof() {
		return nil, ErrNoValue
	}
	v := p.parseValue()
	if v == nil {
		return nil, ErrNoValue
	}
	return v, nil
}

// DecodeObject parses s leniently and requires the result to be an object.
func DecodeObject(s string) (map[string]any, error) {
	v, err := Decode(s)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("dirtyjson: value is not an object")
	}
	return obj, nil
}

// #endregion api

// #region parser

type parser struct {
	input []rune
	pos   int
}

func (p *parser) eof() bool { return p.pos >= len(p.input) }

func (p *parser) cur() rune {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) peek(n int) rune {
	if p.pos+n >= len(p.input) {
		return 0
	}
	return p.input[p.pos+n]
}

func (p *parser) advance() { p.pos++ }

// seekStart skips prose and markdown fences up to the first structural
// opener. Bare top-level scalars are not recovered from prose; an oracle
// response without an object or array is treated as unparseable.
func (p *parser) seekStart() {
	for !p.eof() {
		if c := p.cur(); c == '{' || c == '[' {
			return
		}
		p.advance()
	}
}

func (p *parser) skipWhitespace() {
	for !p.eof() {
		c := p.cur()
		switch {
		case unicode.IsSpace(c):
			p.advance()
		case c == '/' && p.peek(1) == '/':
			for !p.eof() && p.cur() != '\n' {
				p.advance()
			}
		case c == '/' && p.peek(1) == '*':
			p.advance()
			p.advance()
			for !p.eof() && !(p.cur() == '*' && p.peek(1) == '/') {
				p.advance()
			}
			p.advance()
			p.advance()
		default:
			return
		}
	}
}

func (p *parser) parseValue() any {
	p.skipWhitespace()
	if p.eof() {
		return nil
	}
	switch c := p.cur(); {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"' || c == '\'' || c == '`':
		return p.parseString(c)
	case c == '-' || c == '+' || unicode.IsDigit(c):
		return p.parseNumber()
	default:
		return p.parseLiteral()
	}
}

func (p *parser) parseObject() any {
	obj := map[string]any{}
	p.advance() // {
	for {
		p.skipWhitespace()
		if p.eof() {
			return obj // truncated: keep what we have
		}
		c := p.cur()
		if c == '}' {
			p.advance()
			return obj
		}
		if c == ',' {
			p.advance()
			continue
		}

		key := p.parseKey()
		if key == "" && p.eof() {
			return obj
		}
		p.skipWhitespace()
		if p.cur() == ':' || p.cur() == '=' {
			p.advance()
		}
		obj[key] = p.parseValue()
	}
}

func (p *parser) parseArray() any {
	arr := []any{}
	p.advance() // [
	for {
		p.skipWhitespace()
		if p.eof() {
			return arr // truncated
		}
		c := p.cur()
		if c == ']' {
			p.advance()
			return arr
		}
		if c == ',' {
			p.advance()
			continue
		}
		v := p.parseValue()
		arr = append(arr, v)
		if v == nil && p.eof() {
			return arr
		}
	}
}

// parseKey accepts quoted or bare object keys.
func (p *parser) parseKey() string {
	p.skipWhitespace()
	if c := p.cur(); c == '"' || c == '\'' || c == '`' {
		s, _ := p.parseString(c).(string)
		return s
	}
	var b strings.Builder
	for !p.eof() {
		c := p.cur()
		if c == ':' || c == '=' || c == '}' || c == ',' || unicode.IsSpace(c) {
			break
		}
		b.WriteRune(c)
		p.advance()
	}
	return b.String()
}

func (p *parser) parseString(quote rune) any {
	var b strings.Builder
	p.advance() // opening quote
	for !p.eof() {
		c := p.cur()
		if c == '\\' {
			p.advance()
			if p.eof() {
				break
			}
			switch e := p.cur(); e {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case 'b':
				b.WriteRune('\b')
			case 'f':
				b.WriteRune('\f')
			case 'u':
				if p.pos+4 < len(p.input) {
					hex := string(p.input[p.pos+1 : p.pos+5])
					if n, err := strconv.ParseUint(hex, 16, 32); err == nil {
						b.WriteRune(rune(n))
						p.advance()
						p.advance()
						p.advance()
						p.advance()
					}
				}
			default:
				b.WriteRune(e)
			}
			p.advance()
			continue
		}
		if c == quote {
			p.advance()
			return b.String()
		}
		b.WriteRune(c)
		p.advance()
	}
	return b.String() // unterminated: return what accumulated
}

func (p *parser) parseNumber() any {
	start := p.pos
	for !p.eof() {
		c := p.cur()
		if c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' || unicode.IsDigit(c) {
			p.advance()
			continue
		}
		break
	}
	raw := string(p.input[start:p.pos])
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

// parseLiteral handles true/false/null and their Python-cased variants;
// anything else is consumed as a bare word string.
func (p *parser) parseLiteral() any {
	start := p.pos
	for !p.eof() {
		c := p.cur()
		if c == ',' || c == '}' || c == ']' || c == ':' || unicode.IsSpace(c) {
			break
		}
		p.advance()
	}
	word := string(p.input[start:p.pos])
	switch strings.ToLower(word) {
	case "true":
		return true
	case "false":
		return false
	case "null", "none", "nil", "undefined":
		return nil
	case "":
		if !p.eof() {
			p.advance() // unexpected punctuation: skip it so the caller makes progress
		}
		return nil
	}
	return word
}

// #endregion parser
