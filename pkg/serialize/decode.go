// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package serialize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"tagwire.dev/tagwire/pkg/orderedmap"
)

// decoder is a strict JSON reader. The standard library decoder silently
// replaces invalid UTF-8 and unpaired surrogate escapes with U+FFFD, which
// would defeat the invalid-input rejection this layer must enforce; this
// reader rejects them instead, naming the JSON path of the offending value.
type decoder struct {
	data []byte
	pos  int
	opts Options
	path []string
}

func (d *decoder) decode() (interface{}, error) {
	d.path = append(d.path, "$")
	value, err := d.parseValue()
	if err != nil {
		return nil, err
	}
	d.skipSpace()
	if d.pos != len(d.data) {
		return nil, d.errorf("unexpected trailing data")
	}
	return value, nil
}

func (d *decoder) parseValue() (interface{}, error) {
	d.skipSpace()
	if d.pos >= len(d.data) {
		return nil, d.errorf("unexpected end of input")
	}
	switch c := d.data[d.pos]; {
	case c == '{':
		return d.parseObject()
	case c == '[':
		return d.parseArray()
	case c == '"':
		return d.parseStringValue()
	case c == 't':
		return d.parseLiteral("true", true)
	case c == 'f':
		return d.parseLiteral("false", false)
	case c == 'n':
		return d.parseLiteral("null", nil)
	case c == '-' || (c >= '0' && c <= '9'):
		return d.parseNumber()
	default:
		return nil, d.errorf("unexpected character %q", c)
	}
}

func (d *decoder) parseObject() (interface{}, error) {
	d.pos++ // '{'
	result := orderedmap.NewMap()
	d.skipSpace()
	if d.pos < len(d.data) && d.data[d.pos] == '}' {
		d.pos++
		return result, nil
	}
	for {
		d.skipSpace()
		if d.pos >= len(d.data) || d.data[d.pos] != '"' {
			return nil, d.errorf("expected object key")
		}
		d.path = append(d.path, "(object key)")
		key, err := d.parseString()
		if err != nil {
			return nil, err
		}
		d.path = d.path[:len(d.path)-1]

		d.skipSpace()
		if d.pos >= len(d.data) || d.data[d.pos] != ':' {
			return nil, d.errorf("expected ':' after object key")
		}
		d.pos++

		d.path = append(d.path, "."+keyAsPathSegment(key))
		value, err := d.parseValue()
		if err != nil {
			return nil, err
		}
		d.path = d.path[:len(d.path)-1]
		result.Set(key, value)

		d.skipSpace()
		if d.pos >= len(d.data) {
			return nil, d.errorf("unexpected end of object")
		}
		switch d.data[d.pos] {
		case ',':
			d.pos++
		case '}':
			d.pos++
			return result, nil
		default:
			return nil, d.errorf("expected ',' or '}' in object")
		}
	}
}

func (d *decoder) parseArray() (interface{}, error) {
	d.pos++ // '['
	result := []interface{}{}
	d.skipSpace()
	if d.pos < len(d.data) && d.data[d.pos] == ']' {
		d.pos++
		return result, nil
	}
	for {
		d.path = append(d.path, fmt.Sprintf("[%d]", len(result)))
		value, err := d.parseValue()
		if err != nil {
			return nil, err
		}
		d.path = d.path[:len(d.path)-1]
		result = append(result, value)

		d.skipSpace()
		if d.pos >= len(d.data) {
			return nil, d.errorf("unexpected end of array")
		}
		switch d.data[d.pos] {
		case ',':
			d.pos++
		case ']':
			d.pos++
			return result, nil
		default:
			return nil, d.errorf("expected ',' or ']' in array")
		}
	}
}

// parseStringValue returns a string, or []byte when surrogate-escaped byte
// values are recovered under the DecodeBytes option.
func (d *decoder) parseStringValue() (interface{}, error) {
	out, hasBytes, err := d.parseStringRaw()
	if err != nil {
		return nil, err
	}
	if hasBytes {
		return out, nil
	}
	return string(out), nil
}

// parseString is parseStringValue for positions that require text (object
// keys): recovered bytes are folded into the returned string.
func (d *decoder) parseString() (string, error) {
	out, _, err := d.parseStringRaw()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (d *decoder) parseStringRaw() ([]byte, bool, error) {
	d.pos++ // '"'
	out := []byte{}
	hasBytes := false
	for {
		if d.pos >= len(d.data) {
			return nil, false, d.errorf("unterminated string")
		}
		c := d.data[d.pos]
		switch {
		case c == '"':
			d.pos++
			return out, hasBytes, nil
		case c == '\\':
			decoded, err := d.parseEscape()
			if err != nil {
				return nil, false, err
			}
			if decoded.isByte {
				if !d.opts.DecodeBytes {
					return nil, false, newInvalidUTF8Error(d.currentPath())
				}
				out = append(out, decoded.b)
				hasBytes = true
			} else {
				out = utf8.AppendRune(out, decoded.r)
			}
		case c < 0x20:
			return nil, false, d.errorf("invalid control character in string")
		case c < 0x80:
			out = append(out, c)
			d.pos++
		default:
			r, size := utf8.DecodeRune(d.data[d.pos:])
			if r == utf8.RuneError && size == 1 {
				return nil, false, newInvalidUTF8Error(d.currentPath())
			}
			out = append(out, d.data[d.pos:d.pos+size]...)
			d.pos += size
		}
	}
}

type escapeResult struct {
	r      rune
	b      byte
	isByte bool
}

func (d *decoder) parseEscape() (escapeResult, error) {
	d.pos++ // '\\'
	if d.pos >= len(d.data) {
		return escapeResult{}, d.errorf("unterminated escape")
	}
	c := d.data[d.pos]
	d.pos++
	switch c {
	case '"', '\\', '/':
		return escapeResult{r: rune(c)}, nil
	case 'b':
		return escapeResult{r: '\b'}, nil
	case 'f':
		return escapeResult{r: '\f'}, nil
	case 'n':
		return escapeResult{r: '\n'}, nil
	case 'r':
		return escapeResult{r: '\r'}, nil
	case 't':
		return escapeResult{r: '\t'}, nil
	case 'u':
		return d.parseUnicodeEscape()
	default:
		return escapeResult{}, d.errorf("invalid escape character %q", c)
	}
}

func (d *decoder) parseUnicodeEscape() (escapeResult, error) {
	cp, err := d.readHex4()
	if err != nil {
		return escapeResult{}, err
	}

	switch {
	case utf16.IsSurrogate(cp) && cp >= 0xD800 && cp <= 0xDBFF:
		// high surrogate: must be followed by a low surrogate escape
		if d.pos+1 < len(d.data) && d.data[d.pos] == '\\' && d.data[d.pos+1] == 'u' {
			d.pos += 2
			low, err := d.readHex4()
			if err != nil {
				return escapeResult{}, err
			}
			combined := utf16.DecodeRune(cp, low)
			if combined != utf8.RuneError {
				return escapeResult{r: combined}, nil
			}
		}
		return escapeResult{}, newInvalidUTF8Error(d.currentPath())
	case utf16.IsSurrogate(cp):
		// lone low surrogate: only the surrogate-escape byte range is
		// meaningful, and only when byte recovery is enabled
		if cp >= surrogateEscapeMin && cp <= surrogateEscapeMax {
			return escapeResult{b: byte(cp - surrogateEscapeBase), isByte: true}, nil
		}
		return escapeResult{}, newInvalidUTF8Error(d.currentPath())
	default:
		return escapeResult{r: cp}, nil
	}
}

func (d *decoder) readHex4() (rune, error) {
	if d.pos+4 > len(d.data) {
		return 0, d.errorf("truncated unicode escape")
	}
	parsed, err := strconv.ParseUint(string(d.data[d.pos:d.pos+4]), 16, 32)
	if err != nil {
		return 0, d.errorf("invalid unicode escape")
	}
	d.pos += 4
	return rune(parsed), nil
}

func (d *decoder) parseNumber() (interface{}, error) {
	start := d.pos
	for d.pos < len(d.data) && strings.ContainsRune("+-.eE0123456789", rune(d.data[d.pos])) {
		d.pos++
	}
	token := string(d.data[start:d.pos])
	if !strings.ContainsAny(token, ".eE") {
		parsed, err := strconv.ParseInt(token, 10, 64)
		if err == nil {
			return parsed, nil
		}
	}
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil, d.errorf("invalid number literal %q", token)
	}
	return parsed, nil
}

func (d *decoder) parseLiteral(literal string, value interface{}) (interface{}, error) {
	if d.pos+len(literal) > len(d.data) || string(d.data[d.pos:d.pos+len(literal)]) != literal {
		return nil, d.errorf("invalid literal")
	}
	d.pos += len(literal)
	return value, nil
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.data) {
		switch d.data[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) currentPath() string {
	return strings.Join(d.path, "")
}

func (d *decoder) errorf(format string, args ...interface{}) error {
	return &DeserializationError{
		Path: d.currentPath(),
		Msg:  fmt.Sprintf("%s at %s (offset %d)", fmt.Sprintf(format, args...), d.currentPath(), d.pos),
	}
}

func keyAsPathSegment(key string) string {
	if utf8.ValidString(key) {
		return key
	}
	return strconv.Quote(key)
}
