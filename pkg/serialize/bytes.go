// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package serialize

import (
	"unicode/utf8"
)

// Legacy consumers expect text even for raw byte strings. The DecodeBytes
// flag enables a lossy-looking but reversible transform: bytes that are not
// valid UTF-8 are mapped into the low surrogate range (U+DC00 + b) and
// emitted as \udcXX escapes; decoding maps them back to the original bytes.

const (
	surrogateEscapeBase = 0xDC00
	surrogateEscapeMin  = 0xDC80
	surrogateEscapeMax  = 0xDCFF
)

// escapeBytes returns a string carrying b where every byte that is not part
// of a valid UTF-8 sequence is replaced by the (invalidly encoded) rune
// U+DC00+b. The encoder recognizes those three-byte sequences and emits
// \udcXX escapes for them.
func escapeBytes(b []byte) string {
	out := make([]byte, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			out = appendSurrogate(out, surrogateEscapeBase+rune(b[0]))
			b = b[1:]
			continue
		}
		out = append(out, b[:size]...)
		b = b[size:]
	}
	return string(out)
}

// appendSurrogate writes the UTF-8-shaped three byte encoding of a
// surrogate code point. utf8.AppendRune would refuse it.
func appendSurrogate(out []byte, cp rune) []byte {
	return append(out,
		byte(0xE0|cp>>12),
		byte(0x80|(cp>>6)&0x3F),
		byte(0x80|cp&0x3F))
}

// surrogateAt decodes a surrogate-escape sequence at s[i], if present.
func surrogateAt(s string, i int) (cp rune, ok bool) {
	if i+2 >= len(s) || s[i] != 0xED {
		return 0, false
	}
	b1, b2 := s[i+1], s[i+2]
	if b1&0xC0 != 0x80 || b2&0xC0 != 0x80 {
		return 0, false
	}
	cp = rune(0xD000) | rune(b1&0x3F)<<6 | rune(b2&0x3F)
	if cp < surrogateEscapeMin || cp > surrogateEscapeMax {
		return 0, false
	}
	return cp, true
}
