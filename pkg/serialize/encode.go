// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package serialize

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/lazy"
	"tagwire.dev/tagwire/pkg/marker"
	"tagwire.dev/tagwire/pkg/orderedmap"
	"tagwire.dev/tagwire/pkg/vault"
)

// Wire envelope keys. Plain input maps must not contain them; the encoder
// rejects such maps so untrusted data cannot forge tag metadata.
const (
	unsafeKey = "__ansible_unsafe"
	vaultKey  = "__ansible_vault"
	typeKey   = "__ansible_type"

	typeTagged          = "tagged"
	typeEncryptedString = "encrypted_string"

	reservedKeyPrefix = "__ansible_"
)

type encoder struct {
	buf    bytes.Buffer
	opts   Options
	tagged bool
}

func (e *encoder) encode(value interface{}) ([]byte, error) {
	if err := e.encodeValue(value); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func (e *encoder) encodeValue(value interface{}) error {
	if tripwire, ok := datatag.Native(value).(Tripwire); ok {
		return tripwire.Trip()
	}
	if err := marker.Try(value); err != nil {
		return err
	}

	if tagged, ok := value.(*datatag.Value); ok {
		return e.encodeTagged(tagged)
	}

	switch typed := value.(type) {
	case nil:
		e.buf.WriteString("null")
	case bool:
		e.buf.WriteString(strconv.FormatBool(typed))
	case string:
		return e.encodeString(typed)
	case int:
		e.buf.WriteString(strconv.FormatInt(int64(typed), 10))
	case int64:
		e.buf.WriteString(strconv.FormatInt(typed, 10))
	case float64:
		e.buf.WriteString(strconv.FormatFloat(typed, 'g', -1, 64))
	case []byte:
		return e.encodeBytes(typed)
	case *orderedmap.Map:
		return e.encodeMap(typed)
	case []interface{}:
		return e.encodeList(typed)
	case *vault.EncryptedString:
		return e.encodeEncryptedString(typed)
	case *lazy.Dict:
		native, err := typed.NativeCopy()
		if err != nil {
			return err
		}
		return e.encodeMap(native)
	case *lazy.List:
		native, err := typed.NativeCopy()
		if err != nil {
			return err
		}
		return e.encodeList(native)
	default:
		return fmt.Errorf("cannot serialize value of type %T", value)
	}
	return nil
}

func (e *encoder) encodeTagged(value *datatag.Value) error {
	if e.tagged {
		return e.encodeSideChannel(value)
	}

	// legacy profile: tag metadata is not emitted; well-known tag effects
	// are special-cased instead
	if tag, found := datatag.GetTag(datatag.KindVaultedValue, value); found {
		if !e.opts.VaultToText {
			e.buf.WriteString(`{"` + vaultKey + `":`)
			if err := e.encodeString(tag.(datatag.VaultedValue).Ciphertext); err != nil {
				return err
			}
			e.buf.WriteString("}")
			return nil
		}
		// plaintext is already at hand for a decrypted value; fall through
		// and emit it directly
	}

	if datatag.IsTaggedOn(datatag.KindUntrusted, value) && e.opts.PreprocessUnsafe {
		e.buf.WriteString(`{"` + unsafeKey + `":`)
		if err := e.encodeValue(value.Native()); err != nil {
			return err
		}
		e.buf.WriteString("}")
		return nil
	}

	return e.encodeValue(value.Native())
}

func (e *encoder) encodeSideChannel(value *datatag.Value) error {
	e.buf.WriteString(`{"` + typeKey + `":"` + typeTagged + `","tags":[`)
	for i, tag := range datatag.Tags(value) {
		if i > 0 {
			e.buf.WriteString(",")
		}
		desc, found := datatag.Lookup(tag.Kind())
		if !found {
			return fmt.Errorf("cannot serialize tag of unregistered kind '%s'", tag.Kind())
		}
		fields, err := desc.Encode(tag)
		if err != nil {
			return fmt.Errorf("encoding '%s' tag: %s", tag.Kind(), err)
		}
		e.buf.WriteString(`{"kind":`)
		if err := e.encodeString(string(tag.Kind())); err != nil {
			return err
		}
		for _, name := range sortedFieldNames(fields) {
			e.buf.WriteString(",")
			if err := e.encodeString(name); err != nil {
				return err
			}
			e.buf.WriteString(":")
			if err := e.encodeValue(fields[name]); err != nil {
				return err
			}
		}
		e.buf.WriteString("}")
	}
	e.buf.WriteString(`],"value":`)
	if err := e.encodeValue(value.Native()); err != nil {
		return err
	}
	e.buf.WriteString("}")
	return nil
}

func (e *encoder) encodeEncryptedString(value *vault.EncryptedString) error {
	if e.tagged {
		e.buf.WriteString(`{"` + typeKey + `":"` + typeEncryptedString + `","ciphertext":`)
		if err := e.encodeString(value.Ciphertext); err != nil {
			return err
		}
		e.buf.WriteString("}")
		return nil
	}

	if e.opts.VaultToText {
		decrypted, err := value.Decrypt(e.opts.Secrets)
		if err != nil {
			return err
		}
		return e.encodeValue(datatag.Native(decrypted))
	}

	e.buf.WriteString(`{"` + vaultKey + `":`)
	if err := e.encodeString(value.Ciphertext); err != nil {
		return err
	}
	e.buf.WriteString("}")
	return nil
}

func (e *encoder) encodeMap(m *orderedmap.Map) error {
	e.buf.WriteString("{")
	first := true
	err := m.IterateErr(func(k, v interface{}) error {
		key, ok := datatag.Native(k).(string)
		if !ok {
			return fmt.Errorf("cannot serialize map key of type %T (keys must be strings)", datatag.Native(k))
		}
		if len(key) >= len(reservedKeyPrefix) && key[:len(reservedKeyPrefix)] == reservedKeyPrefix {
			return fmt.Errorf("refusing to serialize reserved key '%s'", key)
		}
		if !first {
			e.buf.WriteString(",")
		}
		first = false
		if err := e.encodeString(key); err != nil {
			return err
		}
		e.buf.WriteString(":")
		return e.encodeValue(v)
	})
	if err != nil {
		return err
	}
	e.buf.WriteString("}")
	return nil
}

func (e *encoder) encodeList(items []interface{}) error {
	e.buf.WriteString("[")
	for i, item := range items {
		if i > 0 {
			e.buf.WriteString(",")
		}
		if err := e.encodeValue(item); err != nil {
			return err
		}
	}
	e.buf.WriteString("]")
	return nil
}

func (e *encoder) encodeBytes(b []byte) error {
	if !e.opts.DecodeBytes {
		return fmt.Errorf("cannot serialize raw bytes without the DecodeBytes option")
	}
	return e.writeQuoted(escapeBytes(b), true)
}

func (e *encoder) encodeString(s string) error {
	return e.writeQuoted(s, e.opts.DecodeBytes)
}

func (e *encoder) writeQuoted(s string, allowEscapedBytes bool) error {
	e.buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			e.buf.WriteByte('\\')
			e.buf.WriteByte(c)
			i++
		case c == '\n':
			e.buf.WriteString(`\n`)
			i++
		case c == '\r':
			e.buf.WriteString(`\r`)
			i++
		case c == '\t':
			e.buf.WriteString(`\t`)
			i++
		case c < 0x20:
			fmt.Fprintf(&e.buf, `\u%04x`, c)
			i++
		case c < 0x80:
			e.buf.WriteByte(c)
			i++
		default:
			if cp, ok := surrogateAt(s, i); ok {
				if !allowEscapedBytes {
					return fmt.Errorf("cannot serialize string with escaped byte values without the DecodeBytes option")
				}
				fmt.Fprintf(&e.buf, `\u%04x`, cp)
				i += 3
				continue
			}
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				return fmt.Errorf("cannot serialize string with invalid UTF8 content")
			}
			e.buf.WriteString(s[i : i+size])
			i += size
		}
	}
	e.buf.WriteByte('"')
	return nil
}

func sortedFieldNames(fields map[string]interface{}) []string {
	var names []string
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
