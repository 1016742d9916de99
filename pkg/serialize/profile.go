// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package serialize

import (
	"fmt"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/orderedmap"
	"tagwire.dev/tagwire/pkg/vault"
)

// Options configures a serialization profile. The profile and its options
// are threaded explicitly through the call chain; nothing is selected from
// ambient process state.
type Options struct {
	// PreprocessUnsafe emits Untrusted-tagged values in the legacy
	// __ansible_unsafe wrapper form instead of as bare values.
	PreprocessUnsafe bool

	// VaultToText decrypts vaulted values at encode time and emits the
	// plaintext. Decryption failure fails the whole encode.
	VaultToText bool

	// DecodeBytes enables the reversible raw-bytes-to-text transform for
	// consumers that expect text.
	DecodeBytes bool

	// Secrets resolves vault ciphertexts when VaultToText is set and on
	// decode of still-encrypted values.
	Secrets vault.Secrets
}

// Profile encodes and decodes tagged values to and from wire JSON.
type Profile interface {
	Encode(value interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// NewLegacyProfile returns the wire-compatible profile for older
// consumers: tag metadata is stripped, with the well-known unsafe/vault
// wrapper forms special-cased.
func NewLegacyProfile(opts Options) Profile {
	return &legacyProfile{opts: opts}
}

// NewTaggedProfile returns the profile that emits enough side-channel
// structure to reconstruct the tag set on decode, round-trip-exact for
// every registered tag kind.
func NewTaggedProfile(opts Options) Profile {
	return &taggedProfile{opts: opts}
}

type legacyProfile struct {
	opts Options
}

func (p *legacyProfile) Encode(value interface{}) ([]byte, error) {
	return (&encoder{opts: p.opts}).encode(value)
}

func (p *legacyProfile) Decode(data []byte) (interface{}, error) {
	raw, err := (&decoder{data: data, opts: p.opts}).decode()
	if err != nil {
		return nil, err
	}
	return p.revive(raw)
}

func (p *legacyProfile) revive(value interface{}) (interface{}, error) {
	switch typed := value.(type) {
	case *orderedmap.Map:
		if typed.Len() == 1 {
			if inner, found := typed.Get(unsafeKey); found {
				revived, err := p.revive(inner)
				if err != nil {
					return nil, err
				}
				return datatag.Apply(revived, datatag.Untrusted{}), nil
			}
			if inner, found := typed.Get(vaultKey); found {
				armor, ok := inner.(string)
				if !ok {
					return nil, &DeserializationError{Msg: fmt.Sprintf("%s value must be a string", vaultKey)}
				}
				return datatag.Apply(
					vault.NewEncryptedString(armor),
					datatag.VaultedValue{Ciphertext: armor},
				), nil
			}
		}
		return reviveMapValues(typed, p.revive)
	case []interface{}:
		return reviveListValues(typed, p.revive)
	default:
		return value, nil
	}
}

type taggedProfile struct {
	opts Options
}

func (p *taggedProfile) Encode(value interface{}) ([]byte, error) {
	return (&encoder{opts: p.opts, tagged: true}).encode(value)
}

func (p *taggedProfile) Decode(data []byte) (interface{}, error) {
	raw, err := (&decoder{data: data, opts: p.opts}).decode()
	if err != nil {
		return nil, err
	}
	return p.revive(raw)
}

func (p *taggedProfile) revive(value interface{}) (interface{}, error) {
	switch typed := value.(type) {
	case *orderedmap.Map:
		if typeName, found := typed.Get(typeKey); found {
			return p.reviveEnvelope(typed, typeName)
		}
		return reviveMapValues(typed, p.revive)
	case []interface{}:
		return reviveListValues(typed, p.revive)
	default:
		return value, nil
	}
}

func (p *taggedProfile) reviveEnvelope(envelope *orderedmap.Map, typeName interface{}) (interface{}, error) {
	switch typeName {
	case typeTagged:
		rawValue, _ := envelope.Get("value")
		value, err := p.revive(rawValue)
		if err != nil {
			return nil, err
		}
		rawTags, _ := envelope.Get("tags")
		tagList, ok := rawTags.([]interface{})
		if !ok {
			return nil, &DeserializationError{Msg: "tagged envelope requires a 'tags' list"}
		}
		var tags []datatag.Tag
		for _, rawTag := range tagList {
			tag, err := decodeTag(rawTag)
			if err != nil {
				return nil, err
			}
			tags = append(tags, tag)
		}
		return datatag.Apply(value, tags...), nil

	case typeEncryptedString:
		armor, _ := envelope.Get("ciphertext")
		armorStr, ok := armor.(string)
		if !ok {
			return nil, &DeserializationError{Msg: "encrypted_string envelope requires a 'ciphertext' string"}
		}
		return datatag.Apply(
			vault.NewEncryptedString(armorStr),
			datatag.VaultedValue{Ciphertext: armorStr},
		), nil

	default:
		return nil, &DeserializationError{Msg: fmt.Sprintf("unknown %s value %v", typeKey, typeName)}
	}
}

func decodeTag(rawTag interface{}) (datatag.Tag, error) {
	entry, ok := rawTag.(*orderedmap.Map)
	if !ok {
		return nil, &DeserializationError{Msg: "tag entries must be objects"}
	}
	kindName, _ := entry.Get("kind")
	kindStr, ok := kindName.(string)
	if !ok {
		return nil, &DeserializationError{Msg: "tag entries require a 'kind' string"}
	}
	desc, found := datatag.Lookup(datatag.Kind(kindStr))
	if !found {
		return nil, &DeserializationError{Msg: fmt.Sprintf("unknown tag kind '%s' encountered during deserialization", kindStr)}
	}
	fields := map[string]interface{}{}
	entry.Iterate(func(k, v interface{}) {
		if k != "kind" {
			fields[k.(string)] = v
		}
	})
	tag, err := desc.Decode(fields)
	if err != nil {
		return nil, &DeserializationError{Msg: fmt.Sprintf("decoding '%s' tag: %s", kindStr, err)}
	}
	return tag, nil
}

func reviveMapValues(m *orderedmap.Map, revive func(interface{}) (interface{}, error)) (interface{}, error) {
	result := orderedmap.NewMap()
	err := m.IterateErr(func(k, v interface{}) error {
		revived, err := revive(v)
		if err != nil {
			return err
		}
		result.Set(k, revived)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func reviveListValues(items []interface{}, revive func(interface{}) (interface{}, error)) (interface{}, error) {
	result := make([]interface{}, len(items))
	for i, item := range items {
		revived, err := revive(item)
		if err != nil {
			return nil, err
		}
		result[i] = revived
	}
	return result, nil
}
