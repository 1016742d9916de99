// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package serialize_test

import (
	"fmt"
	"strings"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/k14s/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/filepos"
	"tagwire.dev/tagwire/pkg/orderedmap"
	"tagwire.dev/tagwire/pkg/serialize"
	"tagwire.dev/tagwire/pkg/vault"
)

func assertEncodes(t *testing.T, profile serialize.Profile, value interface{}, expected string) {
	t.Helper()
	out, err := profile.Encode(value)
	require.NoError(t, err)
	if string(out) != expected {
		t.Fatalf("encoded output mismatch:\n%s",
			difflib.PPDiff(strings.Split(string(out), "\n"), strings.Split(expected, "\n")))
	}
}

func TestLegacyEncodeScalars(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	assertEncodes(t, profile, nil, `null`)
	assertEncodes(t, profile, true, `true`)
	assertEncodes(t, profile, int64(42), `42`)
	assertEncodes(t, profile, 1.5, `1.5`)
	assertEncodes(t, profile, "plain", `"plain"`)
	assertEncodes(t, profile, "tab\there \"quoted\"", `"tab\there \"quoted\""`)
}

func TestLegacyEncodeContainers(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	m := orderedmap.NewMap()
	m.Set("b", int64(1))
	m.Set("a", []interface{}{"x", nil})
	assertEncodes(t, profile, m, `{"b":1,"a":["x",null]}`)
}

func TestLegacyUntrustedWithoutPreprocessing(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	// the Untrusted tag alone never changes the wire shape
	assertEncodes(t, profile, datatag.Apply("hello", datatag.Untrusted{}), `"hello"`)
}

func TestLegacyUntrustedWithPreprocessing(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{PreprocessUnsafe: true})

	assertEncodes(t, profile, datatag.Apply("hello", datatag.Untrusted{}),
		`{"__ansible_unsafe":"hello"}`)
	// untagged strings stay bare even with preprocessing on
	assertEncodes(t, profile, "hello", `"hello"`)
}

func TestLegacyVaultedValue(t *testing.T) {
	armor := "$ANSIBLE_VAULT;1.1;AES256\nabcdef"
	profile := serialize.NewLegacyProfile(serialize.Options{})

	assertEncodes(t, profile, vault.NewEncryptedString(armor),
		`{"__ansible_vault":"$ANSIBLE_VAULT;1.1;AES256\nabcdef"}`)
}

func TestLegacyVaultToText(t *testing.T) {
	secret := vault.Secret{Password: []byte("pw")}
	armor, err := vault.Encrypt("plaintext", secret)
	require.NoError(t, err)

	profile := serialize.NewLegacyProfile(serialize.Options{
		VaultToText: true,
		Secrets:     vault.Secrets{secret},
	})
	assertEncodes(t, profile, vault.NewEncryptedString(armor), `"plaintext"`)

	// decryption failure fails the encode
	broken := serialize.NewLegacyProfile(serialize.Options{VaultToText: true})
	_, err = broken.Encode(vault.NewEncryptedString(armor))
	assert.Error(t, err)
}

func TestLegacyDecodeRevivesWrappers(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	value, err := profile.Decode([]byte(`{"__ansible_unsafe":"hello"}`))
	require.NoError(t, err)
	assert.True(t, datatag.IsTaggedOn(datatag.KindUntrusted, value))
	assert.Equal(t, "hello", datatag.Native(value))

	value, err = profile.Decode([]byte(`{"v":{"__ansible_vault":"$ANSIBLE_VAULT;1.1;AES256\nab"}}`))
	require.NoError(t, err)
	inner, _ := datatag.Native(value).(*orderedmap.Map).Get("v")
	enc, ok := datatag.Native(inner).(*vault.EncryptedString)
	require.True(t, ok)
	assert.Equal(t, "$ANSIBLE_VAULT;1.1;AES256\nab", enc.Ciphertext)
	assert.True(t, datatag.IsTaggedOn(datatag.KindVaultedValue, inner))
}

func TestEncoderRejectsReservedKeys(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	m := orderedmap.NewMap()
	m.Set("__ansible_unsafe", "forged")
	_, err := profile.Encode(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved key")
}

func TestEncoderRejectsNonStringKeys(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	m := orderedmap.NewMap()
	m.Set(int64(1), "v")
	_, err := profile.Encode(m)
	assert.Error(t, err)
}

func TestTripwireFailsEncode(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	_, err := profile.Encode(serialize.Placeholder{Reason: "unresolved lookup"})
	require.Error(t, err)
	var tripErr *serialize.TripwireError
	require.ErrorAs(t, err, &tripErr)
	assert.Contains(t, err.Error(), "unresolved lookup")

	// tagged tripwires still trip
	m := orderedmap.NewMap()
	m.Set("k", serialize.Placeholder{Reason: "nested"})
	_, err = profile.Encode(m)
	assert.Error(t, err)
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	cases := map[string]string{
		"bare string":     `"\udc80"`,
		"high surrogate":  `"\ud83d"`,
		"in list":         `["ok", "\udc80"]`,
		"as dict value":   `{"k": "\udc80"}`,
		"as dict key":     `{"\udc80": "v"}`,
		"deeply nested":   `{"a": {"b": [{"c": "\udc80"}]}}`,
		"raw bytes":       "\"\xff\"",
		"other surrogate": `"\ude00"`,
	}
	for name, input := range cases {
		_, err := profile.Decode([]byte(input))
		require.Error(t, err, name)
		assert.True(t,
			strings.HasPrefix(err.Error(), "Refusing to deserialize an invalid UTF8 string value"),
			"%s: %s", name, err)
	}
}

func TestDecodeErrorNamesLocation(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	_, err := profile.Decode([]byte(`{"a": {"b": ["ok", "\udc80"]}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "$.a.b[1]")
}

func TestDecodeBytesRoundTrip(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{DecodeBytes: true})

	raw := []byte{0xff, 0xfe, 'o', 'k'}
	out, err := profile.Encode(raw)
	require.NoError(t, err)
	assert.Equal(t, `"\udcff\udcfeok"`, string(out))

	decoded, err := profile.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	// without the flag raw bytes cannot be encoded at all
	_, err = serialize.NewLegacyProfile(serialize.Options{}).Encode(raw)
	assert.Error(t, err)
}

func TestDecodeBytesValidUTF8StaysString(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{DecodeBytes: true})

	decoded, err := profile.Decode([]byte(`"just text"`))
	require.NoError(t, err)
	assert.Equal(t, "just text", decoded)
}

func TestStrictDecodeBasics(t *testing.T) {
	profile := serialize.NewLegacyProfile(serialize.Options{})

	value, err := profile.Decode([]byte(`{"n": 3, "f": 2.5, "b": true, "x": null, "l": [1]}`))
	require.NoError(t, err)
	m := value.(*orderedmap.Map)
	n, _ := m.Get("n")
	assert.Equal(t, int64(3), n)
	f, _ := m.Get("f")
	assert.Equal(t, 2.5, f)
	b, _ := m.Get("b")
	assert.Equal(t, true, b)
	x, _ := m.Get("x")
	assert.Nil(t, x)

	for _, bad := range []string{``, `{`, `[1,]`, `{"a"}`, `12 34`, `"unterminated`, `{"a": 01x}`} {
		_, err := profile.Decode([]byte(bad))
		assert.Error(t, err, "input %q", bad)
	}
}

func TestTaggedProfileRoundTripsEveryKind(t *testing.T) {
	profile := serialize.NewTaggedProfile(serialize.Options{})

	original := datatag.Apply("value",
		datatag.Origin{Position: filepos.NewPositionWithCol(12, 5, "vars.yml")},
		datatag.Deprecated{Msg: "use other", RemovedIn: "2.0.0"},
		datatag.TrustedAsTemplate{},
		datatag.Untrusted{},
		datatag.VaultedValue{Ciphertext: "armor"},
	)

	out, err := profile.Encode(original)
	require.NoError(t, err)

	decoded, err := profile.Decode(out)
	require.NoError(t, err)

	assert.Equal(t, "value", datatag.Native(decoded))
	assert.Equal(t, datatag.TagTypes(original), datatag.TagTypes(decoded))

	tag, _ := datatag.GetTag(datatag.KindOrigin, decoded)
	position := tag.(datatag.Origin).Position
	assert.Equal(t, "vars.yml", position.GetFile())
	assert.Equal(t, 12, position.LineNum())
	assert.Equal(t, 5, position.ColNum())
	tag, _ = datatag.GetTag(datatag.KindDeprecated, decoded)
	assert.Equal(t, "use other", tag.(datatag.Deprecated).Msg)
	tag, _ = datatag.GetTag(datatag.KindVaultedValue, decoded)
	assert.Equal(t, "armor", tag.(datatag.VaultedValue).Ciphertext)
}

func TestTaggedProfileNestedTags(t *testing.T) {
	profile := serialize.NewTaggedProfile(serialize.Options{})

	m := orderedmap.NewMap()
	m.Set("k", datatag.Apply("v", datatag.Untrusted{}))
	original := datatag.Apply(m, datatag.TrustedAsTemplate{})

	out, err := profile.Encode(original)
	require.NoError(t, err)

	decoded, err := profile.Decode(out)
	require.NoError(t, err)
	assert.True(t, datatag.IsTaggedOn(datatag.KindTrustedAsTemplate, decoded))

	inner, _ := datatag.Native(decoded).(*orderedmap.Map).Get("k")
	assert.True(t, datatag.IsTaggedOn(datatag.KindUntrusted, inner))
	assert.Equal(t, "v", datatag.Native(inner))
}

func TestTaggedProfileEncryptedString(t *testing.T) {
	profile := serialize.NewTaggedProfile(serialize.Options{})
	armor := "$ANSIBLE_VAULT;1.1;AES256\nabcd"

	out, err := profile.Encode(vault.NewEncryptedString(armor))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"__ansible_type":"encrypted_string"`)

	decoded, err := profile.Decode(out)
	require.NoError(t, err)
	enc, ok := datatag.Native(decoded).(*vault.EncryptedString)
	require.True(t, ok)
	assert.Equal(t, armor, enc.Ciphertext)
}

func TestTaggedProfileUnknownKind(t *testing.T) {
	profile := serialize.NewTaggedProfile(serialize.Options{})

	_, err := profile.Decode([]byte(`{"__ansible_type":"tagged","tags":[{"kind":"mystery"}],"value":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tag kind 'mystery'")

	_, err = profile.Decode([]byte(`{"__ansible_type":"warp"}`))
	assert.Error(t, err)
}

func TestEncodeOrderAndOutputAreStable(t *testing.T) {
	profile := serialize.NewTaggedProfile(serialize.Options{})

	m := orderedmap.NewMap()
	m.Set("z", datatag.Apply("v", datatag.Untrusted{}, datatag.TrustedAsTemplate{}))
	m.Set("a", []interface{}{int64(1), "two"})

	first, err := profile.Encode(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := profile.Encode(m)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again), "iteration %d", i)
	}
}

func TestRoundTripStability(t *testing.T) {
	// decode(encode(x)) re-encodes byte-identically for fuzzed inputs
	profile := serialize.NewLegacyProfile(serialize.Options{})

	for i := 0; i < 50; i++ {
		fuzzer := fuzz.NewWithSeed(int64(i)).NilChance(0.1)

		m := orderedmap.NewMap()
		for j := 0; j < 5; j++ {
			var str string
			var num int64
			var flag bool
			fuzzer.Fuzz(&str)
			fuzzer.Fuzz(&num)
			fuzzer.Fuzz(&flag)
			m.Set(fmt.Sprintf("key%d_%d", i, j), []interface{}{str, num, flag, nil})
		}

		first, err := profile.Encode(m)
		require.NoError(t, err)
		decoded, err := profile.Decode(first)
		require.NoError(t, err)
		second, err := profile.Encode(decoded)
		require.NoError(t, err)
		require.Equal(t, string(first), string(second))
	}
}
