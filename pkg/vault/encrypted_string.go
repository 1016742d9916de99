// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"tagwire.dev/tagwire/pkg/datatag"
)

// EncryptedString is a still-encrypted secret value. Decryption is lazy:
// the armored ciphertext travels through variable storage and the wire
// untouched, and plaintext is produced (and cached) only when a caller
// supplies a secret-resolution context.
type EncryptedString struct {
	Ciphertext string

	plaintext *string
}

func NewEncryptedString(armor string) *EncryptedString {
	return &EncryptedString{Ciphertext: armor}
}

// Decrypt returns the plaintext tagged with VaultedValue carrying this
// ciphertext. Because TagCopy never overwrites a kind the destination
// already carries, copying tags from this result onto a value vaulted from
// a different ciphertext keeps the destination's own vault provenance.
func (e *EncryptedString) Decrypt(secrets Secrets) (interface{}, error) {
	if e.plaintext == nil {
		plaintext, err := secrets.Decrypt(e.Ciphertext)
		if err != nil {
			return nil, err
		}
		e.plaintext = &plaintext
	}
	return datatag.Apply(*e.plaintext, datatag.VaultedValue{Ciphertext: e.Ciphertext}), nil
}
