// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"fmt"
	"strings"
)

// Secret is one candidate password, optionally labeled with a vault id.
type Secret struct {
	ID       string
	Password []byte
}

// Secrets is the secret-resolution context: candidate secrets tried in
// order until one decrypts the envelope.
type Secrets []Secret

// Decrypt opens the envelope with the first secret that verifies. Secrets
// whose ID matches the envelope's vault id are tried first.
func (s Secrets) Decrypt(armor string) (string, error) {
	if len(s) == 0 {
		return "", &DecryptionError{Msg: "no vault secrets were provided"}
	}

	candidates := s
	if id := EnvelopeID(armor); id != "" {
		var matching, rest Secrets
		for _, secret := range s {
			if secret.ID == id {
				matching = append(matching, secret)
			} else {
				rest = append(rest, secret)
			}
		}
		candidates = append(matching, rest...)
	}

	var attempts []string
	for _, secret := range candidates {
		plaintext, err := Decrypt(armor, secret.Password)
		if err == nil {
			return plaintext, nil
		}
		if _, isDecryption := err.(*DecryptionError); !isDecryption {
			return "", err
		}
		label := secret.ID
		if label == "" {
			label = "default"
		}
		attempts = append(attempts, label)
	}
	return "", &DecryptionError{
		Msg: fmt.Sprintf("no vault secrets were able to decrypt (tried: %s)", strings.Join(attempts, ", ")),
	}
}

// DecryptionError indicates that an envelope could not be opened. It is
// surfaced to the caller and never silently treated as plaintext.
type DecryptionError struct {
	Msg string
}

func (e *DecryptionError) Error() string { return e.Msg }
