// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"fmt"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/lazy"
	"tagwire.dev/tagwire/pkg/vault"
)

// DefaultTransforms returns the tag-triggered access transforms a lazy
// container normally runs with: vaulted values decrypt on first access, and
// deprecated values report their warning through warn (which may be nil).
func DefaultTransforms(secrets vault.Secrets, warn func(msg string)) map[datatag.Kind]lazy.Transform {
	return map[datatag.Kind]lazy.Transform{
		datatag.KindVaultedValue: func(tag datatag.Tag, value interface{}) (interface{}, error) {
			if enc, ok := datatag.Native(value).(*vault.EncryptedString); ok {
				return enc.Decrypt(secrets)
			}
			return value, nil
		},
		datatag.KindDeprecated: func(tag datatag.Tag, value interface{}) (interface{}, error) {
			dep := tag.(datatag.Deprecated)
			if warn != nil {
				msg := dep.Msg
				if msg == "" {
					msg = "value is deprecated"
				}
				if dep.RemovedIn != "" {
					msg = fmt.Sprintf("%s (removed in %s)", msg, dep.RemovedIn)
				}
				warn(msg)
			}
			return value, nil
		},
	}
}
