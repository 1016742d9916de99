// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package vault implements the encrypted-string envelope: AES-256-CTR with
PBKDF2-SHA256 key derivation and HMAC-SHA256 authentication, armored in the
hex format older consumers expect ($ANSIBLE_VAULT;1.1;AES256, or 1.2 with a
vault id).

Key-management UX is out of scope; callers supply Secrets, an ordered list
of candidate passwords.
*/
package vault
