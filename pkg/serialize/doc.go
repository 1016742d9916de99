// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package serialize encodes and decodes tagged values across a process
boundary.

Two profiles exist. The legacy profile is wire-compatible with older
consumers: tags are stripped, except that Untrusted values may be wrapped
as {"__ansible_unsafe": ...} and vaulted values travel as
{"__ansible_vault": "<armor>"} (or as decrypted plaintext when requested).
The tagged profile emits a side channel that reconstructs the exact tag set
on decode.

Decoding is strict: string content that is not valid UTF-8 — raw bytes or
unpaired surrogate escapes, at any nesting depth, in values and object keys
alike — is rejected with an error naming the offending location. This is a
security boundary, not a parsing nicety.
*/
package serialize
