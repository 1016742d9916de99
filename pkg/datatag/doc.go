// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package datatag attaches provenance and trust metadata ("tags") to values
flowing through variable resolution and templating.

A tag is one immutable fact about a value: where it was parsed from
(Origin), that its use should warn (Deprecated), that it may be evaluated
as a template (TrustedAsTemplate), that it must never be (Untrusted), or
that it was produced by decrypting a secret (VaultedValue). Values carry at
most one tag per kind. Tags are metadata, not content: a tagged value and
its untagged counterpart compare equal and hash equal.

TagCopy implements the non-propagation rule: tags are copied from a source
onto a derived value, except for kinds the destination already carries.
Operations that derive new strings from old ones (strip, slice, concat)
use it so the result inherits unrelated provenance without a tag the
destination legitimately holds being silently overwritten.
*/
package datatag
