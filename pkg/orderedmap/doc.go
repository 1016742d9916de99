// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package orderedmap provides a map implementation where the order of keys is
maintained (unlike the native Go map).

This flavor of map is what decoded wire documents and loaded configuration
are built out of: it keeps encode/decode round trips deterministic and
stable. Direct JSON/YAML marshaling of a Map panics on purpose; maps must
only reach the wire through a serialization profile.
*/
package orderedmap
