// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package version

// Version of the tagwire library and CLI. Deprecation tags compare their
// removal version against this value.
var Version = "0.4.0"
