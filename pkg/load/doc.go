// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

// Package load parses YAML input into natively typed values, attaching
// origin (file, line, column) tags at parse time so provenance survives
// all later processing.
package load
