// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package filepos provides the concept of Position: a source name (usually a
file), a line number, and optionally a column within that source.

Positions back the Origin tag: every value loaded from configuration or user
data records where it was parsed from, so that errors and provenance queries
can point at the source. Not all Positions point within a file (e.g. values
built in memory). The zero-value of Position (created using
NewUnknownPosition()) represents this case.
*/
package filepos
