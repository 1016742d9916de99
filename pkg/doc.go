// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package pkg is the collection of packages that make up the implementation of
tagwire.

This codebase is intentionally organized into well-defined layers. Packages
have been designed to be dependent on each other only to the degree
absolutely required.

# Entry Point

tagwire is built into a single executable:

	./cmd/tagwire   // a command-line tool

# Commands

	pkg/cmd      // encode, decode, vault and version commands
	pkg/cmd/ui   // stdout/stderr seam for command output

# Tagging

The heart of tagwire is the tag model: values carry immutable metadata (at
most one tag per kind) that is invisible to equality and hashing, and
propagates across derivations under an explicit non-propagation rule.

	pkg/datatag   // tag kinds, registry, attach/query/copy operations
	pkg/filepos   // file positions carried by origin tags

# Evaluation

Trusted template strings are rendered against a variable scope; containers
entering evaluation are wrapped lazily so elements are transformed and
templated only on first access.

	pkg/eval     // expression engine, filters, default access transforms
	pkg/marker   // deferred/errored sentinels for unresolved lookups
	pkg/lazy     // lazy tagged containers with per-element caches

# The Wire

Tagged values cross process boundaries through serialization profiles with
strict (invalid-UTF-8-rejecting) decoding.

	pkg/serialize   // legacy and tagged wire profiles
	pkg/load        // YAML loading with origin tagging at parse time

# Utilities

	pkg/vault      // encrypted secret values and the armor format
	pkg/pathlock   // named mutex keyed by filesystem path
	pkg/orderedmap // insertion-ordered map used for all decoded objects
	pkg/version    // the tagwire version
*/
package pkg
