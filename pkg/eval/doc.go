// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package eval renders trusted template strings against a variable scope.

Trust is opt-in and tag-driven: only strings tagged TrustedAsTemplate (and
not Untrusted) are ever evaluated, so untrusted data flowing into a scope
cannot smuggle expressions in. Undefined variables produce deferred markers
instead of hard errors, letting chained lookups stay inert until someone
tries to materialize them.
*/
package eval
