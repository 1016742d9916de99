// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package marker provides the undefined-value protocol: a sentinel standing in
for "evaluation deferred or failed" that is safe to chain through attribute
and index access.

Evaluating "a.b.c" when "a" is undefined produces one coherent error at the
moment the result is rendered to text, instead of one error per hop. A
concrete value needs no wrapper; only the deferred and errored states are
represented here.
*/
package marker
