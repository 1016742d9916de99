// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package lazy provides tag-aware containers that defer per-element template
evaluation until first access and cache the result.

A container is created per evaluation scope with an Evaluator (how nested
templates are rendered), a set of tag-kind transforms, and an unmask set
suppressing chosen transforms. Copies never share caches. Unmasking takes
effect only for elements not yet accessed; an already-cached entry keeps
its value. That first-access-wins caveat is part of the contract, not a
bug to fix.
*/
package lazy
