// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"reflect"

	"tagwire.dev/tagwire/pkg/datatag"
)

// Evaluator renders nested string templates on demand. The template engine
// satisfies this; tests substitute counters and stubs.
type Evaluator interface {
	Evaluate(value interface{}) (interface{}, error)
}

// Transform rewrites a value on first access based on one of its tags, e.g.
// decrypting a vault-tagged encrypted string or collecting a deprecation
// warning. Transforms are threaded through Options explicitly; there is no
// ambient global registry.
type Transform func(tag datatag.Tag, value interface{}) (interface{}, error)

// Options configures lazy containers for one evaluation scope.
type Options struct {
	// Unmask lists tag kinds whose Transform is suppressed for this
	// container's lifetime, so a tagged value can be inspected raw.
	Unmask []datatag.Kind

	// SkipTemplates disables template evaluation of elements. Used for
	// values sourced from plugins rather than variable storage.
	SkipTemplates bool

	// Transforms maps tag kinds to their on-access transform.
	Transforms map[datatag.Kind]Transform
}

func (o Options) unmasked(kind datatag.Kind) bool {
	for _, k := range o.Unmask {
		if k == kind {
			return true
		}
	}
	return false
}

// sameEvaluator reports whether two evaluators are the same instance. A
// plain interface comparison would panic for uncomparable dynamic types, so
// only pointer identity counts; anything else is treated as distinct.
func sameEvaluator(a, b Evaluator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() != reflect.Ptr || rb.Kind() != reflect.Ptr {
		return false
	}
	return ra.Pointer() == rb.Pointer()
}

func (o Options) withUnmask(kinds ...datatag.Kind) Options {
	unmask := make([]datatag.Kind, 0, len(o.Unmask)+len(kinds))
	unmask = append(unmask, o.Unmask...)
	unmask = append(unmask, kinds...)
	o.Unmask = unmask
	return o
}
