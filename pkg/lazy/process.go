// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/orderedmap"
)

// processValue applies the on-access pipeline to one element: tag-driven
// transforms (unless unmasked), then template evaluation, then recursive
// lazy wrapping of nested containers. Container tags survive wrapping via
// TagCopy.
func processValue(value interface{}, eval Evaluator, opts Options) (interface{}, error) {
	for _, tag := range datatag.Tags(value) {
		transform, found := opts.Transforms[tag.Kind()]
		if !found || opts.unmasked(tag.Kind()) {
			continue
		}
		transformed, err := transform(tag, value)
		if err != nil {
			return nil, err
		}
		value = transformed
	}

	if !opts.SkipTemplates && eval != nil {
		evaluated, err := eval.Evaluate(value)
		if err != nil {
			return nil, err
		}
		value = evaluated
	}

	switch native := datatag.Native(value).(type) {
	case *orderedmap.Map:
		return datatag.TagCopy(value, NewDict(native, eval, opts)), nil
	case []interface{}:
		return datatag.TagCopy(value, NewList(native, eval, opts)), nil
	default:
		return value, nil
	}
}

// AsDict unwraps a possibly tagged value into its lazy Dict, if it is one.
func AsDict(value interface{}) (*Dict, bool) {
	d, ok := datatag.Native(value).(*Dict)
	return d, ok
}

// AsList unwraps a possibly tagged value into its lazy List, if it is one.
func AsList(value interface{}) (*List, bool) {
	l, ok := datatag.Native(value).(*List)
	return l, ok
}
