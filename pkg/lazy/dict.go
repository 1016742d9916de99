// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/orderedmap"
)

// Dict wraps a concrete mapping at the moment it enters expression
// evaluation. Element values are transformed and templated on first access
// and the result is cached for the lifetime of this instance. The cache is
// private to one evaluation scope and never shared between copies.
type Dict struct {
	data  *orderedmap.Map
	eval  Evaluator
	opts  Options
	cache *orderedmap.Map
}

func NewDict(data *orderedmap.Map, eval Evaluator, opts Options) *Dict {
	return &Dict{data: data, eval: eval, opts: opts, cache: orderedmap.NewMap()}
}

// Get returns the processed value for key. The first access evaluates the
// element; later accesses return the cached result.
func (d *Dict) Get(key interface{}) (interface{}, bool, error) {
	key = datatag.Native(key)
	if cached, found := d.cache.Get(key); found {
		return cached, true, nil
	}
	raw, found := d.data.Get(key)
	if !found {
		return nil, false, nil
	}
	value, err := processValue(raw, d.eval, d.opts)
	if err != nil {
		return nil, false, err
	}
	d.cache.Set(key, value)
	return value, true, nil
}

func (d *Dict) Len() int { return d.data.Len() }

func (d *Dict) Keys() []interface{} { return d.data.Keys() }

// Iterate visits every key, evaluating (and caching) each value.
func (d *Dict) Iterate(iterFunc func(k, v interface{}) error) error {
	for _, key := range d.data.Keys() {
		value, _, err := d.Get(key)
		if err != nil {
			return err
		}
		if err := iterFunc(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a Dict over the same underlying data with an independent
// cache holding the entries evaluated so far (copied by value, not shared).
func (d *Dict) Copy() *Dict {
	return &Dict{data: d.data, eval: d.eval, opts: d.opts, cache: d.cache.Copy()}
}

// Unmask returns a copy whose Transform for the given tag kinds is
// suppressed. Unmasking only affects elements not yet accessed: an entry
// cached before the unmask request keeps its transformed value. This
// first-access-wins behavior is deliberate; callers that need raw values
// must unmask before touching the element.
func (d *Dict) Unmask(kinds ...datatag.Kind) *Dict {
	copied := d.Copy()
	copied.opts = copied.opts.withUnmask(kinds...)
	return copied
}

// NativeCopy forces evaluation of every element and returns a plain
// ordered map of the results, recursively unwrapping nested lazy
// containers. Used when the evaluation scope ends.
func (d *Dict) NativeCopy() (*orderedmap.Map, error) {
	result := orderedmap.NewMap()
	err := d.Iterate(func(k, v interface{}) error {
		materialized, err := materialize(v)
		if err != nil {
			return err
		}
		result.Set(k, materialized)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func materialize(value interface{}) (interface{}, error) {
	switch typed := datatag.Native(value).(type) {
	case *Dict:
		native, err := typed.NativeCopy()
		if err != nil {
			return nil, err
		}
		return datatag.TagCopy(value, native), nil
	case *List:
		native, err := typed.NativeCopy()
		if err != nil {
			return nil, err
		}
		return datatag.TagCopy(value, native), nil
	default:
		return value, nil
	}
}
