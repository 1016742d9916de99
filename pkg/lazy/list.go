// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"fmt"
	"reflect"

	"tagwire.dev/tagwire/pkg/datatag"
)

// List wraps a concrete sequence with the same on-demand evaluation and
// caching behavior as Dict.
type List struct {
	data  []interface{}
	eval  Evaluator
	opts  Options
	cache []interface{}
	done  []bool
}

func NewList(data []interface{}, eval Evaluator, opts Options) *List {
	return &List{
		data:  data,
		eval:  eval,
		opts:  opts,
		cache: make([]interface{}, len(data)),
		done:  make([]bool, len(data)),
	}
}

// Index returns the processed element at idx, evaluating it on first access.
func (l *List) Index(idx int) (interface{}, error) {
	if idx < 0 || idx >= len(l.data) {
		return nil, fmt.Errorf("index %d out of range [0:%d]", idx, len(l.data))
	}
	if l.done[idx] {
		return l.cache[idx], nil
	}
	value, err := processValue(l.data[idx], l.eval, l.opts)
	if err != nil {
		return nil, err
	}
	l.cache[idx] = value
	l.done[idx] = true
	return value, nil
}

func (l *List) Len() int { return len(l.data) }

func (l *List) Iterate(iterFunc func(idx int, v interface{}) error) error {
	for idx := range l.data {
		value, err := l.Index(idx)
		if err != nil {
			return err
		}
		if err := iterFunc(idx, value); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a List over the same underlying data with an independent,
// copied-by-value cache.
func (l *List) Copy() *List {
	cache := make([]interface{}, len(l.cache))
	copy(cache, l.cache)
	done := make([]bool, len(l.done))
	copy(done, l.done)
	return &List{data: l.data, eval: l.eval, opts: l.opts, cache: cache, done: done}
}

// Unmask returns a copy whose Transform for the given tag kinds is
// suppressed. Entries already cached keep their transformed values; see
// Dict.Unmask.
func (l *List) Unmask(kinds ...datatag.Kind) *List {
	copied := l.Copy()
	copied.opts = copied.opts.withUnmask(kinds...)
	return copied
}

// Slice returns a List of the same kind over [from:to), preserving the
// evaluation context and mask configuration. Cached entries in the range
// are carried over by value.
func (l *List) Slice(from, to int) (*List, error) {
	if from < 0 || to > len(l.data) || from > to {
		return nil, fmt.Errorf("slice bounds [%d:%d] out of range [0:%d]", from, to, len(l.data))
	}
	sliced := NewList(l.data[from:to], l.eval, l.opts)
	copy(sliced.cache, l.cache[from:to])
	copy(sliced.done, l.done[from:to])
	return sliced, nil
}

// Concat returns a List over both sequences. Laziness is preserved when the
// other List shares this one's evaluation context and options; otherwise
// both sides are forced first.
func (l *List) Concat(other *List) (*List, error) {
	if sameEvaluator(l.eval, other.eval) && reflect.DeepEqual(l.opts, other.opts) {
		data := make([]interface{}, 0, len(l.data)+len(other.data))
		data = append(data, l.data...)
		data = append(data, other.data...)
		combined := NewList(data, l.eval, l.opts)
		copy(combined.cache, l.cache)
		copy(combined.done, l.done)
		copy(combined.cache[len(l.data):], other.cache)
		copy(combined.done[len(l.data):], other.done)
		return combined, nil
	}

	var data []interface{}
	for _, side := range []*List{l, other} {
		err := side.Iterate(func(_ int, v interface{}) error {
			data = append(data, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	forced := NewList(data, l.eval, l.opts)
	copy(forced.cache, data)
	for idx := range forced.done {
		forced.done[idx] = true
	}
	return forced, nil
}

// NativeCopy forces evaluation of every element and returns a plain slice,
// recursively unwrapping nested lazy containers.
func (l *List) NativeCopy() ([]interface{}, error) {
	result := make([]interface{}, 0, len(l.data))
	err := l.Iterate(func(_ int, v interface{}) error {
		materialized, err := materialize(v)
		if err != nil {
			return err
		}
		result = append(result, materialized)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
