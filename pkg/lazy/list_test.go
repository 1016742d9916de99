// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package lazy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/lazy"
)

func TestListIndexEvaluatesOnce(t *testing.T) {
	eval := &upperEval{}
	list := lazy.NewList([]interface{}{"a", "b"}, eval, lazy.Options{})

	value, err := list.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "A", value)
	assert.Equal(t, 1, eval.calls)

	_, err = list.Index(0)
	require.NoError(t, err)
	assert.Equal(t, 1, eval.calls)

	_, err = list.Index(5)
	assert.Error(t, err)
	_, err = list.Index(-1)
	assert.Error(t, err)
}

func TestListCopyHasIndependentCache(t *testing.T) {
	eval := &upperEval{}
	list := lazy.NewList([]interface{}{"a", "b"}, eval, lazy.Options{})

	_, err := list.Index(0)
	require.NoError(t, err)

	copied := list.Copy()
	_, err = copied.Index(0)
	require.NoError(t, err)
	assert.Equal(t, 1, eval.calls)

	_, err = copied.Index(1)
	require.NoError(t, err)
	_, err = list.Index(1)
	require.NoError(t, err)
	assert.Equal(t, 3, eval.calls)
}

func TestListSlicePreservesLazinessAndCache(t *testing.T) {
	eval := &upperEval{}
	list := lazy.NewList([]interface{}{"a", "b", "c", "d"}, eval, lazy.Options{})

	_, err := list.Index(1)
	require.NoError(t, err)

	sliced, err := list.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, sliced.Len())

	// index 1 of the original is index 0 of the slice and stays cached
	value, err := sliced.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "B", value)
	assert.Equal(t, 1, eval.calls)

	value, err = sliced.Index(1)
	require.NoError(t, err)
	assert.Equal(t, "C", value)
	assert.Equal(t, 2, eval.calls)

	_, err = list.Slice(2, 1)
	assert.Error(t, err)
	_, err = list.Slice(0, 9)
	assert.Error(t, err)
}

func TestListConcatSameContextStaysLazy(t *testing.T) {
	eval := &upperEval{}
	left := lazy.NewList([]interface{}{"a"}, eval, lazy.Options{})
	right := lazy.NewList([]interface{}{"b"}, eval, lazy.Options{})

	_, err := left.Index(0)
	require.NoError(t, err)

	combined, err := left.Concat(right)
	require.NoError(t, err)
	assert.Equal(t, 2, combined.Len())
	// left's cached entry carried over; right's element still unevaluated
	assert.Equal(t, 1, eval.calls)

	value, err := combined.Index(1)
	require.NoError(t, err)
	assert.Equal(t, "B", value)
	assert.Equal(t, 2, eval.calls)
}

func TestListConcatDifferentContextForces(t *testing.T) {
	evalA := &upperEval{}
	evalB := &upperEval{}
	left := lazy.NewList([]interface{}{"a"}, evalA, lazy.Options{})
	right := lazy.NewList([]interface{}{"b"}, evalB, lazy.Options{})

	combined, err := left.Concat(right)
	require.NoError(t, err)
	assert.Equal(t, 1, evalA.calls)
	assert.Equal(t, 1, evalB.calls)

	value, err := combined.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "A", value)
	value, err = combined.Index(1)
	require.NoError(t, err)
	assert.Equal(t, "B", value)
	// no re-evaluation of the forced entries
	assert.Equal(t, 1, evalA.calls)
	assert.Equal(t, 1, evalB.calls)
}

func TestListConcatDifferentOptionsForces(t *testing.T) {
	transforms := map[datatag.Kind]lazy.Transform{
		datatag.KindVaultedValue: func(tag datatag.Tag, value interface{}) (interface{}, error) {
			return "decrypted", nil
		},
	}
	left := lazy.NewList([]interface{}{"x"}, nil, lazy.Options{Transforms: transforms})
	right := lazy.NewList([]interface{}{
		datatag.Apply("armor", datatag.VaultedValue{Ciphertext: "armor"}),
	}, nil, lazy.Options{Transforms: transforms}).Unmask(datatag.KindVaultedValue)

	combined, err := left.Concat(right)
	require.NoError(t, err)

	// right's element was forced under right's own options: its unmask
	// holds, it is not transformed under left's
	value, err := combined.Index(1)
	require.NoError(t, err)
	assert.Equal(t, "armor", datatag.Native(value))
}

// scopeEval carries a map, making its dynamic type uncomparable.
type scopeEval struct {
	vars map[string]interface{}
}

func (e scopeEval) Evaluate(value interface{}) (interface{}, error) {
	if s, ok := value.(string); ok {
		if v, found := e.vars[s]; found {
			return v, nil
		}
	}
	return value, nil
}

func TestListConcatUncomparableEvaluators(t *testing.T) {
	left := lazy.NewList([]interface{}{"a"},
		scopeEval{vars: map[string]interface{}{"a": "left"}}, lazy.Options{})
	right := lazy.NewList([]interface{}{"b"},
		scopeEval{vars: map[string]interface{}{"b": "right"}}, lazy.Options{})

	var combined *lazy.List
	assert.NotPanics(t, func() {
		var err error
		combined, err = left.Concat(right)
		require.NoError(t, err)
	})

	value, err := combined.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "left", value)
	value, err = combined.Index(1)
	require.NoError(t, err)
	assert.Equal(t, "right", value)
}

func TestListUnmaskAfterAccessKeepsCachedValue(t *testing.T) {
	transforms := map[datatag.Kind]lazy.Transform{
		datatag.KindVaultedValue: func(tag datatag.Tag, value interface{}) (interface{}, error) {
			return "decrypted", nil
		},
	}
	list := lazy.NewList([]interface{}{
		datatag.Apply("armor", datatag.VaultedValue{Ciphertext: "armor"}),
	}, nil, lazy.Options{Transforms: transforms})

	value, err := list.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "decrypted", datatag.Native(value))

	raw := list.Unmask(datatag.KindVaultedValue)
	value, err = raw.Index(0)
	require.NoError(t, err)
	assert.Equal(t, "decrypted", datatag.Native(value))
}

func TestListNativeCopy(t *testing.T) {
	list := lazy.NewList([]interface{}{"a", []interface{}{"b"}}, &upperEval{}, lazy.Options{})

	native, err := list.NativeCopy()
	require.NoError(t, err)
	require.Len(t, native, 2)
	assert.Equal(t, "A", native[0])
	assert.Equal(t, []interface{}{"B"}, native[1])
}
