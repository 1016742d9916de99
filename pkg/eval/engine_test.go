// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package eval_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/eval"
	"tagwire.dev/tagwire/pkg/marker"
	"tagwire.dev/tagwire/pkg/orderedmap"
)

func trusted(s string) interface{} {
	return datatag.Apply(s, datatag.TrustedAsTemplate{})
}

func TestEvaluateTrustedExpression(t *testing.T) {
	engine := eval.NewEngine(map[string]interface{}{"name": "world"})

	result, err := engine.Evaluate(trusted("{{ name }}"))
	require.NoError(t, err)
	assert.Equal(t, "world", datatag.Native(result))
}

func TestEvaluateKeepsResultType(t *testing.T) {
	engine := eval.NewEngine(map[string]interface{}{"count": int64(3)})

	result, err := engine.Evaluate(trusted("{{ count + 1 }}"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), datatag.Native(result))

	result, err = engine.Evaluate(trusted("{{ [1, 2][0] }}"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), datatag.Native(result))
}

func TestEvaluateInterpolation(t *testing.T) {
	engine := eval.NewEngine(map[string]interface{}{"name": "world", "n": int64(2)})

	result, err := engine.Evaluate(trusted("hello {{ name }}, take {{ n }}"))
	require.NoError(t, err)
	assert.Equal(t, "hello world, take 2", datatag.Native(result))
}

func TestUntaggedStringsPassThrough(t *testing.T) {
	engine := eval.NewEngine(map[string]interface{}{"name": "world"})

	result, err := engine.Evaluate("{{ name }}")
	require.NoError(t, err)
	assert.Equal(t, "{{ name }}", result)
}

func TestUntrustedTemplatesAreNeverEvaluated(t *testing.T) {
	engine := eval.NewEngine(map[string]interface{}{"name": "world"})

	// Untrusted wins even when TrustedAsTemplate is also present
	value := datatag.Apply("{{ name }}", datatag.TrustedAsTemplate{}, datatag.Untrusted{})
	result, err := engine.Evaluate(value)
	require.NoError(t, err)
	assert.Equal(t, "{{ name }}", datatag.Native(result))
}

func TestResultInheritsTemplateTags(t *testing.T) {
	engine := eval.NewEngine(map[string]interface{}{"name": "world"})

	value := datatag.Apply("{{ name }}",
		datatag.TrustedAsTemplate{}, datatag.Deprecated{Msg: "old var"})
	result, err := engine.Evaluate(value)
	require.NoError(t, err)

	assert.True(t, datatag.IsTaggedOn(datatag.KindDeprecated, result))
	// the trust mark never survives evaluation
	assert.False(t, datatag.IsTaggedOn(datatag.KindTrustedAsTemplate, result))
}

func TestUndefinedNameYieldsMarker(t *testing.T) {
	engine := eval.NewEngine(nil)

	result, err := engine.Evaluate(trusted("{{ missing_var }}"))
	require.NoError(t, err)

	m, ok := marker.From(result)
	require.True(t, ok)
	assert.Contains(t, m.Reason(), "missing_var")
}

func TestUndefinedChainsStayDeferred(t *testing.T) {
	engine := eval.NewEngine(nil)

	result, err := engine.Evaluate(trusted(`{{ missing.a.b["c"] }}`))
	require.NoError(t, err)
	_, ok := marker.From(result)
	assert.True(t, ok)
}

func TestComparingMarkersFails(t *testing.T) {
	engine := eval.NewEngine(nil)

	// equality would otherwise fall back to reference identity
	_, err := engine.Evaluate(trusted("{{ missing == missing }}"))
	require.Error(t, err)
	var markerErr *marker.MarkerError
	require.ErrorAs(t, err, &markerErr)
	assert.Contains(t, markerErr.Reason, "missing")
}

func TestMaterializingMarkerInInterpolationFails(t *testing.T) {
	engine := eval.NewEngine(nil)

	_, err := engine.Evaluate(trusted("value: {{ missing_var }}"))
	require.Error(t, err)
	var markerErr *marker.MarkerError
	assert.ErrorAs(t, err, &markerErr)
}

func TestScopeContainersConvert(t *testing.T) {
	config := orderedmap.NewMap()
	config.Set("port", int64(8080))
	engine := eval.NewEngine(map[string]interface{}{
		"config": config,
		"hosts":  []interface{}{"a", "b"},
	})

	result, err := engine.Evaluate(trusted(`{{ config["port"] }}`))
	require.NoError(t, err)
	assert.Equal(t, int64(8080), datatag.Native(result))

	result, err = engine.Evaluate(trusted("{{ hosts[1] }}"))
	require.NoError(t, err)
	assert.Equal(t, "b", datatag.Native(result))

	result, err = engine.Evaluate(trusted("{{ len(hosts) }}"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), datatag.Native(result))
}

func TestParseAndEvalErrors(t *testing.T) {
	engine := eval.NewEngine(map[string]interface{}{"n": int64(1)})

	_, err := engine.Evaluate(trusted("{{ n + }}"))
	assert.Error(t, err)

	_, err = engine.Evaluate(trusted(`{{ n + "s" }}`))
	assert.Error(t, err)
}

func TestFilters(t *testing.T) {
	filters := eval.FilterMap{
		"upper": func(args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("expected 1 argument")
			}
			s := args[0].(string)
			out := make([]rune, 0, len(s))
			for _, r := range s {
				if r >= 'a' && r <= 'z' {
					r -= 'a' - 'A'
				}
				out = append(out, r)
			}
			return string(out), nil
		},
	}
	engine := eval.NewEngine(map[string]interface{}{"name": "world"}, filters)

	result, err := engine.Evaluate(trusted(`{{ upper(name) }}`))
	require.NoError(t, err)
	assert.Equal(t, "WORLD", datatag.Native(result))

	_, err = engine.ApplyFilter("nope", "x")
	assert.Error(t, err)
}

func TestFilterResultsInheritArgumentTags(t *testing.T) {
	filters := eval.FilterMap{
		"identity": func(args []interface{}) (interface{}, error) {
			return args[0], nil
		},
	}
	engine := eval.NewEngine(nil, filters)

	tagged := datatag.Apply("secret", datatag.VaultedValue{Ciphertext: "armor"})
	result, err := engine.ApplyFilter("identity", tagged)
	require.NoError(t, err)

	assert.True(t, datatag.IsTaggedOn(datatag.KindVaultedValue, result))
	assert.Equal(t, "secret", datatag.Native(result))
}

func TestTrustedExpression(t *testing.T) {
	name := datatag.Apply("my_var", datatag.Deprecated{Msg: "renamed"})

	expr, err := eval.TrustedExpression(name)
	require.NoError(t, err)
	assert.Equal(t, "{{ my_var }}", datatag.Native(expr))
	assert.True(t, datatag.IsTaggedOn(datatag.KindTrustedAsTemplate, expr))
	assert.True(t, datatag.IsTaggedOn(datatag.KindDeprecated, expr))

	_, err = eval.TrustedExpression(int64(7))
	assert.Error(t, err)
}
