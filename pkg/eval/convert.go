// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"fmt"

	"github.com/k14s/starlark-go/starlark"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/lazy"
	"tagwire.dev/tagwire/pkg/marker"
	"tagwire.dev/tagwire/pkg/orderedmap"
)

// goToStarlark converts a Go value into its starlark equivalent. Tags are
// not representable inside the expression language; they are reattached to
// expression results by the engine. Markers already are starlark values and
// pass through so attribute/index chains keep propagating them.
func goToStarlark(val interface{}) (starlark.Value, error) {
	if m, ok := val.(*marker.Marker); ok {
		return m, nil
	}
	if tagged, ok := val.(*datatag.Value); ok {
		return goToStarlark(tagged.Native())
	}

	switch typedVal := val.(type) {
	case nil:
		return starlark.None, nil

	case bool:
		return starlark.Bool(typedVal), nil

	case string:
		return starlark.String(typedVal), nil

	case int:
		return starlark.MakeInt(typedVal), nil

	case int64:
		return starlark.MakeInt64(typedVal), nil

	case float64:
		return starlark.Float(typedVal), nil

	case *orderedmap.Map:
		result := &starlark.Dict{}
		err := typedVal.IterateErr(func(k, v interface{}) error {
			starKey, err := goToStarlark(k)
			if err != nil {
				return err
			}
			starVal, err := goToStarlark(v)
			if err != nil {
				return err
			}
			return result.SetKey(starKey, starVal)
		})
		if err != nil {
			return nil, err
		}
		return result, nil

	case []interface{}:
		result := []starlark.Value{}
		for _, v := range typedVal {
			starVal, err := goToStarlark(v)
			if err != nil {
				return nil, err
			}
			result = append(result, starVal)
		}
		return starlark.NewList(result), nil

	case *lazy.Dict:
		native, err := typedVal.NativeCopy()
		if err != nil {
			return nil, err
		}
		return goToStarlark(native)

	case *lazy.List:
		native, err := typedVal.NativeCopy()
		if err != nil {
			return nil, err
		}
		return goToStarlark(native)

	default:
		return nil, fmt.Errorf("unknown type %T for conversion to expression value", val)
	}
}

func starlarkToGo(val starlark.Value) (interface{}, error) {
	switch typedVal := val.(type) {
	case *marker.Marker:
		return typedVal, nil

	case nil, starlark.NoneType:
		return nil, nil

	case starlark.Bool:
		return bool(typedVal), nil

	case starlark.String:
		return string(typedVal), nil

	case starlark.Int:
		i, ok := typedVal.Int64()
		if !ok {
			return nil, fmt.Errorf("expression integer out of int64 range")
		}
		return i, nil

	case starlark.Float:
		return float64(typedVal), nil

	case *starlark.Dict:
		result := orderedmap.NewMap()
		for _, item := range typedVal.Items() {
			key, err := starlarkToGo(item.Index(0))
			if err != nil {
				return nil, err
			}
			value, err := starlarkToGo(item.Index(1))
			if err != nil {
				return nil, err
			}
			result.Set(key, value)
		}
		return result, nil

	case *starlark.List:
		return iterableToGo(typedVal)

	case starlark.Tuple:
		return iterableToGo(typedVal)

	case *starlark.Set:
		return iterableToGo(typedVal)

	default:
		return nil, fmt.Errorf("unknown type %T for conversion to go value", val)
	}
}

func iterableToGo(iterable starlark.Iterable) (interface{}, error) {
	iter := iterable.Iterate()
	defer iter.Done()

	result := []interface{}{}
	var x starlark.Value
	for iter.Next(&x) {
		v, err := starlarkToGo(x)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}
