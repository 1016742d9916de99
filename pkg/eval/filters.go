// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"fmt"
	"strconv"

	"tagwire.dev/tagwire/pkg/marker"
)

// Filter is a named callable contributed by an external plugin. Arguments
// arrive as native values; the filter is not expected to understand tags.
type Filter func(args []interface{}) (interface{}, error)

// FilterProvider is the capability interface for plugin loaders: a source
// of named callables. Discovery itself happens elsewhere.
type FilterProvider interface {
	Filters() map[string]Filter
}

// FilterMap is the trivial FilterProvider.
type FilterMap map[string]Filter

func (m FilterMap) Filters() map[string]Filter { return m }

func materializeText(value interface{}) (string, error) {
	if m, ok := value.(*marker.Marker); ok {
		return m.Materialize()
	}
	switch typedVal := value.(type) {
	case nil:
		return "", nil
	case string:
		return typedVal, nil
	case bool:
		return strconv.FormatBool(typedVal), nil
	case int:
		return strconv.FormatInt(int64(typedVal), 10), nil
	case int64:
		return strconv.FormatInt(typedVal, 10), nil
	case float64:
		return strconv.FormatFloat(typedVal, 'g', -1, 64), nil
	default:
		return fmt.Sprintf("%v", typedVal), nil
	}
}
