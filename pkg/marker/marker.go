// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package marker

import (
	"fmt"
	"strings"

	"github.com/k14s/starlark-go/starlark"
	"github.com/k14s/starlark-go/syntax"
)

// Marker stands in for a value whose evaluation was deferred or failed.
// It satisfies the expression evaluator's value interface so that chains
// like `m.foo.bar["baz"]` propagate the marker instead of raising at each
// hop; the deferred failure only becomes observable when code attempts to
// materialize the marker as text.
type Marker struct {
	reason string
	err    error
}

var _ starlark.Value = (*Marker)(nil)
var _ starlark.HasAttrs = (*Marker)(nil)
var _ starlark.Mapping = (*Marker)(nil)
var _ starlark.Comparable = (*Marker)(nil)

// NewDeferred returns a Marker for a lookup that could not be resolved.
func NewDeferred(reason string) *Marker {
	return &Marker{reason: reason}
}

// NewErrored returns a Marker carrying an error captured during evaluation,
// to be re-raised on demand.
func NewErrored(err error, reason string) *Marker {
	return &Marker{reason: reason, err: err}
}

func (m *Marker) Reason() string { return m.reason }

// Captured returns the captured error, if any.
func (m *Marker) Captured() error { return m.err }

// Attr returns the marker itself for any regular attribute name, keeping
// the chain deferred. Reserved dunder-style names are not satisfied: a
// marker must not silently pass protocol probes.
func (m *Marker) Attr(name string) (starlark.Value, error) {
	if strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") {
		return nil, &AttrError{Name: name}
	}
	return m, nil
}

func (m *Marker) AttrNames() []string { return nil }

// Get implements index access: m[key] is m.
func (m *Marker) Get(starlark.Value) (starlark.Value, bool, error) {
	return m, true, nil
}

func (m *Marker) Type() string { return "marker" }
func (m *Marker) Freeze()      {}

// String panics with the MarkerError: rendering a marker to text is the
// point where the deferred failure becomes observable. Callers that want an
// error instead of a panic use Materialize.
func (m *Marker) String() string {
	panic(m.markerError())
}

// Truth panics like String: a marker must not satisfy truthiness checks.
func (m *Marker) Truth() starlark.Bool {
	panic(m.markerError())
}

// CompareSameType panics like String: a marker is not equal to any value,
// itself included, and comparing one materializes the deferred failure.
// Without this the evaluator would fall back to reference equality.
func (m *Marker) CompareSameType(op syntax.Token, y starlark.Value, depth int) (bool, error) {
	panic(m.markerError())
}

func (m *Marker) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: marker")
}

// NeverEqual marks the Marker as unequal to any value, itself included.
func (m *Marker) NeverEqual() {}

// Materialize surfaces the deferred failure as a MarkerError.
func (m *Marker) Materialize() (string, error) {
	return "", m.markerError()
}

func (m *Marker) markerError() *MarkerError {
	return &MarkerError{Reason: m.reason, Cause: m.err}
}

// From returns the value's marker, if it is one.
func From(value interface{}) (*Marker, bool) {
	m, ok := value.(*Marker)
	return m, ok
}

// Try returns the MarkerError for a marker value, nil otherwise. Used by
// code that must fail eagerly instead of relaying the marker further.
func Try(value interface{}) error {
	if m, ok := From(value); ok {
		return m.markerError()
	}
	return nil
}

// MarkerError is raised only when code attempts to materialize a Marker.
type MarkerError struct {
	Reason string
	Cause  error
}

func (e *MarkerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *MarkerError) Unwrap() error { return e.Cause }

// AttrError is returned for reserved attribute names a marker refuses to
// satisfy.
type AttrError struct {
	Name string
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("marker has no attribute '%s'", e.Name)
}
