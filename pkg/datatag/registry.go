// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package datatag

import (
	"fmt"
	"sort"
)

// Kind identifies a tag type. At most one tag of each Kind can be present
// on a value.
type Kind string

// Tag is one immutable fact about a value: where it came from, whether it
// may be evaluated as a template, that it was produced by decrypting a
// secret, etc. Tags are metadata: they are invisible to equality and
// hashing of the values that carry them.
type Tag interface {
	Kind() Kind
}

// Descriptor maps a Kind to its wire representation. Serialization profiles
// consult the registry instead of switching on concrete Go types.
type Descriptor struct {
	Kind   Kind
	Encode func(Tag) (map[string]interface{}, error)
	Decode func(fields map[string]interface{}) (Tag, error)
}

// TagError indicates misuse of the tagging API, e.g. attaching a tag whose
// kind was never registered. These are programmer errors and fail fast.
type TagError struct {
	Msg string
}

func (e *TagError) Error() string { return e.Msg }

var registry = map[Kind]Descriptor{}

// Register adds a tag kind descriptor. Registering the same kind twice
// panics; kinds are expected to be registered once during init.
func Register(desc Descriptor) {
	if desc.Kind == "" || desc.Encode == nil || desc.Decode == nil {
		panic(&TagError{Msg: "tag descriptor must provide kind, encode and decode"})
	}
	if _, found := registry[desc.Kind]; found {
		panic(&TagError{Msg: fmt.Sprintf("tag kind '%s' is already registered", desc.Kind)})
	}
	registry[desc.Kind] = desc
}

// Lookup returns the descriptor for a kind, if registered.
func Lookup(kind Kind) (Descriptor, bool) {
	desc, found := registry[kind]
	return desc, found
}

// Kinds returns all registered kinds, sorted.
func Kinds() []Kind {
	var kinds []Kind
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func mustBeRegistered(tag Tag) {
	if _, found := registry[tag.Kind()]; !found {
		panic(&TagError{Msg: fmt.Sprintf("tag kind '%s' is not registered", tag.Kind())})
	}
}
