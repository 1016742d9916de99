// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package datatag

import (
	"fmt"
	"reflect"
	"sort"

	"tagwire.dev/tagwire/pkg/orderedmap"
)

// Value carries an underlying value together with its tag set. Values are
// immutable; every operation that changes the tag set returns a new Value.
// A Value compares content-equal to its untagged counterpart.
type Value struct {
	data interface{}
	tags map[Kind]Tag
}

// Native returns the underlying value without its tags. The result is not
// recursively unwrapped; see NativeDeep.
func (v *Value) Native() interface{} { return v.data }

func (v *Value) tagList() []Tag {
	var tags []Tag
	for _, tag := range v.tags {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Kind() < tags[j].Kind() })
	return tags
}

func (v *Value) copyTags() map[Kind]Tag {
	tags := make(map[Kind]Tag, len(v.tags))
	for kind, tag := range v.tags {
		tags[kind] = tag
	}
	return tags
}

// NeverEqual marks values that must not compare equal to anything,
// themselves included (e.g. markers). ContentEqual honors it.
type NeverEqual interface {
	NeverEqual()
}

// Apply returns value with the given tags attached, replacing any existing
// tag of the same kind. nil and bool values are untaggable and returned
// unchanged, as are NeverEqual values. Attaching a tag of an unregistered
// kind panics with a TagError.
func Apply(value interface{}, tags ...Tag) interface{} {
	if len(tags) == 0 {
		return value
	}
	for _, tag := range tags {
		mustBeRegistered(tag)
	}
	switch value.(type) {
	case nil, bool, NeverEqual:
		return value
	}

	var merged map[Kind]Tag
	var data interface{}
	if tagged, ok := value.(*Value); ok {
		merged = tagged.copyTags()
		data = tagged.data
	} else {
		merged = map[Kind]Tag{}
		data = value
	}
	for _, tag := range tags {
		merged[tag.Kind()] = tag
	}
	return &Value{data: data, tags: merged}
}

// Native returns the value without tags, unwrapping a single Value layer.
func Native(value interface{}) interface{} {
	if tagged, ok := value.(*Value); ok {
		return tagged.data
	}
	return value
}

// NativeDeep strips tags from the value and, recursively, from every
// element of any container it holds.
func NativeDeep(value interface{}) interface{} {
	switch typed := Native(value).(type) {
	case *orderedmap.Map:
		result := orderedmap.NewMap()
		typed.Iterate(func(k, v interface{}) {
			result.Set(NativeDeep(k), NativeDeep(v))
		})
		return result
	case []interface{}:
		result := make([]interface{}, len(typed))
		for i, item := range typed {
			result[i] = NativeDeep(item)
		}
		return result
	default:
		return typed
	}
}

// Tags returns the tag set of value, sorted by kind. Untagged values yield
// nil.
func Tags(value interface{}) []Tag {
	if tagged, ok := value.(*Value); ok {
		return tagged.tagList()
	}
	return nil
}

// TagTypes returns the set of kinds present on value.
func TagTypes(value interface{}) []Kind {
	var kinds []Kind
	for _, tag := range Tags(value) {
		kinds = append(kinds, tag.Kind())
	}
	return kinds
}

// IsTaggedOn reports whether value carries a tag of the given kind.
func IsTaggedOn(kind Kind, value interface{}) bool {
	_, found := GetTag(kind, value)
	return found
}

// GetTag returns the tag of the given kind present on value, if any.
func GetTag(kind Kind, value interface{}) (Tag, bool) {
	if tagged, ok := value.(*Value); ok {
		tag, found := tagged.tags[kind]
		return tag, found
	}
	return nil, false
}

// RequiredTag is GetTag for callers that consider absence an error.
func RequiredTag(kind Kind, value interface{}) (Tag, error) {
	tag, found := GetTag(kind, value)
	if !found {
		return nil, fmt.Errorf("expected value to be tagged with '%s'", kind)
	}
	return tag, nil
}

// FirstTaggedOn returns the first of the given values tagged with kind.
func FirstTaggedOn(kind Kind, values ...interface{}) (interface{}, bool) {
	for _, value := range values {
		if IsTaggedOn(kind, value) {
			return value, true
		}
	}
	return nil, false
}

// Untag returns value with the given kinds removed; with no kinds given,
// all tags are removed. When no tags remain the native value is returned.
func Untag(value interface{}, kinds ...Kind) interface{} {
	tagged, ok := value.(*Value)
	if !ok {
		return value
	}
	if len(kinds) == 0 {
		return tagged.data
	}
	remaining := tagged.copyTags()
	for _, kind := range kinds {
		delete(remaining, kind)
	}
	if len(remaining) == len(tagged.tags) {
		return value
	}
	if len(remaining) == 0 {
		return tagged.data
	}
	return &Value{data: tagged.data, tags: remaining}
}

// TagCopy copies tags from src onto dst, except that a kind already present
// on dst is kept as-is: a destination's own provenance for a tag kind wins.
// This matters most for VaultedValue, where overwriting dst's own vault
// provenance with src's would misattribute the ciphertext.
func TagCopy(src, dst interface{}) interface{} {
	var toCopy []Tag
	for _, tag := range Tags(src) {
		if IsTaggedOn(tag.Kind(), dst) {
			continue
		}
		toCopy = append(toCopy, tag)
	}
	return Apply(dst, toCopy...)
}

// ContentEqual compares two values by content, ignoring tags at every
// nesting depth. NeverEqual values compare unequal to everything.
func ContentEqual(a, b interface{}) bool {
	if isNeverEqual(a) || isNeverEqual(b) {
		return false
	}
	return reflect.DeepEqual(NativeDeep(a), NativeDeep(b))
}

func isNeverEqual(value interface{}) bool {
	_, never := Native(value).(NeverEqual)
	return never
}

// HashKey returns a map-key string for a scalar value that is identical for
// tagged and untagged values of equal content. Containers and NeverEqual
// values are not hashable.
func HashKey(value interface{}) (string, error) {
	native := Native(value)
	switch typed := native.(type) {
	case nil:
		return "nil", nil
	case bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%T:%v", typed, typed), nil
	default:
		return "", fmt.Errorf("unhashable type %T", native)
	}
}
