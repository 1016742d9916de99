// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package serialize

import (
	"fmt"
)

// DeserializationError reports wire data that must not be accepted:
// invalid UTF-8 string content, malformed envelopes, unknown tag kinds.
// It is always surfaced to the caller and never silently coerced.
type DeserializationError struct {
	Path string
	Msg  string
}

func (e *DeserializationError) Error() string { return e.Msg }

// invalid UTF-8 rejection is a security boundary; the message prefix is
// part of the wire contract and asserted by consumers.
const invalidUTF8Prefix = "Refusing to deserialize an invalid UTF8 string value"

func newInvalidUTF8Error(path string) *DeserializationError {
	return &DeserializationError{
		Path: path,
		Msg:  fmt.Sprintf("%s at %s", invalidUTF8Prefix, path),
	}
}

// Tripwire is a placeholder that is inert until something attempts to
// serialize it. Values that must never reach the wire (e.g. "should have
// been replaced before output") implement it.
type Tripwire interface {
	Trip() error
}

// Placeholder is the stock Tripwire implementation.
type Placeholder struct {
	Reason string
}

func (p Placeholder) Trip() error {
	return &TripwireError{Msg: fmt.Sprintf("attempted to serialize a guarded placeholder: %s", p.Reason)}
}

// NeverEqual keeps placeholders from comparing equal to anything.
func (p Placeholder) NeverEqual() {}

// TripwireError indicates a guarded placeholder reached an encoder. Always
// fatal to the operation that tripped it.
type TripwireError struct {
	Msg string
}

func (e *TripwireError) Error() string { return e.Msg }
