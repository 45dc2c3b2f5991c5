// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Typed errors below unwrap to these.
var (
	// ErrDisallowedAttribute is returned when setting an attribute that is not allow-listed.
	ErrDisallowedAttribute = errors.New("disallowed attribute")

	// ErrCoercion is returned when input cannot be interpreted as array data.
	ErrCoercion = errors.New("cannot interpret input as array data")

	// ErrAttrsType is returned when a value assigned to attrs is not an attribute mapping.
	ErrAttrsType = errors.New("attrs must be an attribute mapping")

	// ErrDTypeMismatch is returned when persisted data has a different element type.
	ErrDTypeMismatch = errors.New("data type mismatch")

	// ErrUnsupportedValue is returned when an attribute value cannot be persisted.
	ErrUnsupportedValue = errors.New("unsupported attribute value")

	// ErrInvalidEntries is returned when SpaceData content cannot be built from the given source.
	ErrInvalidEntries = errors.New("invalid mapping entries")
)

// DisallowedAttributeError reports an attempt to set an attribute outside the allow-list.
type DisallowedAttributeError struct {
	Name    string
	Allowed []string
}

func (e *DisallowedAttributeError) Error() string {
	return fmt.Sprintf("attribute %q cannot be set: only %s allowed", e.Name, strings.Join(e.Allowed, ", "))
}

func (e *DisallowedAttributeError) Unwrap() error {
	return ErrDisallowedAttribute
}

// CoercionError reports input that could not be turned into an array.
type CoercionError struct {
	Input  string // Go type of the offending input
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrCoercion, e.Input, e.Reason)
}

func (e *CoercionError) Unwrap() error {
	return ErrCoercion
}
