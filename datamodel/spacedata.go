// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"bytes"
	"fmt"
	"iter"
	"slices"

	"github.com/born-ml/spacedata/internal/omap"
)

// SpaceData is an insertion-ordered mapping of names to data values (typically
// arrays) that carries an attribute mapping describing the collection as a whole.
//
// The attribute mapping is never part of the content: Keys, Get and All only
// see entries.
type SpaceData struct {
	data  omap.Map[any]
	attrs *Attrs
}

// Pair is a single SpaceData entry.
type Pair struct {
	Key   string
	Value any
}

// Option configures a SpaceData under construction.
type Option func(*SpaceData) error

// NewSpaceData creates a SpaceData. Options are applied in order, so later
// entries overwrite earlier ones with the same key.
//
// Example:
//
//	sd, err := datamodel.NewSpaceData(
//	    datamodel.WithEntries(map[string]any{"x": 1}),
//	    datamodel.WithKeywords(map[string]any{"attrs": map[string]any{"unit": "km"}, "y": 2}),
//	)
func NewSpaceData(opts ...Option) (*SpaceData, error) {
	sd := &SpaceData{attrs: NewAttrs()}
	for _, opt := range opts {
		if err := opt(sd); err != nil {
			return nil, err
		}
	}
	return sd, nil
}

// WithEntries adds the entries of src, which may be a []Pair, an
// iter.Seq2[string, any], a Getter (such as another *SpaceData or *Attrs), or
// a string-keyed Go map (added in sorted key order).
func WithEntries(src any) Option {
	return func(sd *SpaceData) error {
		switch x := src.(type) {
		case nil:
			return nil
		case []Pair:
			for _, p := range x {
				sd.data.Set(p.Key, p.Value)
			}
			return nil
		case iter.Seq2[string, any]:
			for k, v := range x {
				sd.data.Set(k, v)
			}
			return nil
		case Getter:
			for _, k := range x.Keys() {
				v, _ := x.Get(k)
				sd.data.Set(k, v)
			}
			return nil
		}

		entries, ok := stringMapEntries(src)
		if !ok {
			return fmt.Errorf("%w: cannot take entries from %T", ErrInvalidEntries, src)
		}
		for k, v := range entries {
			sd.data.Set(k, v)
		}
		return nil
	}
}

// WithEntry adds a single entry.
func WithEntry(key string, value any) Option {
	return func(sd *SpaceData) error {
		sd.data.Set(key, value)
		return nil
	}
}

// WithKeywords adds keyword entries in sorted key order. The reserved keyword
// "attrs" is not added as an entry: if its value supports item access it
// becomes the attribute mapping, otherwise it is dropped. kw is not modified.
func WithKeywords(kw map[string]any) Option {
	return func(sd *SpaceData) error {
		if v, ok := kw[attrsName]; ok {
			if attrs, ok := toAttrs(v); ok {
				sd.attrs = attrs
			}
		}
		keys := make([]string, 0, len(kw))
		for k := range kw {
			if k != attrsName {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
		for _, k := range keys {
			sd.data.Set(k, kw[k])
		}
		return nil
	}
}

// WithAttrs sets the attribute mapping. A *Attrs is kept by reference; a
// Getter or string-keyed Go map is copied. Values without item access leave
// the mapping empty.
func WithAttrs(v any) Option {
	return func(sd *SpaceData) error {
		if attrs, ok := toAttrs(v); ok {
			sd.attrs = attrs
		}
		return nil
	}
}

// Get returns the entry stored under key.
func (sd *SpaceData) Get(key string) (any, bool) {
	return sd.data.Get(key)
}

// Set stores an entry.
func (sd *SpaceData) Set(key string, value any) {
	sd.data.Set(key, value)
}

// Delete removes an entry and reports whether it was present.
func (sd *SpaceData) Delete(key string) bool {
	return sd.data.Delete(key)
}

// Has reports whether key is an entry.
func (sd *SpaceData) Has(key string) bool {
	return sd.data.Has(key)
}

// Keys returns the entry keys in insertion order.
func (sd *SpaceData) Keys() []string {
	return sd.data.Keys()
}

// Len returns the number of entries.
func (sd *SpaceData) Len() int {
	return sd.data.Len()
}

// All iterates over entries in insertion order.
func (sd *SpaceData) All() iter.Seq2[string, any] {
	return sd.data.All()
}

// Attrs returns the attribute mapping.
func (sd *SpaceData) Attrs() *Attrs {
	return sd.attrs
}

// SetAttrs replaces the attribute mapping. nil resets it to empty.
func (sd *SpaceData) SetAttrs(attrs *Attrs) {
	if attrs == nil {
		attrs = NewAttrs()
	}
	sd.attrs = attrs
}

// Clone returns a copy with the same entry values and a deep copy of attrs.
func (sd *SpaceData) Clone() *SpaceData {
	return &SpaceData{
		data:  *sd.data.Clone(nil),
		attrs: sd.attrs.Clone(),
	}
}

// String renders the entries as {key: value, ...}.
func (sd *SpaceData) String() string {
	return formatEntries(sd.All())
}

// MarshalJSON encodes {"attrs": {...}, "data": {...}} with both objects in
// insertion order.
func (sd *SpaceData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"attrs":`)
	if err := writeObject(&buf, sd.attrs.All()); err != nil {
		return nil, fmt.Errorf("attrs: %w", err)
	}
	buf.WriteString(`,"data":`)
	if err := writeObject(&buf, sd.All()); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
