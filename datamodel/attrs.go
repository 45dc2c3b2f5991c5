// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"bytes"
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/spacedata/internal/omap"
)

// Getter is implemented by keyed collections that support item access.
// Values implementing Getter are accepted wherever an attribute mapping is expected.
type Getter interface {
	Get(key string) (any, bool)
	Keys() []string
}

// Attrs is an insertion-ordered mapping of attribute names to values,
// such as units, coordinate systems or fill values.
//
// A nil *Attrs reads as an empty mapping.
type Attrs struct {
	m omap.Map[any]
}

// NewAttrs creates a mapping from alternating keys and values.
// It panics if kv has odd length or a key is not a string.
func NewAttrs(kv ...any) *Attrs {
	if len(kv)%2 != 0 {
		panic("datamodel: NewAttrs requires key/value pairs")
	}
	a := &Attrs{}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("datamodel: NewAttrs key %d is %T, not string", i/2, kv[i]))
		}
		a.m.Set(key, kv[i+1])
	}
	return a
}

// Len returns the number of attributes.
func (a *Attrs) Len() int {
	if a == nil {
		return 0
	}
	return a.m.Len()
}

// Get returns the value stored under key.
func (a *Attrs) Get(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	return a.m.Get(key)
}

// Has reports whether key is present.
func (a *Attrs) Has(key string) bool {
	return a != nil && a.m.Has(key)
}

// Set stores value under key. Existing keys keep their position.
func (a *Attrs) Set(key string, value any) {
	a.m.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (a *Attrs) Delete(key string) bool {
	if a == nil {
		return false
	}
	return a.m.Delete(key)
}

// Keys returns the attribute names in insertion order.
func (a *Attrs) Keys() []string {
	if a == nil {
		return []string{}
	}
	return a.m.Keys()
}

// All iterates over attributes in insertion order.
func (a *Attrs) All() iter.Seq2[string, any] {
	if a == nil {
		return func(func(string, any) bool) {}
	}
	return a.m.All()
}

// Clone returns a deep copy. Nested mappings, Go maps and slices are copied;
// other values are shared.
func (a *Attrs) Clone() *Attrs {
	if a == nil {
		return NewAttrs()
	}
	return &Attrs{m: *a.m.Clone(cloneValue)}
}

// Equal reports whether a and other hold the same keys with equal values,
// regardless of order. Numbers compare by value whatever their Go type, and
// string-keyed Go maps compare as mappings.
func (a *Attrs) Equal(other *Attrs) bool {
	if a.Len() != other.Len() {
		return false
	}
	for k, v := range a.All() {
		ov, ok := other.Get(k)
		if !ok || !valuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// String renders the mapping as {key: value, ...} in insertion order.
func (a *Attrs) String() string {
	return formatEntries(a.All())
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (a *Attrs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeObject(&buf, a.All()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeObject writes entries as a JSON object, keeping their order.
func writeObject(buf *bytes.Buffer, entries iter.Seq2[string, any]) error {
	buf.WriteByte('{')
	first := true
	for k, v := range entries {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
// Nested objects become *Attrs, arrays []any, integral numbers int64 and
// other numbers float64. A JSON null leaves an empty mapping.
func (a *Attrs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	a.m = omap.Map[any]{}
	switch tok {
	case nil:
		return nil
	case json.Delim('{'):
		return decodeObjectInto(dec, a)
	default:
		return fmt.Errorf("%w: got JSON %v", ErrAttrsType, tok)
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			a := NewAttrs()
			if err := decodeObjectInto(dec, a); err != nil {
				return nil, err
			}
			return a, nil
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("unexpected JSON delimiter %q", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}

// decodeObjectInto reads object members after the opening brace.
func decodeObjectInto(dec *json.Decoder, a *Attrs) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected JSON object key %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		a.Set(key, v)
	}
	_, err := dec.Token() // '}'
	return err
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	out := []any{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if _, err := dec.Token(); err != nil { // ']'
		return nil, err
	}
	return out, nil
}

// MarshalYAML encodes the mapping as a YAML mapping in insertion order.
func (a *Attrs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range a.All() {
		key := &yaml.Node{}
		key.SetString(k)
		val := &yaml.Node{}
		if err := val.Encode(v); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping its key order.
func (a *Attrs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode {
		value = value.Alias
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: got YAML node kind %d at line %d", ErrAttrsType, value.Kind, value.Line)
	}
	a.m = omap.Map[any]{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		v, err := yamlValue(value.Content[i+1])
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		a.Set(key, v)
	}
	return nil
}

func yamlValue(n *yaml.Node) (any, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind == yaml.MappingNode {
		nested := NewAttrs()
		if err := nested.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return nested, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// toAttrs interprets v as an attribute mapping. *Attrs values are returned
// as is; Getters and string-keyed Go maps are copied, maps in sorted key order.
func toAttrs(v any) (*Attrs, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case *Attrs:
		if x == nil {
			return NewAttrs(), true
		}
		return x, true
	case Attrs:
		return x.Clone(), true
	case Getter:
		a := NewAttrs()
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			a.Set(k, val)
		}
		return a, true
	}

	entries, ok := stringMapEntries(v)
	if !ok {
		return nil, false
	}
	a := NewAttrs()
	for k, val := range entries {
		a.Set(k, val)
	}
	return a, true
}

// stringMapEntries iterates a Go map with string keys in sorted key order.
func stringMapEntries(v any) (iter.Seq2[string, any], bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(x, y reflect.Value) int {
		return strings.Compare(x.String(), y.String())
	})
	return func(yield func(string, any) bool) {
		for _, k := range keys {
			if !yield(k.String(), rv.MapIndex(k).Interface()) {
				return
			}
		}
	}, true
}

// formatEntries renders entries as {key: value, ...}.
func formatEntries(entries iter.Seq2[string, any]) string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for k, v := range entries {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%s: %v", k, v)
	}
	sb.WriteByte('}')
	return sb.String()
}

// cloneValue deep-copies mappings, Go maps and slices reachable from v.
func cloneValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int32, int64, uint8, float32, float64:
		return v
	case *Attrs:
		if x == nil {
			return x
		}
		return x.Clone()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out.SetMapIndex(it.Key(), cloneReflect(it.Value()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			out.Index(i).Set(cloneReflect(rv.Index(i)))
		}
		return out.Interface()
	default:
		return v
	}
}

func cloneReflect(v reflect.Value) reflect.Value {
	c := cloneValue(v.Interface())
	if c == nil {
		return reflect.Zero(v.Type())
	}
	return reflect.ValueOf(c)
}

// valuesEqual compares attribute values: mappings by content, numbers by value,
// sequences element-wise, everything else with reflect.DeepEqual.
func valuesEqual(x, y any) bool {
	if ax, ok := mappingOf(x); ok {
		ay, ok := mappingOf(y)
		return ok && ax.Equal(ay)
	}
	if fx, ok := numberOf(x); ok {
		fy, ok := numberOf(y)
		return ok && (fx == fy || (math.IsNaN(fx) && math.IsNaN(fy)))
	}

	rx, ry := reflect.ValueOf(x), reflect.ValueOf(y)
	if isSequence(rx) && isSequence(ry) {
		if rx.Len() != ry.Len() {
			return false
		}
		for i := range rx.Len() {
			if !valuesEqual(rx.Index(i).Interface(), ry.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(x, y)
}

// mappingOf is toAttrs restricted to attribute mappings and string-keyed maps.
func mappingOf(v any) (*Attrs, bool) {
	switch v.(type) {
	case *Attrs, Attrs:
		return toAttrs(v)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		return toAttrs(v)
	}
	return nil, false
}

func numberOf(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func isSequence(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}
