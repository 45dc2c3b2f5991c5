// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"iter"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Persisted attribute slots use typed JSON so values restore with their Go
// types:
//
//	nil, string, bool        null, "s", true
//	int64                    12
//	float64                  12.0, 1e+21 (always a fraction or exponent)
//	*Attrs                   {"k": <typed>, ...}
//	[]any                    [<typed>, ...]
//
// Every other supported value is tagged as {"$type": name, "value": payload}:
// the sized integer and float scalars (int, int8 ... uint64, float32),
// non-finite float64, slices and string-keyed maps of those scalars
// ("[]float64", "map[string]string"), map[string]any, time.Time,
// time.Duration and nested arrays ("array", the array's own envelope).
// Mappings that contain a "$type" key are tagged as "attrs".
const (
	typeKey  = "$type"
	valueKey = "value"
)

var scalarTypes = map[string]reflect.Type{
	"bool":    reflect.TypeFor[bool](),
	"string":  reflect.TypeFor[string](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
}

// scalarName returns the tag name of t if it is one of the unnamed scalar types.
func scalarName(t reflect.Type) (string, bool) {
	name := t.String()
	return name, scalarTypes[name] == t
}

// encodeState encodes one attribute value as typed JSON.
func encodeState(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTyped(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTyped(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case string:
		return writeJSON(buf, x)
	case bool:
		buf.WriteString(strconv.FormatBool(x))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return writeTagged(buf, "float64", func() error {
				return writeScalar(buf, reflect.ValueOf(x))
			})
		}
		buf.WriteString(floatLiteral(x, 64))
		return nil
	case *Attrs:
		if x.Has(typeKey) {
			return writeTagged(buf, "attrs", func() error { return writeTypedObject(buf, x.All()) })
		}
		return writeTypedObject(buf, x.All())
	case []any:
		if x == nil {
			return writeTagged(buf, "[]any", func() error { buf.WriteString("null"); return nil })
		}
		return writeTypedArray(buf, x)
	case map[string]any:
		entries, _ := stringMapEntries(x)
		return writeTagged(buf, "map[string]any", func() error {
			if x == nil {
				buf.WriteString("null")
				return nil
			}
			return writeTypedObject(buf, entries)
		})
	case time.Time:
		return writeTagged(buf, "time", func() error { return writeJSON(buf, x.Format(time.RFC3339Nano)) })
	case time.Duration:
		return writeTagged(buf, "duration", func() error {
			buf.WriteString(strconv.FormatInt(int64(x), 10))
			return nil
		})
	case AnyArray:
		if reflect.ValueOf(x).IsNil() {
			buf.WriteString("null")
			return nil
		}
		data, err := x.MarshalBinary()
		if err != nil {
			return fmt.Errorf("nested array: %w", err)
		}
		return writeTagged(buf, "array", func() error { return writeJSON(buf, base64.StdEncoding.EncodeToString(data)) })
	}

	rv := reflect.ValueOf(v)
	if name, ok := scalarName(rv.Type()); ok {
		return writeTagged(buf, name, func() error { return writeScalar(buf, rv) })
	}
	switch rv.Kind() {
	case reflect.Slice:
		if name, ok := scalarName(rv.Type().Elem()); ok {
			return writeTagged(buf, "[]"+name, func() error { return writeScalarSlice(buf, rv) })
		}
	case reflect.Map:
		name, ok := scalarName(rv.Type().Elem())
		if ok && rv.Type().Key() == scalarTypes["string"] {
			return writeTagged(buf, "map[string]"+name, func() error { return writeScalarMap(buf, rv) })
		}
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeTagged(buf *bytes.Buffer, name string, payload func() error) error {
	buf.WriteString(`{"` + typeKey + `":`)
	if err := writeJSON(buf, name); err != nil {
		return err
	}
	buf.WriteString(`,"` + valueKey + `":`)
	if err := payload(); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeTypedObject(buf *bytes.Buffer, entries iter.Seq2[string, any]) error {
	buf.WriteByte('{')
	first := true
	for k, v := range entries {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeJSON(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeTyped(buf, v); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeTypedArray(buf *bytes.Buffer, values []any) error {
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeTyped(buf, v); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeScalar writes a scalar payload. Non-finite floats are written as the
// strings "NaN", "+Inf" and "-Inf".
func writeScalar(buf *bytes.Buffer, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.String:
		return writeJSON(buf, v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			buf.WriteString(`"NaN"`)
		case math.IsInf(f, 1):
			buf.WriteString(`"+Inf"`)
		case math.IsInf(f, -1):
			buf.WriteString(`"-Inf"`)
		default:
			buf.WriteString(floatLiteral(f, v.Type().Bits()))
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedValue, v.Type())
	}
	return nil
}

func writeScalarSlice(buf *bytes.Buffer, v reflect.Value) error {
	if v.IsNil() {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('[')
	for i := range v.Len() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeScalar(buf, v.Index(i)); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeScalarMap(buf *bytes.Buffer, v reflect.Value) error {
	if v.IsNil() {
		buf.WriteString("null")
		return nil
	}
	keys := v.MapKeys()
	slices.SortFunc(keys, func(x, y reflect.Value) int {
		return strings.Compare(x.String(), y.String())
	})
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(buf, k.String()); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeScalar(buf, v.MapIndex(k)); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// floatLiteral formats f with the shortest exact representation and keeps a
// fraction or exponent so the value reads back as a float.
func floatLiteral(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// decodeState decodes one typed JSON attribute value. Plain JSON written by
// earlier versions is accepted: objects become *Attrs, arrays []any, numbers
// int64 or float64.
func decodeState(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return readTyped(dec)
}

func readTyped(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return readTypedObject(dec)
		case '[':
			out := []any{}
			for dec.More() {
				v, err := readTyped(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, closing(dec, ']')
		}
		return nil, fmt.Errorf("unexpected JSON delimiter %q", t)
	case json.Number:
		return plainNumber(string(t))
	default:
		return t, nil
	}
}

func plainNumber(s string) (any, error) {
	if strings.ContainsAny(s, ".eE") {
		return strconv.ParseFloat(s, 64)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	return strconv.ParseFloat(s, 64)
}

// readTypedObject reads an object after its opening brace. A leading "$type"
// member marks a tagged value.
func readTypedObject(dec *json.Decoder) (any, error) {
	a := NewAttrs()
	first := true
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return nil, err
		}
		if first && key == typeKey {
			return readTagged(dec)
		}
		first = false
		v, err := readTyped(dec)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		a.Set(key, v)
	}
	return a, closing(dec, '}')
}

func readMembers(dec *json.Decoder, set func(key string) error) error {
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return err
		}
		if err := set(key); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
	}
	return closing(dec, '}')
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected JSON object key %v", tok)
	}
	return key, nil
}

func closing(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readTagged(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	name, ok := tok.(string)
	if !ok {
		return nil, fmt.Errorf("%w: type tag %v", ErrUnsupportedValue, tok)
	}
	if key, err := objectKey(dec); err != nil {
		return nil, err
	} else if key != valueKey {
		return nil, fmt.Errorf("tagged %s: expected %q member, got %q", name, valueKey, key)
	}
	v, err := readPayload(dec, name)
	if err != nil {
		return nil, fmt.Errorf("tagged %s: %w", name, err)
	}
	return v, closing(dec, '}')
}

func readPayload(dec *json.Decoder, name string) (any, error) {
	if t, ok := scalarTypes[name]; ok {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := scalarFromToken(tok, t)
		if err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}
	if elem, ok := strings.CutPrefix(name, "[]"); ok {
		if elem == "any" {
			return readAnySlice(dec)
		}
		if t, ok := scalarTypes[elem]; ok {
			return readScalarSlice(dec, t)
		}
	}
	if elem, ok := strings.CutPrefix(name, "map[string]"); ok {
		if elem == "any" {
			return readAnyMap(dec)
		}
		if t, ok := scalarTypes[elem]; ok {
			return readScalarMap(dec, t)
		}
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch name {
	case "attrs":
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("%w: got JSON %v", ErrAttrsType, tok)
		}
		a := NewAttrs()
		err := readMembers(dec, func(key string) error {
			v, err := readTyped(dec)
			a.Set(key, v)
			return err
		})
		return a, err
	case "time":
		s, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %v", tok)
		}
		return time.Parse(time.RFC3339Nano, s)
	case "duration":
		n, ok := tok.(json.Number)
		if !ok {
			return nil, fmt.Errorf("expected number, got %v", tok)
		}
		d, err := strconv.ParseInt(string(n), 10, 64)
		return time.Duration(d), err
	case "array":
		s, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %v", tok)
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, err
		}
		return decodeEnvelope(data)
	}
	return nil, fmt.Errorf("%w: unknown type tag %q", ErrUnsupportedValue, name)
}

// openPayload reads the opening token of a collection payload; ok is false
// for a JSON null.
func openPayload(dec *json.Decoder, want json.Delim) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	if tok == nil {
		return false, nil
	}
	if tok != want {
		return false, fmt.Errorf("expected %q, got %v", want, tok)
	}
	return true, nil
}

func readAnySlice(dec *json.Decoder) (any, error) {
	ok, err := openPayload(dec, '[')
	if err != nil || !ok {
		return []any(nil), err
	}
	out := []any{}
	for dec.More() {
		v, err := readTyped(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, closing(dec, ']')
}

func readScalarSlice(dec *json.Decoder, elem reflect.Type) (any, error) {
	st := reflect.SliceOf(elem)
	ok, err := openPayload(dec, '[')
	if err != nil || !ok {
		return reflect.Zero(st).Interface(), err
	}
	out := reflect.MakeSlice(st, 0, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := scalarFromToken(tok, elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", out.Len(), err)
		}
		out = reflect.Append(out, v)
	}
	return out.Interface(), closing(dec, ']')
}

func readAnyMap(dec *json.Decoder) (any, error) {
	ok, err := openPayload(dec, '{')
	if err != nil || !ok {
		return map[string]any(nil), err
	}
	out := map[string]any{}
	err = readMembers(dec, func(key string) error {
		v, err := readTyped(dec)
		out[key] = v
		return err
	})
	return out, err
}

func readScalarMap(dec *json.Decoder, elem reflect.Type) (any, error) {
	mt := reflect.MapOf(scalarTypes["string"], elem)
	ok, err := openPayload(dec, '{')
	if err != nil || !ok {
		return reflect.Zero(mt).Interface(), err
	}
	out := reflect.MakeMap(mt)
	err = readMembers(dec, func(key string) error {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		v, err := scalarFromToken(tok, elem)
		if err != nil {
			return err
		}
		out.SetMapIndex(reflect.ValueOf(key), v)
		return nil
	})
	return out.Interface(), err
}

// scalarFromToken converts a JSON token to a value of scalar type t without
// loss: integers must fit t, floats may be given as "NaN", "+Inf" or "-Inf".
func scalarFromToken(tok any, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, ok := tok.(bool)
		if !ok {
			return v, fmt.Errorf("expected bool, got %v", tok)
		}
		v.SetBool(b)
	case reflect.String:
		s, ok := tok.(string)
		if !ok {
			return v, fmt.Errorf("expected string, got %v", tok)
		}
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := tok.(json.Number)
		if !ok {
			return v, fmt.Errorf("expected integer, got %v", tok)
		}
		i, err := strconv.ParseInt(string(n), 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := tok.(json.Number)
		if !ok {
			return v, fmt.Errorf("expected integer, got %v", tok)
		}
		u, err := strconv.ParseUint(string(n), 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		var s string
		switch x := tok.(type) {
		case json.Number:
			s = string(x)
		case string:
			if x != "NaN" && x != "+Inf" && x != "-Inf" {
				return v, fmt.Errorf("unexpected float string %q", x)
			}
			s = x
		default:
			return v, fmt.Errorf("expected number, got %v", tok)
		}
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(f)
	default:
		return v, fmt.Errorf("%w: %s", ErrUnsupportedValue, t)
	}
	return v, nil
}
