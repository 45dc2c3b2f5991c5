// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"fmt"
	"iter"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/born-ml/spacedata/internal/tensor"
)

const (
	attrsName       = "attrs"
	extraAttrPrefix = "extra_attr_"
)

// AttributeSource is anything that can hand allow-listed attributes to a
// derived array. *Array[T] of every element type implements it, so metadata
// flows across casts.
type AttributeSource interface {
	Attr(name string) (any, bool)
	AllowedAttributes() []string
}

// extraAttr is an attribute restored from a positional slot whose name was not recorded.
type extraAttr struct {
	name  string
	value any
}

// Array is a numeric array that carries an attribute mapping.
//
// Every operation that derives a new array (Slice, Index, Reshape, Map, Cast,
// arithmetic, ...) copies the source's allow-listed attributes onto the
// result. Derived arrays receive independent deep copies, so mutating a view's
// attrs never affects the array it came from. The numeric buffer itself
// follows view semantics: slices share storage with their source.
type Array[T tensor.DType] struct {
	t      *tensor.Tensor[T]
	attrs  *Attrs
	extras []extraAttr
}

// NewArray wraps array-like input.
//
// Accepted input: a *Array[T] or *tensor.Tensor[T] (viewed, not copied), a
// single T, a []T, or nested slices and arrays of any numeric or bool kind
// (copied and converted to T). attrs is kept by reference; nil yields an
// empty mapping.
//
// Input that cannot be interpreted as array data fails with *CoercionError.
func NewArray[T tensor.DType](input any, attrs *Attrs) (*Array[T], error) {
	t, err := coerce[T](input)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		attrs = NewAttrs()
	}
	return &Array[T]{t: t, attrs: attrs}, nil
}

// FromSlice creates an array of the given shape from data, which is copied.
func FromSlice[T tensor.DType](data []T, shape tensor.Shape, attrs *Attrs) (*Array[T], error) {
	t, err := tensor.FromSlice(data, shape)
	if err != nil {
		return nil, &CoercionError{Input: fmt.Sprintf("%T", data), Reason: err.Error()}
	}
	if attrs == nil {
		attrs = NewAttrs()
	}
	return &Array[T]{t: t, attrs: attrs}, nil
}

// Derive wraps a freshly derived host array and copies every allow-listed
// attribute of source onto it. A nil source, or one without attrs, yields an
// empty mapping. Values are deep-copied.
func Derive[T tensor.DType](t *tensor.Tensor[T], source AttributeSource) *Array[T] {
	out := &Array[T]{t: t}
	if source != nil {
		for _, name := range source.AllowedAttributes() {
			v, ok := source.Attr(name)
			if name == attrsName {
				if a, isAttrs := v.(*Attrs); ok && isAttrs {
					out.attrs = a.Clone()
				}
				continue
			}
			if !ok {
				v = NewAttrs()
			}
			out.extras = append(out.extras, extraAttr{name: name, value: cloneValue(v)})
		}
	}
	if out.attrs == nil {
		out.attrs = NewAttrs()
	}
	return out
}

// Attrs returns the attribute mapping. The mapping is owned by the array and
// may be modified in place.
func (a *Array[T]) Attrs() *Attrs {
	return a.attrs
}

// Attr returns the value of an allow-listed attribute.
func (a *Array[T]) Attr(name string) (any, bool) {
	if a == nil {
		return nil, false
	}
	if name == attrsName {
		return a.attrs, true
	}
	for _, e := range a.extras {
		if e.name == name {
			return e.value, true
		}
	}
	return nil, false
}

// AllowedAttributes returns the names that SetAttr accepts, in slot order.
func (a *Array[T]) AllowedAttributes() []string {
	if a == nil {
		return []string{attrsName}
	}
	names := make([]string, 0, 1+len(a.extras))
	names = append(names, attrsName)
	for _, e := range a.extras {
		names = append(names, e.name)
	}
	return names
}

// SetAttr sets an allow-listed attribute.
//
// "attrs" accepts an attribute mapping: *Attrs (kept by reference), a Getter
// or a string-keyed Go map (copied). Other names succeed only if they were
// allow-listed when the array was restored; anything else fails with
// *DisallowedAttributeError.
func (a *Array[T]) SetAttr(name string, value any) error {
	if name == attrsName {
		attrs, ok := toAttrs(value)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrAttrsType, value)
		}
		a.attrs = attrs
		return nil
	}
	for i := range a.extras {
		if a.extras[i].name == name {
			a.extras[i].value = value
			return nil
		}
	}
	return &DisallowedAttributeError{Name: name, Allowed: a.AllowedAttributes()}
}

// Tensor returns the underlying host array. It shares storage with a.
func (a *Array[T]) Tensor() *tensor.Tensor[T] {
	return a.t
}

// Shape returns the array's shape.
func (a *Array[T]) Shape() tensor.Shape {
	return a.t.Shape()
}

// DType returns the element type.
func (a *Array[T]) DType() tensor.DataType {
	return a.t.DType()
}

// NDim returns the number of dimensions.
func (a *Array[T]) NDim() int {
	return a.t.NDim()
}

// Len returns the length of the first axis (0 for a scalar).
func (a *Array[T]) Len() int {
	return a.t.Len()
}

// NumElements returns the total number of elements.
func (a *Array[T]) NumElements() int {
	return a.t.NumElements()
}

// At returns the element at the given indices. Negative indices count from the end.
func (a *Array[T]) At(indices ...int) T {
	return a.t.At(indices...)
}

// Set stores value at the given indices.
func (a *Array[T]) Set(value T, indices ...int) {
	a.t.Set(value, indices...)
}

// Item returns the single element of a one-element array.
func (a *Array[T]) Item() T {
	return a.t.Item()
}

// Values returns a row-major copy of the elements.
func (a *Array[T]) Values() []T {
	return a.t.Values()
}

// All iterates over elements in row-major order.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return a.t.All()
}

// Equal reports whether both arrays have the same shape and elements.
// Attributes are not compared.
func (a *Array[T]) Equal(other *Array[T]) bool {
	return a.t.Equal(other.t)
}

// String renders the elements, e.g. [[1 2] [3 4]].
func (a *Array[T]) String() string {
	return a.t.String()
}

// Slice selects a sub-view, one Range per leading axis.
func (a *Array[T]) Slice(ranges ...tensor.Range) (*Array[T], error) {
	t, err := a.t.Slice(ranges...)
	if err != nil {
		return nil, err
	}
	return Derive(t, a), nil
}

// Index selects position i of the first axis, dropping that axis.
func (a *Array[T]) Index(i int) (*Array[T], error) {
	t, err := a.t.Index(i)
	if err != nil {
		return nil, err
	}
	return Derive(t, a), nil
}

// Reshape returns the array with new dimensions. One dimension may be -1.
func (a *Array[T]) Reshape(dims ...int) (*Array[T], error) {
	t, err := a.t.Reshape(dims...)
	if err != nil {
		return nil, err
	}
	return Derive(t, a), nil
}

// Transpose permutes the axes. With no arguments the axes are reversed.
func (a *Array[T]) Transpose(axes ...int) (*Array[T], error) {
	t, err := a.t.Transpose(axes...)
	if err != nil {
		return nil, err
	}
	return Derive(t, a), nil
}

// Flatten returns a 1-D array.
func (a *Array[T]) Flatten() *Array[T] {
	return Derive(a.t.Flatten(), a)
}

// Copy returns an array with its own storage and copied attributes.
func (a *Array[T]) Copy() *Array[T] {
	return Derive(a.t.Copy(), a)
}

// Map applies f to every element.
func (a *Array[T]) Map(f func(T) T) *Array[T] {
	return Derive(tensor.Map(a.t, f), a)
}

// MapTo applies f to every element, producing a new element type.
func MapTo[T, U tensor.DType](a *Array[T], f func(T) U) *Array[U] {
	return Derive(tensor.MapTo(a.t, f), a)
}

// Cast converts the elements to another numeric type.
func Cast[T, U tensor.Numeric](a *Array[T]) *Array[U] {
	return Derive(tensor.Cast[T, U](a.t), a)
}

// Add returns a + b with broadcasting. The result carries a's attributes.
func Add[T tensor.Numeric](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b.t, tensor.Add[T])
}

// Sub returns a - b with broadcasting.
func Sub[T tensor.Numeric](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b.t, tensor.Sub[T])
}

// Mul returns a * b with broadcasting.
func Mul[T tensor.Numeric](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b.t, tensor.Mul[T])
}

// Div returns a / b with broadcasting. Integer division by zero is an error.
func Div[T tensor.Numeric](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b.t, tensor.Div[T])
}

// AddScalar adds s to every element.
func AddScalar[T tensor.Numeric](a *Array[T], s T) (*Array[T], error) {
	return binary(a, tensor.Scalar(s), tensor.Add[T])
}

// SubScalar subtracts s from every element.
func SubScalar[T tensor.Numeric](a *Array[T], s T) (*Array[T], error) {
	return binary(a, tensor.Scalar(s), tensor.Sub[T])
}

// MulScalar multiplies every element by s.
func MulScalar[T tensor.Numeric](a *Array[T], s T) (*Array[T], error) {
	return binary(a, tensor.Scalar(s), tensor.Mul[T])
}

// DivScalar divides every element by s.
func DivScalar[T tensor.Numeric](a *Array[T], s T) (*Array[T], error) {
	return binary(a, tensor.Scalar(s), tensor.Div[T])
}

func binary[T tensor.Numeric](a *Array[T], b *tensor.Tensor[T], op func(x, y *tensor.Tensor[T]) (*tensor.Tensor[T], error)) (*Array[T], error) {
	t, err := op(a.t, b)
	if err != nil {
		return nil, err
	}
	return Derive(t, a), nil
}

// Sum returns the sum of all elements.
func Sum[T tensor.Numeric](a *Array[T]) T {
	return tensor.Sum(a.t)
}

// Mean returns the arithmetic mean. An empty array is an error.
func Mean[T tensor.Numeric](a *Array[T]) (float64, error) {
	return tensor.Mean(a.t)
}

// Min returns the smallest element. An empty array is an error.
func Min[T tensor.Numeric](a *Array[T]) (T, error) {
	return tensor.Min(a.t)
}

// Max returns the largest element. An empty array is an error.
func Max[T tensor.Numeric](a *Array[T]) (T, error) {
	return tensor.Max(a.t)
}

// SumAxis sums along axis, keeping it with size 1 when keepDim is set.
func SumAxis[T tensor.Numeric](a *Array[T], axis int, keepDim bool) (*Array[T], error) {
	t, err := tensor.SumAxis(a.t, axis, keepDim)
	if err != nil {
		return nil, err
	}
	return Derive(t, a), nil
}

// MarshalJSON encodes the array as {"dtype", "shape", "values", "attrs"}.
// Extra attributes are included under their names when present.
func (a *Array[T]) MarshalJSON() ([]byte, error) {
	var values any = a.Values()
	if a.DType() == tensor.Uint8 {
		// Keep uint8 data numeric rather than base64.
		ints := make([]uint64, 0, a.NumElements())
		for _, v := range a.All() {
			ints = append(ints, reflect.ValueOf(v).Uint())
		}
		values = ints
	}

	type wire struct {
		DType  string         `json:"dtype"`
		Shape  []int          `json:"shape"`
		Values any            `json:"values"`
		Attrs  *Attrs         `json:"attrs"`
		Extras map[string]any `json:"extras,omitempty"`
	}
	w := wire{
		DType:  a.DType().String(),
		Shape:  []int(a.Shape()),
		Values: values,
		Attrs:  a.attrs,
	}
	if len(a.extras) > 0 {
		w.Extras = make(map[string]any, len(a.extras))
		for _, e := range a.extras {
			w.Extras[e.name] = e.value
		}
	}
	return json.Marshal(w)
}

// coerce converts array-like input to a host array of T.
func coerce[T tensor.DType](input any) (*tensor.Tensor[T], error) {
	switch x := input.(type) {
	case nil:
		return nil, &CoercionError{Input: "nil", Reason: "no data"}
	case *Array[T]:
		if x == nil {
			return nil, &CoercionError{Input: fmt.Sprintf("%T", input), Reason: "nil array"}
		}
		return x.t, nil
	case *tensor.Tensor[T]:
		if x == nil {
			return nil, &CoercionError{Input: fmt.Sprintf("%T", input), Reason: "nil tensor"}
		}
		return x, nil
	case T:
		return tensor.Scalar(x), nil
	case []T:
		return tensor.FromSlice(x, tensor.Shape{len(x)})
	}

	rv := reflect.ValueOf(input)
	shape, err := inferShape(rv)
	if err != nil {
		return nil, &CoercionError{Input: fmt.Sprintf("%T", input), Reason: err.Error()}
	}
	data, err := flatten(rv, shape, make([]T, 0, shape.NumElements()))
	if err != nil {
		return nil, &CoercionError{Input: fmt.Sprintf("%T", input), Reason: err.Error()}
	}
	if len(shape) == 0 {
		return tensor.Scalar(data[0]), nil
	}
	return tensor.FromSlice(data, shape)
}

// inferShape follows the first element of each nesting level.
func inferShape(v reflect.Value) (tensor.Shape, error) {
	shape := tensor.Shape{}
	for {
		v = unwrapInterface(v)
		if !v.IsValid() {
			return nil, fmt.Errorf("nil element")
		}
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			shape = append(shape, v.Len())
			if v.Len() == 0 {
				return shape, nil
			}
			v = v.Index(0)
		default:
			if !isLeafKind(v.Kind()) {
				return nil, fmt.Errorf("unsupported element type %s", v.Type())
			}
			return shape, nil
		}
	}
}

// flatten appends the leaves of v in row-major order, checking that every
// nesting level matches shape.
func flatten[T tensor.DType](v reflect.Value, shape tensor.Shape, data []T) ([]T, error) {
	v = unwrapInterface(v)
	if !v.IsValid() {
		return nil, fmt.Errorf("nil element")
	}
	if len(shape) == 0 {
		if !isLeafKind(v.Kind()) {
			return nil, fmt.Errorf("ragged input: expected a number, got %s", v.Type())
		}
		return append(data, convertLeaf[T](v)), nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("ragged input: expected a sequence of length %d, got %s", shape[0], v.Type())
	}
	if v.Len() != shape[0] {
		return nil, fmt.Errorf("ragged input: expected length %d, got %d", shape[0], v.Len())
	}
	var err error
	for i := range v.Len() {
		if data, err = flatten(v.Index(i), shape[1:], data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v
}

func isLeafKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// convertLeaf converts a numeric or bool value to T with Go conversion rules;
// bools become 0/1 and numbers become true when non-zero.
func convertLeaf[T tensor.DType](v reflect.Value) T {
	out := reflect.New(reflect.TypeFor[T]()).Elem()
	var f float64
	var isFloat bool
	var i int64
	var u uint64
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			i, u, f = 1, 1, 1
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i = v.Int()
		u, f = uint64(i), float64(i) //nolint:gosec // G115: wraps like a Go conversion
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u = v.Uint()
		i, f = int64(u), float64(u) //nolint:gosec // G115: wraps like a Go conversion
	default:
		f, isFloat = v.Float(), true
		i, u = int64(f), uint64(f)
	}

	switch out.Kind() {
	case reflect.Bool:
		out.SetBool(f != 0)
	case reflect.Float32, reflect.Float64:
		out.SetFloat(f)
	case reflect.Int32, reflect.Int64:
		out.SetInt(i)
	case reflect.Uint8:
		if isFloat {
			u = uint64(int64(f)) //nolint:gosec // G115: wraps like a Go conversion
		}
		out.SetUint(u)
	}
	return out.Interface().(T)
}

// extraName returns the synthesized name of positional attribute slot n.
func extraName(n int) string {
	return extraAttrPrefix + strconv.Itoa(n)
}
