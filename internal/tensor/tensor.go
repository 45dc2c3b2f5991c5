package tensor

import (
	"fmt"
	"iter"
	"strings"
)

// Tensor is a typed, strided view over a shared element buffer.
//
// Views produced by Slice, Index, Transpose and (for contiguous data) Reshape
// share storage with their source; writes through one are visible in the
// other, as with NumPy views. Copy and Contiguous materialize new storage.
type Tensor[T DType] struct {
	data    []T   // Shared storage
	shape   Shape // Array dimensions
	strides []int // Strides in elements (row-major for fresh arrays)
	offset  int   // Offset of element [0, ..., 0] in data
}

// Zeros creates a tensor filled with zero values.
func Zeros[T DType](shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Tensor[T]{
		data:    make([]T, shape.NumElements()),
		shape:   shape.Clone(),
		strides: shape.ComputeStrides(),
	}, nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType](data []T, shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	copy(t.data, data)
	return t, nil
}

// Scalar creates a 0-dimensional tensor holding v.
func Scalar[T DType](v T) *Tensor[T] {
	return &Tensor[T]{data: []T{v}, shape: Shape{}, strides: []int{}}
}

// Full creates a tensor filled with a specific value.
func Full[T DType](shape Shape, value T) (*Tensor[T], error) {
	t, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	for i := range t.data {
		t.data[i] = value
	}
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T]) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's strides in elements.
func (t *Tensor[T]) Strides() []int {
	return t.strides
}

// DType returns the tensor's data type.
func (t *Tensor[T]) DType() DataType {
	return DataTypeOf[T]()
}

// NDim returns the number of dimensions.
func (t *Tensor[T]) NDim() int {
	return len(t.shape)
}

// NumElements returns the total number of elements.
func (t *Tensor[T]) NumElements() int {
	return t.shape.NumElements()
}

// Len returns the size of the first dimension, or 0 for a scalar.
func (t *Tensor[T]) Len() int {
	if len(t.shape) == 0 {
		return 0
	}
	return t.shape[0]
}

// IsContiguous reports whether elements are laid out in row-major order
// without gaps. Dimensions of size 1 do not affect contiguity.
func (t *Tensor[T]) IsContiguous() bool {
	expected := 1
	for i := len(t.shape) - 1; i >= 0; i-- {
		if t.shape[i] == 1 {
			continue
		}
		if t.strides[i] != expected {
			return false
		}
		expected *= t.shape[i]
	}
	return true
}

// SharesMemory reports whether t and other are views over the same storage.
func (t *Tensor[T]) SharesMemory(other *Tensor[T]) bool {
	if len(t.data) == 0 || len(other.data) == 0 {
		return false
	}
	return &t.data[0] == &other.data[0]
}

// flatOffset maps a multi-index to a storage position.
// Panics if indices are out of bounds.
func (t *Tensor[T]) flatOffset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}
	offset := t.offset
	for i, idx := range indices {
		dim := t.shape[i]
		if idx < 0 {
			idx += dim
		}
		if idx < 0 || idx >= dim {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", indices[i], i, dim))
		}
		offset += idx * t.strides[i]
	}
	return offset
}

// storageIndex maps a row-major element number to a storage position.
func (t *Tensor[T]) storageIndex(n int) int {
	offset := t.offset
	for i := len(t.shape) - 1; i >= 0; i-- {
		dim := t.shape[i]
		offset += (n % dim) * t.strides[i]
		n /= dim
	}
	return offset
}

// At returns the element at the given indices.
// Negative indices count from the end of their dimension.
// Panics if indices are out of bounds.
//
// Example:
//
//	t, _ := tensor.Zeros[float32](Shape{3, 4})
//	value := t.At(1, 2) // Row 1, column 2
func (t *Tensor[T]) At(indices ...int) T {
	return t.data[t.flatOffset(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) Set(value T, indices ...int) {
	t.data[t.flatOffset(indices)] = value
}

// Item returns the value of a single-element tensor.
func (t *Tensor[T]) Item() T {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("Item() only works for single-element tensors, got shape %v", t.shape))
	}
	return t.data[t.offset]
}

// All iterates over elements in row-major order.
func (t *Tensor[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		n := t.NumElements()
		contiguous := t.IsContiguous()
		for i := 0; i < n; i++ {
			var v T
			if contiguous {
				v = t.data[t.offset+i]
			} else {
				v = t.data[t.storageIndex(i)]
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// Values returns a row-major copy of the elements.
func (t *Tensor[T]) Values() []T {
	n := t.NumElements()
	out := make([]T, n)
	if t.IsContiguous() {
		copy(out, t.data[t.offset:t.offset+n])
		return out
	}
	for i := range out {
		out[i] = t.data[t.storageIndex(i)]
	}
	return out
}

// Copy returns a contiguous deep copy.
func (t *Tensor[T]) Copy() *Tensor[T] {
	return &Tensor[T]{
		data:    t.Values(),
		shape:   t.shape.Clone(),
		strides: t.shape.ComputeStrides(),
	}
}

// Contiguous returns t itself when it is already contiguous, otherwise a copy.
func (t *Tensor[T]) Contiguous() *Tensor[T] {
	if t.IsContiguous() {
		return t
	}
	return t.Copy()
}

// Equal reports whether both tensors have the same shape and elements.
func (t *Tensor[T]) Equal(other *Tensor[T]) bool {
	if other == nil || !t.shape.Equal(other.shape) {
		return false
	}
	a, b := t.Values(), other.Values()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String returns a NumPy-like rendering of the elements.
func (t *Tensor[T]) String() string {
	if len(t.shape) == 0 {
		return fmt.Sprint(t.Item())
	}
	var sb strings.Builder
	values := t.Values()
	t.format(&sb, values, 0)
	return sb.String()
}

func (t *Tensor[T]) format(sb *strings.Builder, values []T, dim int) {
	sb.WriteByte('[')
	if dim == len(t.shape)-1 {
		for i, v := range values {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprint(sb, v)
		}
		sb.WriteByte(']')
		return
	}
	n := t.shape[dim]
	step := 0
	if n > 0 {
		step = len(values) / n
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		t.format(sb, values[i*step:(i+1)*step], dim+1)
	}
	sb.WriteByte(']')
}
