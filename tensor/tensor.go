// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the numeric arrays that
// attributed containers in package datamodel wrap.
//
// The package re-exports the core types:
//   - Tensor[T]: typed strided array with NumPy-style views
//   - Shape, DataType: core type definitions
//   - Range: Python-style slice selections
//
// Example:
//
//	x, _ := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})
//	col, _ := x.Slice(tensor.All(), tensor.Span(0, 1)) // view, shape [2 1]
//	y := tensor.Map(x, math.Sqrt)
package tensor

import (
	"github.com/born-ml/spacedata/internal/tensor"
)

// DType is a constraint for element types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// Numeric is the subset of DType that supports arithmetic.
type Numeric = tensor.Numeric

// DataType represents the runtime element type of an array.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of an array.
// Example: Shape{2, 3, 4} represents a 3D array with dimensions 2×3×4.
type Shape = tensor.Shape

// Range selects elements along one axis with Python slice semantics.
type Range = tensor.Range

// Tensor is a typed, strided array view.
type Tensor[T DType] = tensor.Tensor[T]

// ParseDataType converts a data type name such as "float64" to a DataType.
func ParseDataType(s string) (DataType, error) {
	return tensor.ParseDataType(s)
}

// DataTypeOf returns the DataType for the element type T.
func DataTypeOf[T DType]() DataType {
	return tensor.DataTypeOf[T]()
}

// Zeros creates an array filled with zero values.
func Zeros[T DType](shape Shape) (*Tensor[T], error) {
	return tensor.Zeros[T](shape)
}

// Full creates an array filled with value.
func Full[T DType](shape Shape, value T) (*Tensor[T], error) {
	return tensor.Full(shape, value)
}

// FromSlice creates an array from a Go slice. The slice is copied.
func FromSlice[T DType](data []T, shape Shape) (*Tensor[T], error) {
	return tensor.FromSlice(data, shape)
}

// Scalar creates a 0-dimensional array holding v.
func Scalar[T DType](v T) *Tensor[T] {
	return tensor.Scalar(v)
}

// All selects a whole axis.
func All() Range { return tensor.All() }

// Span selects [start, stop) along an axis.
func Span(start, stop int) Range { return tensor.Span(start, stop) }

// From selects [start, end of axis).
func From(start int) Range { return tensor.From(start) }

// To selects [0, stop).
func To(stop int) Range { return tensor.To(stop) }

// Map applies f to every element.
func Map[T DType](t *Tensor[T], f func(T) T) *Tensor[T] {
	return tensor.Map(t, f)
}

// Cast converts every element to another numeric type.
func Cast[T, U Numeric](t *Tensor[T]) *Tensor[U] {
	return tensor.Cast[T, U](t)
}
