// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"math"
	"testing"

	"github.com/born-ml/spacedata/tensor"
)

// TestTensorAPI verifies the Tensor alias exposes the expected API.
func TestTensorAPI(t *testing.T) {
	x, err := tensor.FromSlice([]float64{1, 4, 9, 16}, tensor.Shape{2, 2})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	if !x.Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("Shape() = %v, want [2 2]", x.Shape())
	}
	if x.DType() != tensor.Float64 {
		t.Errorf("DType() = %v, want Float64", x.DType())
	}

	col, err := x.Slice(tensor.All(), tensor.To(1))
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if !col.Shape().Equal(tensor.Shape{2, 1}) || col.At(1, 0) != 9 {
		t.Errorf("unexpected column view %v", col)
	}

	y := tensor.Map(x, math.Sqrt)
	if y.At(1, 1) != 4 {
		t.Errorf("Map result At(1, 1) = %v, want 4", y.At(1, 1))
	}

	z := tensor.Cast[float64, uint8](y)
	if z.DType() != tensor.Uint8 {
		t.Errorf("Cast result DType() = %v, want Uint8", z.DType())
	}
}

// TestDataTypeHelpers verifies data type helpers round trip.
func TestDataTypeHelpers(t *testing.T) {
	dt, err := tensor.ParseDataType("int32")
	if err != nil {
		t.Fatalf("ParseDataType failed: %v", err)
	}
	if dt != tensor.DataTypeOf[int32]() {
		t.Errorf("ParseDataType(int32) = %v, want Int32", dt)
	}

	full, err := tensor.Full(tensor.Shape{2}, true)
	if err != nil {
		t.Fatal(err)
	}
	if !full.At(1) {
		t.Error("Full should fill every element")
	}
}
