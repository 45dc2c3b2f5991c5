// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/spacedata/internal/tensor"
)

// ToDense copies a 2-D array into a gonum matrix. Attributes are not carried;
// pass a back to FromDense to restore them on the way in.
func ToDense(a *Array[float64]) (*mat.Dense, error) {
	shape := a.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("to dense: expected 2-D array, got shape %v", shape)
	}
	if shape[0] == 0 || shape[1] == 0 {
		return nil, fmt.Errorf("to dense: zero-size shape %v", shape)
	}
	return mat.NewDense(shape[0], shape[1], a.Values()), nil
}

// FromDense copies a gonum matrix into a 2-D array, deriving its attributes
// from source (which may be nil).
func FromDense(m mat.Matrix, source AttributeSource) *Array[float64] {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := range r {
		for j := range c {
			data = append(data, m.At(i, j))
		}
	}
	t, err := tensor.FromSlice(data, tensor.Shape{r, c})
	if err != nil {
		// Dims of a gonum matrix always match the collected data.
		panic(fmt.Sprintf("from dense: %v", err))
	}
	return Derive(t, source)
}
