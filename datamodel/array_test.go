// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"errors"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/spacedata/internal/tensor"
)

func gsmArray(t *testing.T) *Array[int64] {
	t.Helper()
	a, err := NewArray[int64]([]int64{1, 2, 3}, NewAttrs("coord_system", "GSM"))
	require.NoError(t, err)
	return a
}

func TestNewArrayKeepsAttrs(t *testing.T) {
	m := NewAttrs("units", "nT")
	a, err := NewArray[float64]([]float64{1.5, 2.5}, m)
	require.NoError(t, err)
	assert.Same(t, m, a.Attrs())
	assert.True(t, a.Attrs().Equal(NewAttrs("units", "nT")))
}

func TestNewArrayDefaultsToEmptyAttrs(t *testing.T) {
	a, err := NewArray[float64]([]float64{1}, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Attrs())
	assert.Equal(t, 0, a.Attrs().Len())
	assert.Equal(t, []string{"attrs"}, a.AllowedAttributes())
}

func TestArrayBehavesAsSequence(t *testing.T) {
	a := gsmArray(t)

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, tensor.Shape{3}, a.Shape())
	assert.Equal(t, tensor.Int64, a.DType())
	assert.Equal(t, int64(2), a.At(1))
	assert.Equal(t, int64(3), a.At(-1))
	assert.Equal(t, "[1 2 3]", a.String())

	var got []int64
	for _, v := range a.All() {
		got = append(got, v)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)

	v, _ := a.Attrs().Get("coord_system")
	assert.Equal(t, "GSM", v)
}

func TestNewArrayCoercion(t *testing.T) {
	t.Run("nested slices", func(t *testing.T) {
		a, err := NewArray[float64]([][]int{{1, 2, 3}, {4, 5, 6}}, nil)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{2, 3}, a.Shape())
		assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, a.Values())
	})

	t.Run("mixed interface values", func(t *testing.T) {
		a, err := NewArray[float64]([]any{1, 2.5, uint8(3)}, nil)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2.5, 3}, a.Values())
	})

	t.Run("go arrays", func(t *testing.T) {
		a, err := NewArray[int32]([2][2]float64{{1.9, -1.9}, {0, 3}}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int32{1, -1, 0, 3}, a.Values())
	})

	t.Run("bools", func(t *testing.T) {
		a, err := NewArray[bool]([]int{0, 2, -1}, nil)
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true, true}, a.Values())

		b, err := NewArray[uint8]([]bool{true, false}, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint8{1, 0}, b.Values())
	})

	t.Run("scalar", func(t *testing.T) {
		a, err := NewArray[float64](2.5, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, a.NDim())
		assert.Equal(t, 2.5, a.Item())

		b, err := NewArray[float64](7, nil)
		require.NoError(t, err)
		assert.Equal(t, 7.0, b.Item())
	})

	t.Run("empty", func(t *testing.T) {
		a, err := NewArray[float64]([]float64{}, nil)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{0}, a.Shape())
	})

	for name, input := range map[string]any{
		"nil":     nil,
		"strings": []string{"a", "b"},
		"ragged":  [][]int{{1, 2}, {3}},
		"depth":   []any{[]int{1}, 2},
		"struct":  struct{ X int }{1},
		"nil elt": []any{1, nil},
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := NewArray[float64](input, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCoercion)
			var cErr *CoercionError
			assert.True(t, errors.As(err, &cErr))
		})
	}
}

func TestNewArrayViewsExistingData(t *testing.T) {
	a := gsmArray(t)
	b, err := NewArray[int64](a, nil)
	require.NoError(t, err)

	b.Set(100, 0)
	assert.Equal(t, int64(100), a.At(0))
	assert.Equal(t, 0, b.Attrs().Len())

	raw, err := tensor.FromSlice([]int64{5, 6}, tensor.Shape{2})
	require.NoError(t, err)
	c, err := NewArray[int64](raw, nil)
	require.NoError(t, err)
	assert.Same(t, raw, c.Tensor())
}

func TestFromSlice(t *testing.T) {
	a, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}, NewAttrs("k", "v"))
	require.NoError(t, err)
	assert.Equal(t, float32(4), a.At(1, 1))

	_, err = FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, nil)
	assert.ErrorIs(t, err, ErrCoercion)
}

func TestSetAttr(t *testing.T) {
	a := gsmArray(t)

	err := a.SetAttr("foo", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowedAttribute)
	var dErr *DisallowedAttributeError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, "foo", dErr.Name)
	assert.Equal(t, []string{"attrs"}, dErr.Allowed)

	require.NoError(t, a.SetAttr("attrs", NewAttrs()))
	assert.Equal(t, 0, a.Attrs().Len())

	require.NoError(t, a.SetAttr("attrs", map[string]any{"units": "km"}))
	v, _ := a.Attrs().Get("units")
	assert.Equal(t, "km", v)

	assert.ErrorIs(t, a.SetAttr("attrs", 5), ErrAttrsType)
	assert.ErrorIs(t, a.SetAttr("extra_attr_1", "x"), ErrDisallowedAttribute)
}

func TestDerivationCarriesAttrs(t *testing.T) {
	base, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, NewAttrs("k", "v"))
	require.NoError(t, err)
	want := NewAttrs("k", "v")

	derive := map[string]func() (*Array[float64], error){
		"slice":      func() (*Array[float64], error) { return base.Slice(tensor.All(), tensor.From(1)) },
		"index":      func() (*Array[float64], error) { return base.Index(1) },
		"reshape":    func() (*Array[float64], error) { return base.Reshape(3, -1) },
		"transpose":  func() (*Array[float64], error) { return base.Transpose() },
		"flatten":    func() (*Array[float64], error) { return base.Flatten(), nil },
		"copy":       func() (*Array[float64], error) { return base.Copy(), nil },
		"map":        func() (*Array[float64], error) { return base.Map(math.Sqrt), nil },
		"add":        func() (*Array[float64], error) { return Add(base, base) },
		"sub scalar": func() (*Array[float64], error) { return SubScalar(base, 1) },
		"mul scalar": func() (*Array[float64], error) { return MulScalar(base, 2) },
		"div":        func() (*Array[float64], error) { return Div(base, base) },
		"sum axis":   func() (*Array[float64], error) { return SumAxis(base, 1, false) },
		"cast round trip": func() (*Array[float64], error) {
			return Cast[int32, float64](Cast[float64, int32](base)), nil
		},
	}

	for name, f := range derive {
		t.Run(name, func(t *testing.T) {
			d, err := f()
			require.NoError(t, err)
			assert.True(t, d.Attrs().Equal(want), "attrs = %v", d.Attrs())
			assert.NotSame(t, base.Attrs(), d.Attrs())
		})
	}

	flags := MapTo(base, func(v float64) bool { return v > 3 })
	assert.True(t, flags.Attrs().Equal(want))
	assert.Equal(t, []bool{false, false, false, true, true, true}, flags.Values())
}

func TestDerivedAttrsAreIndependent(t *testing.T) {
	base := gsmArray(t)
	base.Attrs().Set("labels", []string{"x", "y", "z"})

	view, err := base.Slice(tensor.To(2))
	require.NoError(t, err)

	view.Attrs().Set("coord_system", "GSE")
	labels, _ := view.Attrs().Get("labels")
	labels.([]string)[0] = "changed"

	v, _ := base.Attrs().Get("coord_system")
	assert.Equal(t, "GSM", v)
	baseLabels, _ := base.Attrs().Get("labels")
	assert.Equal(t, []string{"x", "y", "z"}, baseLabels)

	base.Attrs().Set("coord_system", "SM")
	v, _ = view.Attrs().Get("coord_system")
	assert.Equal(t, "GSE", v)
}

func TestSliceSharesStorage(t *testing.T) {
	base := gsmArray(t)
	view, err := base.Slice(tensor.From(1))
	require.NoError(t, err)

	view.Set(20, 0)
	assert.Equal(t, []int64{1, 20, 3}, base.Values())
}

func TestDerive(t *testing.T) {
	raw, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2})
	require.NoError(t, err)

	assert.Equal(t, 0, Derive(raw, nil).Attrs().Len())

	var missing *Array[float64]
	assert.Equal(t, 0, Derive(raw, missing).Attrs().Len())

	src := &Array[int64]{
		t:      tensor.Scalar[int64](1),
		attrs:  NewAttrs("units", "nT"),
		extras: []extraAttr{{name: "extra_attr_1", value: []any{"a"}}},
	}
	d := Derive(raw, src)
	d2 := Derive(raw, src) // idempotent
	assert.Equal(t, []string{"attrs", "extra_attr_1"}, d.AllowedAttributes())
	assert.True(t, d.Attrs().Equal(d2.Attrs()))

	extra, ok := d.Attr("extra_attr_1")
	require.True(t, ok)
	assert.Equal(t, []any{"a"}, extra)
	extra.([]any)[0] = "b"
	orig, _ := src.Attr("extra_attr_1")
	assert.Equal(t, []any{"a"}, orig)

	require.NoError(t, d.SetAttr("extra_attr_1", 42))
	got, _ := d.Attr("extra_attr_1")
	assert.Equal(t, 42, got)
}

func TestArithmetic(t *testing.T) {
	col, err := FromSlice([]int64{1, 2, 3}, tensor.Shape{3, 1}, NewAttrs("side", "left"))
	require.NoError(t, err)
	row, err := FromSlice([]int64{10, 20}, tensor.Shape{2}, NewAttrs("side", "right"))
	require.NoError(t, err)

	sum, err := Add(col, row)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, sum.Shape())
	assert.Equal(t, []int64{11, 21, 12, 22, 13, 23}, sum.Values())
	side, _ := sum.Attrs().Get("side")
	assert.Equal(t, "left", side)

	diff, err := Sub(row, col)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 19, 8, 18, 7, 17}, diff.Values())

	prod, err := Mul(col, row)
	require.NoError(t, err)
	assert.Equal(t, int64(60), prod.At(2, 1))

	plus, err := AddScalar(row, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{15, 25}, plus.Values())

	half, err := DivScalar(row, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 10}, half.Values())

	_, err = DivScalar(row, 0)
	assert.Error(t, err)

	bad, err := FromSlice([]int64{1, 2, 3}, tensor.Shape{3}, nil)
	require.NoError(t, err)
	_, err = Add(row, bad)
	assert.Error(t, err)
}

func TestReductions(t *testing.T) {
	a, err := FromSlice([]float64{3, -1, 4, 1, 5, 9}, tensor.Shape{2, 3}, nil)
	require.NoError(t, err)

	assert.Equal(t, 21.0, Sum(a))
	mean, err := Mean(a)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, mean, 1e-12)
	lo, err := Min(a)
	require.NoError(t, err)
	assert.Equal(t, -1.0, lo)
	hi, err := Max(a)
	require.NoError(t, err)
	assert.Equal(t, 9.0, hi)

	cols, err := SumAxis(a, 0, true)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3}, cols.Shape())
	assert.Equal(t, []float64{4, 4, 13}, cols.Values())

	empty, err := NewArray[float64]([]float64{}, nil)
	require.NoError(t, err)
	_, err = Mean(empty)
	assert.Error(t, err)
	_, err = Max(empty)
	assert.Error(t, err)
}

func TestCastTruncates(t *testing.T) {
	a, err := NewArray[float64]([]float64{1.9, -2.7, 0.2}, NewAttrs("units", "m"))
	require.NoError(t, err)
	i := Cast[float64, int64](a)
	assert.Equal(t, []int64{1, -2, 0}, i.Values())
	assert.Equal(t, tensor.Int64, i.DType())
	assert.True(t, i.Attrs().Equal(a.Attrs()))
}

func TestArrayEqualIgnoresAttrs(t *testing.T) {
	a := gsmArray(t)
	b, err := NewArray[int64]([]int64{1, 2, 3}, nil)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	b.Set(0, 0)
	assert.False(t, a.Equal(b))
}

func TestArrayMarshalJSON(t *testing.T) {
	a, err := FromSlice([]uint8{1, 2, 3, 4}, tensor.Shape{2, 2}, NewAttrs("units", "counts"))
	require.NoError(t, err)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dtype":"uint8","shape":[2,2],"values":[1,2,3,4],"attrs":{"units":"counts"}}`, string(data))
}
