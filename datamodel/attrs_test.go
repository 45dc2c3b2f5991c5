// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAttrsBasics(t *testing.T) {
	a := NewAttrs("units", "nT", "coord_system", "GSM")
	a.Set("units", "km") // overwrite keeps position
	a.Set("FILLVAL", -1e31)

	assert.Equal(t, []string{"units", "coord_system", "FILLVAL"}, a.Keys())
	assert.Equal(t, 3, a.Len())
	assert.True(t, a.Has("coord_system"))

	v, ok := a.Get("units")
	require.True(t, ok)
	assert.Equal(t, "km", v)

	assert.True(t, a.Delete("coord_system"))
	assert.False(t, a.Delete("coord_system"))
	assert.Equal(t, "{units: km, FILLVAL: -1e+31}", a.String())
}

func TestAttrsNilReadsEmpty(t *testing.T) {
	var a *Attrs
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Keys())
	assert.False(t, a.Has("x"))
	assert.False(t, a.Delete("x"))
	_, ok := a.Get("x")
	assert.False(t, ok)
	for range a.All() {
		t.Fatal("nil Attrs must not yield entries")
	}
	assert.True(t, a.Equal(NewAttrs()))
	assert.Equal(t, 0, a.Clone().Len())
}

func TestNewAttrsPanicsOnBadPairs(t *testing.T) {
	assert.Panics(t, func() { NewAttrs("odd") })
	assert.Panics(t, func() { NewAttrs(1, "x") })
}

func TestAttrsCloneIsDeep(t *testing.T) {
	nested := NewAttrs("DEPEND_0", "Epoch")
	a := NewAttrs(
		"nested", nested,
		"valid", []float64{0, 100},
		"labels", map[string]any{"x": []string{"Bx", "By"}},
	)

	c := a.Clone()
	require.True(t, a.Equal(c))

	nested.Set("DEPEND_0", "Time")
	valid, _ := a.Get("valid")
	valid.([]float64)[0] = -1
	labels, _ := a.Get("labels")
	labels.(map[string]any)["x"].([]string)[0] = "changed"

	cn, _ := c.Get("nested")
	v, _ := cn.(*Attrs).Get("DEPEND_0")
	assert.Equal(t, "Epoch", v)

	cv, _ := c.Get("valid")
	assert.Equal(t, []float64{0, 100}, cv)

	cl, _ := c.Get("labels")
	assert.Equal(t, []string{"Bx", "By"}, cl.(map[string]any)["x"])
}

func TestAttrsEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  *Attrs
		equal bool
	}{
		{"order insensitive", NewAttrs("a", 1, "b", 2), NewAttrs("b", 2, "a", 1), true},
		{"numeric kinds", NewAttrs("n", 3), NewAttrs("n", int64(3)), true},
		{"int vs float", NewAttrs("n", 3), NewAttrs("n", 3.0), true},
		{"different value", NewAttrs("n", 3), NewAttrs("n", 4), false},
		{"missing key", NewAttrs("a", 1), NewAttrs("b", 1), false},
		{"different length", NewAttrs("a", 1), NewAttrs("a", 1, "b", 2), false},
		{"sequences", NewAttrs("v", []int{1, 2}), NewAttrs("v", []any{int64(1), 2.0}), true},
		{"nested map vs attrs", NewAttrs("m", map[string]any{"u": "nT"}), NewAttrs("m", NewAttrs("u", "nT")), true},
		{"string vs number", NewAttrs("v", "1"), NewAttrs("v", 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.b.Equal(tt.a))
		})
	}
}

func TestAttrsJSONKeepsOrder(t *testing.T) {
	a := NewAttrs(
		"zeta", "last-alphabetically",
		"alpha", 1,
		"nested", NewAttrs("y", true, "x", nil),
		"list", []any{1, "two", 3.5},
	)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"last-alphabetically","alpha":1,"nested":{"y":true,"x":null},"list":[1,"two",3.5]}`, string(data))

	var back Attrs
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"zeta", "alpha", "nested", "list"}, back.Keys())

	alpha, _ := back.Get("alpha")
	assert.Equal(t, int64(1), alpha)
	list, _ := back.Get("list")
	assert.Equal(t, []any{int64(1), "two", 3.5}, list)
	nested, _ := back.Get("nested")
	require.IsType(t, &Attrs{}, nested)
	assert.Equal(t, []string{"y", "x"}, nested.(*Attrs).Keys())

	assert.True(t, a.Equal(&back))
}

func TestAttrsUnmarshalJSONRejectsNonObject(t *testing.T) {
	var a Attrs
	err := json.Unmarshal([]byte(`[1,2]`), &a)
	assert.ErrorIs(t, err, ErrAttrsType)

	require.NoError(t, a.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, 0, a.Len())
}

func TestAttrsYAMLKeepsOrder(t *testing.T) {
	a := NewAttrs("units", "nT", "coord_system", "GSM", "scale", NewAttrs("min", -100, "max", 100))

	out, err := yaml.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, "units: nT\ncoord_system: GSM\nscale:\n    min: -100\n    max: 100\n", string(out))

	var back Attrs
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, []string{"units", "coord_system", "scale"}, back.Keys())
	assert.True(t, a.Equal(&back))

	assert.Error(t, yaml.Unmarshal([]byte("- a\n- b\n"), &back))
}

func TestToAttrs(t *testing.T) {
	own := NewAttrs("k", "v")
	got, ok := toAttrs(own)
	require.True(t, ok)
	assert.Same(t, own, got)

	got, ok = toAttrs(map[string]string{"b": "2", "a": "1"})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got.Keys())

	sd, err := NewSpaceData(WithEntry("x", 1))
	require.NoError(t, err)
	got, ok = toAttrs(sd)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, got.Keys())

	for _, bad := range []any{nil, 42, "str", []string{"a"}, map[int]string{1: "a"}} {
		_, ok := toAttrs(bad)
		assert.False(t, ok, "%T should not be an attribute mapping", bad)
	}
}
