package tensor

import (
	"testing"
)

func TestSlice(t *testing.T) {
	base := mustFromSlice(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, Shape{10})

	tests := []struct {
		name string
		r    Range
		want []int64
	}{
		{"full", All(), []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"span", Span(2, 5), []int64{2, 3, 4}},
		{"from negative", From(-3), []int64{7, 8, 9}},
		{"to", To(2), []int64{0, 1}},
		{"step", All().Step(3), []int64{0, 3, 6, 9}},
		{"reverse", All().Step(-1), []int64{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{"reverse span", Span(7, 2).Step(-2), []int64{7, 5, 3}},
		{"clamped", Span(-100, 100), []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"empty", Span(5, 5), []int64{}},
		{"inverted", Span(6, 2), []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := base.Slice(tt.r)
			if err != nil {
				t.Fatalf("Slice failed: %v", err)
			}
			assertValues(t, tt.want, view)
		})
	}
}

func TestSliceZeroStep(t *testing.T) {
	base := mustFromSlice(t, []int64{1, 2, 3}, Shape{3})
	if _, err := base.Slice(All().Step(0)); err == nil {
		t.Error("expected error for zero step")
	}
}

func TestSliceIsView(t *testing.T) {
	base := mustFromSlice(t, []float64{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	view, err := base.Slice(All(), From(1))
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{2, 2}, view.Shape(), "slice")
	assertValues(t, []float64{2, 3, 5, 6}, view)

	view.Set(42, 1, 0)
	if base.At(1, 1) != 42 {
		t.Errorf("write through view not visible in base: %v", base)
	}
	if !view.SharesMemory(base) {
		t.Error("slice should share memory with its base")
	}
	if view.IsContiguous() {
		t.Error("column slice should not be contiguous")
	}
}

func TestSliceTooManyRanges(t *testing.T) {
	base := mustFromSlice(t, []float64{1, 2}, Shape{2})
	if _, err := base.Slice(All(), All()); err == nil {
		t.Error("expected error for too many ranges")
	}
}

func TestIndex(t *testing.T) {
	base := mustFromSlice(t, []int32{1, 2, 3, 4, 5, 6}, Shape{3, 2})

	row, err := base.Index(-1)
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{2}, row.Shape(), "index")
	assertValues(t, []int32{5, 6}, row)

	elem, err := row.Index(0)
	if err != nil {
		t.Fatal(err)
	}
	if elem.NDim() != 0 || elem.Item() != 5 {
		t.Errorf("expected scalar 5, got %v", elem)
	}

	if _, err := base.Index(3); err == nil {
		t.Error("expected out of bounds error")
	}
	if _, err := elem.Index(0); err == nil {
		t.Error("expected error indexing a scalar")
	}
}

func TestReshape(t *testing.T) {
	base := mustFromSlice(t, []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, Shape{12})

	r, err := base.Reshape(3, -1)
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{3, 4}, r.Shape(), "reshape")
	if r.At(2, 1) != 9 {
		t.Errorf("At(2, 1) = %v, want 9", r.At(2, 1))
	}
	if !r.SharesMemory(base) {
		t.Error("reshape of contiguous data should be a view")
	}

	if _, err := base.Reshape(5, -1); err == nil {
		t.Error("expected error for incompatible shape")
	}
	if _, err := base.Reshape(-1, -1); err == nil {
		t.Error("expected error for two unknown dimensions")
	}
}

func TestReshapeNonContiguousCopies(t *testing.T) {
	base := mustFromSlice(t, []int32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	tr, err := base.Transpose()
	if err != nil {
		t.Fatal(err)
	}

	flat := tr.Flatten()
	assertValues(t, []int32{1, 4, 2, 5, 3, 6}, flat)
	if flat.SharesMemory(base) {
		t.Error("flattening a transposed view must copy")
	}
}

func TestTranspose(t *testing.T) {
	base, err := Zeros[float32](Shape{2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	base.Set(7, 1, 2, 3)

	tr, err := base.Transpose(2, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	assertEqualShape(t, Shape{4, 2, 3}, tr.Shape(), "transpose")
	if tr.At(3, 1, 2) != 7 {
		t.Errorf("At(3, 1, 2) = %v, want 7", tr.At(3, 1, 2))
	}

	if _, err := base.Transpose(0, 0, 1); err == nil {
		t.Error("expected error for repeated axis")
	}
	if _, err := base.Transpose(0, 1); err == nil {
		t.Error("expected error for wrong axis count")
	}
}
