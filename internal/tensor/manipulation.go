package tensor

import (
	"errors"
	"fmt"
)

// Range selects elements along one axis with Python slice semantics:
// negative bounds count from the end, out-of-range bounds are clamped and a
// negative step walks backwards.
type Range struct {
	start, stop, step int
	hasStart, hasStop bool
}

// All selects a whole axis.
func All() Range {
	return Range{step: 1}
}

// Span selects [start, stop).
func Span(start, stop int) Range {
	return Range{start: start, stop: stop, step: 1, hasStart: true, hasStop: true}
}

// From selects [start, end of axis).
func From(start int) Range {
	return Range{start: start, step: 1, hasStart: true}
}

// To selects [0, stop).
func To(stop int) Range {
	return Range{stop: stop, step: 1, hasStop: true}
}

// Step returns a copy of r walking with the given step.
func (r Range) Step(step int) Range {
	r.step = step
	return r
}

// indices resolves the range against an axis of the given length and returns
// the first index, the step and the number of selected elements.
func (r Range) indices(length int) (start, step, count int, err error) {
	step = r.step
	if step == 0 {
		return 0, 0, 0, errors.New("slice step cannot be zero")
	}

	lower, upper := 0, length
	if step < 0 {
		lower, upper = -1, length-1
	}

	resolve := func(v int, set bool, def int) int {
		if !set {
			return def
		}
		if v < 0 {
			v += length
			if v < lower {
				v = lower
			}
		} else if v > upper {
			v = upper
		}
		return v
	}

	if step > 0 {
		start = resolve(r.start, r.hasStart, lower)
		stop := resolve(r.stop, r.hasStop, upper)
		if stop > start {
			count = (stop - start + step - 1) / step
		}
	} else {
		start = resolve(r.start, r.hasStart, upper)
		stop := resolve(r.stop, r.hasStop, lower)
		if start > stop {
			count = (start - stop - step - 1) / (-step)
		}
	}
	return start, step, count, nil
}

// Slice returns a view selecting ranges along the leading axes.
// Axes without a range are kept whole.
//
// Example:
//
//	t, _ := tensor.FromSlice([]int64{0, 1, 2, 3, 4, 5}, Shape{2, 3})
//	v, _ := t.Slice(tensor.All(), tensor.From(1)) // [[1 2] [4 5]]
func (t *Tensor[T]) Slice(ranges ...Range) (*Tensor[T], error) {
	if len(ranges) > len(t.shape) {
		return nil, fmt.Errorf("too many ranges: %d for %d dimensions", len(ranges), len(t.shape))
	}

	shape := t.shape.Clone()
	strides := append([]int(nil), t.strides...)
	offset := t.offset

	for axis, r := range ranges {
		start, step, count, err := r.indices(t.shape[axis])
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", axis, err)
		}
		if count > 0 {
			offset += start * t.strides[axis]
		}
		shape[axis] = count
		strides[axis] = t.strides[axis] * step
	}

	return &Tensor[T]{data: t.data, shape: shape, strides: strides, offset: offset}, nil
}

// Index returns a view of the i-th sub-array along the first axis.
// Negative i counts from the end.
func (t *Tensor[T]) Index(i int) (*Tensor[T], error) {
	if len(t.shape) == 0 {
		return nil, errors.New("cannot index a 0-dimensional tensor")
	}
	n := t.shape[0]
	idx := i
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return nil, fmt.Errorf("index %d out of bounds for axis 0 with size %d", i, n)
	}
	return &Tensor[T]{
		data:    t.data,
		shape:   t.shape[1:].Clone(),
		strides: append([]int(nil), t.strides[1:]...),
		offset:  t.offset + idx*t.strides[0],
	}, nil
}

// Reshape returns a tensor with the same elements and a new shape.
// One dimension may be -1 and is inferred. Contiguous tensors are reshaped
// as views; others are copied first.
//
// Example:
//
//	t, _ := tensor.FromSlice(make([]int32, 12), Shape{12})
//	r, _ := t.Reshape(3, -1) // Shape: [3, 4]
func (t *Tensor[T]) Reshape(dims ...int) (*Tensor[T], error) {
	shape := Shape(append([]int(nil), dims...))
	infer := -1
	known := 1
	for i, d := range shape {
		switch {
		case d == -1 && infer == -1:
			infer = i
		case d == -1:
			return nil, errors.New("can only specify one unknown dimension")
		case d < 0:
			return nil, fmt.Errorf("invalid dimension at index %d: %d", i, d)
		default:
			known *= d
		}
	}

	n := t.NumElements()
	if infer >= 0 {
		if known == 0 || n%known != 0 {
			return nil, fmt.Errorf("cannot reshape array of size %d into shape %v", n, dims)
		}
		shape[infer] = n / known
	}
	if shape.NumElements() != n {
		return nil, fmt.Errorf("cannot reshape array of size %d into shape %v", n, dims)
	}

	src := t.Contiguous()
	return &Tensor[T]{
		data:    src.data,
		shape:   shape,
		strides: shape.ComputeStrides(),
		offset:  src.offset,
	}, nil
}

// Flatten returns a 1-D tensor of all elements.
func (t *Tensor[T]) Flatten() *Tensor[T] {
	flat, _ := t.Reshape(-1) // a single inferred dimension always fits
	return flat
}

// Transpose permutes the dimensions of the tensor as a view.
//
// If axes is empty, reverses all dimensions (for 2D, this is standard transpose).
//
// Example:
//
//	t, _ := tensor.Zeros[float32](Shape{2, 3, 4})
//	tr, _ := t.Transpose(2, 0, 1) // Shape: [4, 2, 3]
func (t *Tensor[T]) Transpose(axes ...int) (*Tensor[T], error) {
	ndim := len(t.shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		return nil, fmt.Errorf("axes don't match tensor: got %d axes for %d dimensions", len(axes), ndim)
	}

	seen := make([]bool, ndim)
	shape := make(Shape, ndim)
	strides := make([]int, ndim)
	for i, a := range axes {
		axis, err := normalizeAxis(a, ndim)
		if err != nil {
			return nil, err
		}
		if seen[axis] {
			return nil, fmt.Errorf("repeated axis %d in transpose", a)
		}
		seen[axis] = true
		shape[i] = t.shape[axis]
		strides[i] = t.strides[axis]
	}

	return &Tensor[T]{data: t.data, shape: shape, strides: strides, offset: t.offset}, nil
}
