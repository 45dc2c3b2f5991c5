package tensor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/born-ml/spacedata/internal/parallel"
)

// kernelConfig controls how element-wise kernels fan out.
var kernelConfig atomic.Pointer[parallel.Config]

func init() {
	SetParallelConfig(parallel.DefaultConfig())
}

// SetParallelConfig replaces the configuration used by element-wise kernels.
// Kernels already running keep the configuration they started with.
func SetParallelConfig(cfg parallel.Config) {
	kernelConfig.Store(&cfg)
}

// ParallelConfig returns the configuration used by element-wise kernels.
func ParallelConfig() parallel.Config {
	return *kernelConfig.Load()
}

// MapTo applies f to every element and returns a new contiguous tensor of
// the results, with the same shape as t.
func MapTo[T, U DType](t *Tensor[T], f func(T) U) *Tensor[U] {
	n := t.NumElements()
	out := &Tensor[U]{
		data:    make([]U, n),
		shape:   t.shape.Clone(),
		strides: t.shape.ComputeStrides(),
	}
	cfg := ParallelConfig()
	if t.IsContiguous() {
		src := t.data[t.offset : t.offset+n]
		parallel.ForRange(n, func(start, end int) {
			for i := start; i < end; i++ {
				out.data[i] = f(src[i])
			}
		}, cfg)
		return out
	}
	parallel.For(n, func(i int) {
		out.data[i] = f(t.data[t.storageIndex(i)])
	}, cfg)
	return out
}

// Map applies f to every element (a unary universal function).
func Map[T DType](t *Tensor[T], f func(T) T) *Tensor[T] {
	return MapTo(t, f)
}

// Cast converts every element to another numeric type, with Go conversion
// semantics (floats truncate toward zero when cast to integers).
func Cast[T, U Numeric](t *Tensor[T]) *Tensor[U] {
	return MapTo(t, func(v T) U { return U(v) })
}

// broadcastStrides returns strides that address t as if it had shape out.
// Broadcast dimensions get stride 0.
func broadcastStrides(shape Shape, strides []int, out Shape) []int {
	result := make([]int, len(out))
	shift := len(out) - len(shape)
	for i := range shape {
		if shape[i] != 1 {
			result[shift+i] = strides[i]
		}
	}
	return result
}

// Binary applies f element-wise over a and b with NumPy broadcasting.
//
// Example:
//
//	a, _ := tensor.FromSlice([]float64{1, 2, 3}, Shape{3, 1})
//	b, _ := tensor.FromSlice([]float64{10, 20}, Shape{2})
//	c, _ := tensor.Binary(a, b, func(x, y float64) float64 { return x + y }) // Shape: [3, 2]
func Binary[T DType](a, b *Tensor[T], f func(x, y T) T) (*Tensor[T], error) {
	shape, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, err
	}

	out, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}

	aStrides := broadcastStrides(a.shape, a.strides, shape)
	bStrides := broadcastStrides(b.shape, b.strides, shape)

	parallel.ForRange(out.NumElements(), func(start, end int) {
		for i := start; i < end; i++ {
			aOff, bOff := a.offset, b.offset
			n := i
			for d := len(shape) - 1; d >= 0; d-- {
				idx := n % shape[d]
				n /= shape[d]
				aOff += idx * aStrides[d]
				bOff += idx * bStrides[d]
			}
			out.data[i] = f(a.data[aOff], b.data[bOff])
		}
	}, ParallelConfig())

	return out, nil
}

// Add performs element-wise addition with broadcasting.
func Add[T Numeric](a, b *Tensor[T]) (*Tensor[T], error) {
	return Binary(a, b, func(x, y T) T { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func Sub[T Numeric](a, b *Tensor[T]) (*Tensor[T], error) {
	return Binary(a, b, func(x, y T) T { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func Mul[T Numeric](a, b *Tensor[T]) (*Tensor[T], error) {
	return Binary(a, b, func(x, y T) T { return x * y })
}

// Div performs element-wise division with broadcasting.
// Integer division by zero is reported as an error instead of panicking.
func Div[T Numeric](a, b *Tensor[T]) (*Tensor[T], error) {
	if isIntegral[T]() {
		for _, v := range b.All() {
			if v == 0 {
				return nil, errors.New("integer division by zero")
			}
		}
	}
	return Binary(a, b, func(x, y T) T { return x / y })
}

func isIntegral[T Numeric]() bool {
	switch DataTypeOf[T]() {
	case Float32, Float64:
		return false
	default:
		return true
	}
}

// Sum returns the sum of all elements.
func Sum[T Numeric](t *Tensor[T]) T {
	var s T
	for _, v := range t.All() {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean of all elements as float64.
// The mean of an empty tensor is an error.
func Mean[T Numeric](t *Tensor[T]) (float64, error) {
	n := t.NumElements()
	if n == 0 {
		return 0, errors.New("mean of empty tensor")
	}
	var s float64
	for _, v := range t.All() {
		s += float64(v)
	}
	return s / float64(n), nil
}

// Min returns the smallest element.
func Min[T Numeric](t *Tensor[T]) (T, error) {
	return extreme(t, func(a, b T) bool { return a < b })
}

// Max returns the largest element.
func Max[T Numeric](t *Tensor[T]) (T, error) {
	return extreme(t, func(a, b T) bool { return a > b })
}

func extreme[T Numeric](t *Tensor[T], better func(a, b T) bool) (T, error) {
	var best T
	if t.NumElements() == 0 {
		return best, errors.New("zero-size tensor has no extremum")
	}
	first := true
	for _, v := range t.All() {
		if first || better(v, best) {
			best = v
			first = false
		}
	}
	return best, nil
}

// SumAxis sums along one axis. With keepDim the reduced axis is kept with size 1.
//
// Example:
//
//	t, _ := tensor.FromSlice([]int64{1, 2, 3, 4, 5, 6}, Shape{2, 3})
//	s, _ := tensor.SumAxis(t, 0, false) // [5 7 9]
func SumAxis[T Numeric](t *Tensor[T], axis int, keepDim bool) (*Tensor[T], error) {
	ax, err := normalizeAxis(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("sum: %w", err)
	}

	reduced := t.shape.Clone()
	reduced[ax] = 1
	out, err := Zeros[T](reduced)
	if err != nil {
		return nil, err
	}

	// Accumulate every input element into the output slot with its axis index zeroed.
	outStrides := out.strides
	for i, v := range t.All() {
		pos, n := 0, i
		for d := len(t.shape) - 1; d >= 0; d-- {
			idx := n % t.shape[d]
			n /= t.shape[d]
			if d != ax {
				pos += idx * outStrides[d]
			}
		}
		out.data[pos] += v
	}

	if keepDim {
		return out, nil
	}
	final := append(Shape{}, reduced[:ax]...)
	final = append(final, reduced[ax+1:]...)
	return out.Reshape(final...)
}
