package tensor

import (
	"encoding/binary"
	"fmt"
)

// Bytes returns the elements in row-major order, little-endian encoded.
func (t *Tensor[T]) Bytes() []byte {
	values := t.Values()
	buf, err := binary.Append(make([]byte, 0, len(values)*t.DType().Size()), binary.LittleEndian, values)
	if err != nil {
		// All DType kinds are fixed-size, so encoding cannot fail.
		panic(fmt.Sprintf("encode %s tensor: %v", t.DType(), err))
	}
	return buf
}

// FromBytes decodes little-endian row-major data produced by Bytes.
func FromBytes[T DType](data []byte, shape Shape) (*Tensor[T], error) {
	t, err := Zeros[T](shape)
	if err != nil {
		return nil, err
	}
	want := t.NumElements() * t.DType().Size()
	if len(data) != want {
		return nil, fmt.Errorf("shape %v of %s requires %d bytes, but got %d", shape, t.DType(), want, len(data))
	}
	if want == 0 {
		return t, nil
	}
	if _, err := binary.Decode(data, binary.LittleEndian, t.data); err != nil {
		return nil, fmt.Errorf("decode %s tensor: %w", t.DType(), err)
	}
	return t, nil
}
