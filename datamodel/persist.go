// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package datamodel

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/born-ml/spacedata/internal/serialization"
	"github.com/born-ml/spacedata/internal/tensor"
)

// Codec selects compression for persisted array data.
type Codec = serialization.Codec

// Supported codecs.
const (
	CodecNone = serialization.CodecNone
	CodecZstd = serialization.CodecZstd
	CodecLZ4  = serialization.CodecLZ4
)

// ParseCodec converts "none", "zstd" or "lz4" to a Codec.
func ParseCodec(s string) (Codec, error) {
	return serialization.ParseCodec(s)
}

// SaveOptions configures how arrays are persisted.
type SaveOptions struct {
	Codec Codec // Compression for the data section
	Level int   // Codec level (0 = codec default)
}

// LoadOptions configures how arrays are restored.
type LoadOptions struct {
	SkipChecksum bool // Skip data checksum verification
	Mmap         bool // Read the file through a memory mapping
}

// state returns the positional attribute slots in allow-list order, each
// encoded as typed JSON.
func (a *Array[T]) state() ([]json.RawMessage, error) {
	slots := make([]json.RawMessage, 0, 1+len(a.extras))
	for _, name := range a.AllowedAttributes() {
		v, _ := a.Attr(name)
		raw, err := encodeState(v)
		if err != nil {
			return nil, fmt.Errorf("encode attribute %q: %w", name, err)
		}
		slots = append(slots, raw)
	}
	return slots, nil
}

func (a *Array[T]) envelope() (serialization.Header, []byte, error) {
	slots, err := a.state()
	if err != nil {
		return serialization.Header{}, nil, err
	}
	h := serialization.Header{
		DType: a.DType().String(),
		Shape: []int(a.Shape().Clone()),
		State: slots,
	}
	return h, a.t.Bytes(), nil
}

// Encode writes a to w as a single envelope and returns the bytes written.
func (a *Array[T]) Encode(w io.Writer, opts SaveOptions) (int64, error) {
	h, data, err := a.envelope()
	if err != nil {
		return 0, err
	}
	return serialization.Encode(w, h, data, serialization.WriterOptions{Codec: opts.Codec, Level: opts.Level})
}

// WriteTo writes a to w as an uncompressed envelope. It implements io.WriterTo.
func (a *Array[T]) WriteTo(w io.Writer) (int64, error) {
	return a.Encode(w, SaveOptions{})
}

// MarshalBinary encodes a as an uncompressed envelope.
func (a *Array[T]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary replaces a's data and attributes with the envelope in data.
// The envelope's element type must match T.
func (a *Array[T]) UnmarshalBinary(data []byte) error {
	h, raw, err := serialization.DecodeBytes(data, serialization.ReaderOptions{})
	if err != nil {
		return err
	}
	restored, err := restore[T](h, raw)
	if err != nil {
		return err
	}
	*a = *restored
	return nil
}

// Save writes a to path.
func (a *Array[T]) Save(path string, opts SaveOptions) error {
	h, data, err := a.envelope()
	if err != nil {
		return err
	}
	return serialization.WriteFile(path, h, data, serialization.WriterOptions{Codec: opts.Codec, Level: opts.Level})
}

// ReadArray reads one envelope from r.
func ReadArray[T tensor.DType](r io.Reader) (*Array[T], error) {
	h, raw, err := serialization.Decode(r, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	return restore[T](h, raw)
}

// Load reads the array stored at path.
func Load[T tensor.DType](path string, opts LoadOptions) (*Array[T], error) {
	h, raw, err := readFile(path, opts)
	if err != nil {
		return nil, err
	}
	return restore[T](h, raw)
}

func readFile(path string, opts LoadOptions) (serialization.Header, []byte, error) {
	ropts := serialization.ReaderOptions{SkipChecksumValidation: opts.SkipChecksum}
	if !opts.Mmap {
		return serialization.ReadFile(path, ropts)
	}

	r, err := serialization.NewMmapReader(path, ropts)
	if err != nil {
		return serialization.Header{}, nil, err
	}
	defer func() { _ = r.Close() }()

	raw, err := r.Data()
	if err != nil {
		return serialization.Header{}, nil, err
	}
	return r.Header(), raw, nil
}

// restore rebuilds an array from a decoded envelope. Slot 0 becomes attrs;
// slot n >= 1 becomes extra_attr_n and joins the allow-list.
func restore[T tensor.DType](h serialization.Header, raw []byte) (*Array[T], error) {
	if want := tensor.DataTypeOf[T]().String(); h.DType != want {
		return nil, fmt.Errorf("%w: stored %s, requested %s", ErrDTypeMismatch, h.DType, want)
	}
	t, err := tensor.FromBytes[T](raw, tensor.Shape(h.Shape))
	if err != nil {
		return nil, fmt.Errorf("restore data: %w", err)
	}

	out := &Array[T]{t: t, attrs: NewAttrs()}
	for i, slot := range h.State {
		v, err := decodeState(slot)
		if err != nil {
			return nil, fmt.Errorf("restore slot %d: %w", i, err)
		}
		if i == 0 {
			switch attrs := v.(type) {
			case nil:
			case *Attrs:
				out.attrs = attrs
			default:
				return nil, fmt.Errorf("restore attrs: %w: got %T", ErrAttrsType, v)
			}
			continue
		}
		out.extras = append(out.extras, extraAttr{name: extraName(i), value: v})
	}
	return out, nil
}

// AnyArray is an array of any element type, as returned by Open.
type AnyArray interface {
	AttributeSource
	Attrs() *Attrs
	Shape() tensor.Shape
	DType() tensor.DataType
	NumElements() int
	String() string
	MarshalBinary() ([]byte, error)
}

// Open reads the array stored at path without knowing its element type in
// advance. Use a type switch on the result to reach the concrete *Array[T].
func Open(path string, opts LoadOptions) (AnyArray, error) {
	h, raw, err := readFile(path, opts)
	if err != nil {
		return nil, err
	}
	return openDecoded(h, raw)
}

// decodeEnvelope restores an array of any element type from an in-memory envelope.
func decodeEnvelope(data []byte) (AnyArray, error) {
	h, raw, err := serialization.DecodeBytes(data, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	return openDecoded(h, raw)
}

func openDecoded(h serialization.Header, raw []byte) (AnyArray, error) {
	dtype, err := tensor.ParseDataType(h.DType)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case tensor.Float32:
		return openAs[float32](h, raw)
	case tensor.Float64:
		return openAs[float64](h, raw)
	case tensor.Int32:
		return openAs[int32](h, raw)
	case tensor.Int64:
		return openAs[int64](h, raw)
	case tensor.Uint8:
		return openAs[uint8](h, raw)
	default:
		return openAs[bool](h, raw)
	}
}

func openAs[T tensor.DType](h serialization.Header, raw []byte) (AnyArray, error) {
	a, err := restore[T](h, raw)
	if err != nil {
		return nil, err
	}
	return a, nil
}
