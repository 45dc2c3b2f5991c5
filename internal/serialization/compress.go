package serialization

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// DefaultCompressionLevel selects the codec's default speed/ratio trade-off.
const DefaultCompressionLevel = 0

var (
	zstdEnc     *zstd.Encoder
	zstdDec     *zstd.Decoder
	initEncoder sync.Once
	initDecoder sync.Once
)

func zstdEncoder() *zstd.Encoder {
	initEncoder.Do(func() {
		zstdEnc, _ = zstd.NewWriter(nil, zstd.WithZeroFrames(true))
	})
	return zstdEnc
}

func zstdDecoder() *zstd.Decoder {
	initDecoder.Do(func() {
		zstdDec, _ = zstd.NewReader(nil)
	})
	return zstdDec
}

// compress encodes raw with codec. The returned codec may differ from the
// requested one: lz4 reports incompressible input, which is then stored as is.
func compress(codec Codec, level int, raw []byte) ([]byte, Codec, error) {
	if len(raw) == 0 {
		return raw, CodecNone, nil
	}

	switch codec {
	case CodecNone:
		return raw, CodecNone, nil

	case CodecZstd:
		if level == DefaultCompressionLevel {
			return zstdEncoder().EncodeAll(raw, nil), CodecZstd, nil
		}
		enc, err := zstd.NewWriter(nil,
			zstd.WithZeroFrames(true),
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, 0, fmt.Errorf("create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), CodecZstd, nil

	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		var n int
		var err error
		if level == DefaultCompressionLevel {
			var c lz4.Compressor
			n, err = c.CompressBlock(raw, dst)
		} else {
			c := lz4.CompressorHC{Level: lz4.CompressionLevel(level)}
			n, err = c.CompressBlock(raw, dst)
		}
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			return raw, CodecNone, nil
		}
		return dst[:n], CodecLZ4, nil

	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCodec, uint32(codec))
	}
}

// decompress reverses compress. rawSize is the expected decoded length.
func decompress(codec Codec, stored []byte, rawSize uint64) ([]byte, error) {
	switch codec {
	case CodecNone:
		return stored, nil

	case CodecZstd:
		out, err := zstdDecoder().DecodeAll(stored, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if uint64(len(out)) != rawSize {
			return nil, &ValidationError{
				Type:    "size_mismatch",
				Details: fmt.Sprintf("zstd produced %d bytes, expected %d", len(out), rawSize),
			}
		}
		return out, nil

	case CodecLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(n) != rawSize { //nolint:gosec // G115: n is non-negative
			return nil, &ValidationError{
				Type:    "size_mismatch",
				Details: fmt.Sprintf("lz4 produced %d bytes, expected %d", n, rawSize),
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint32(codec))
	}
}
