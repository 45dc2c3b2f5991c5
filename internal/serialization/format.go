package serialization

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Format constants.
const (
	MagicBytes      = "DMAR"
	FormatVersion   = 1
	FixedHeaderSize = 64 // Fixed header size (0x40 bytes)
	HeaderAlignment = 64 // Align data to 64 bytes
)

// Fixed header field offsets.
const (
	offVersion    = 0x04
	offFlags      = 0x08
	offCodec      = 0x0C
	offHeaderSize = 0x10
	offStoredSize = 0x18
	offRawSize    = 0x20
	offChecksum   = 0x28
)

// Flags for the envelope.
const (
	FlagHasState   uint32 = 1 << 0 // bit 0: header carries attribute state slots
	FlagCompressed uint32 = 1 << 1 // bit 1: data section is compressed
)

// Codec identifies the compression applied to the data section.
type Codec uint32

// Supported codecs.
const (
	CodecNone Codec = iota
	CodecZstd
	CodecLZ4
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint32(c))
	}
}

// ParseCodec converts a codec name to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "none":
		return CodecNone, nil
	case "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}
}

// Header represents the JSON header of an envelope.
type Header struct {
	FormatVersion  int               `json:"format_version"`  // Version of the envelope format
	LibraryVersion string            `json:"library_version"` // Version of the library that wrote the envelope
	ID             string            `json:"id"`              // Unique envelope id (UUID)
	CreatedAt      time.Time         `json:"created_at"`      // When the envelope was written
	DType          string            `json:"dtype"`           // Element type (e.g., "float64")
	Shape          []int             `json:"shape"`           // Array shape
	State          []json.RawMessage `json:"state"`           // Positional attribute values
}

// Info is the decoded fixed header of an envelope.
type Info struct {
	Version    uint32
	Flags      uint32
	Codec      Codec
	HeaderSize uint64
	StoredSize uint64
	RawSize    uint64
	Checksum   uint64
}

// Compressed reports whether the data section is compressed.
func (i Info) Compressed() bool {
	return i.Flags&FlagCompressed != 0
}

// dataOffset returns the offset of the data section from the start of the envelope.
func (i Info) dataOffset() int64 {
	//nolint:gosec // G115: header size is bounded by MaxHeaderSize
	pos := int64(FixedHeaderSize) + int64(i.HeaderSize)
	return pos + padding(pos)
}

// padding returns the number of zero bytes needed to align pos.
func padding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}

// marshal encodes the fixed header.
func (i Info) marshal() []byte {
	b := make([]byte, FixedHeaderSize)
	copy(b[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(b[offVersion:], i.Version)
	binary.LittleEndian.PutUint32(b[offFlags:], i.Flags)
	binary.LittleEndian.PutUint32(b[offCodec:], uint32(i.Codec))
	binary.LittleEndian.PutUint64(b[offHeaderSize:], i.HeaderSize)
	binary.LittleEndian.PutUint64(b[offStoredSize:], i.StoredSize)
	binary.LittleEndian.PutUint64(b[offRawSize:], i.RawSize)
	binary.LittleEndian.PutUint64(b[offChecksum:], i.Checksum)
	return b
}

// parseInfo decodes and sanity-checks a fixed header.
func parseInfo(b []byte) (Info, error) {
	if len(b) < FixedHeaderSize {
		return Info{}, fmt.Errorf("%w: fixed header has %d bytes, need %d", ErrTruncated, len(b), FixedHeaderSize)
	}
	if string(b[0:4]) != MagicBytes {
		return Info{}, ErrInvalidMagic
	}

	info := Info{
		Version:    binary.LittleEndian.Uint32(b[offVersion:]),
		Flags:      binary.LittleEndian.Uint32(b[offFlags:]),
		Codec:      Codec(binary.LittleEndian.Uint32(b[offCodec:])),
		HeaderSize: binary.LittleEndian.Uint64(b[offHeaderSize:]),
		StoredSize: binary.LittleEndian.Uint64(b[offStoredSize:]),
		RawSize:    binary.LittleEndian.Uint64(b[offRawSize:]),
		Checksum:   binary.LittleEndian.Uint64(b[offChecksum:]),
	}

	if info.Version != FormatVersion {
		return Info{}, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, info.Version, FormatVersion)
	}
	if info.Codec > CodecLZ4 {
		return Info{}, fmt.Errorf("%w: %d", ErrUnknownCodec, uint32(info.Codec))
	}
	if info.HeaderSize > MaxHeaderSize {
		return Info{}, ErrHeaderTooLarge
	}
	if info.StoredSize > MaxDataSize || info.RawSize > MaxDataSize {
		return Info{}, &ValidationError{
			Type:    "data_too_large",
			Details: fmt.Sprintf("stored=%d raw=%d, max %d", info.StoredSize, info.RawSize, uint64(MaxDataSize)),
		}
	}
	return info, nil
}
