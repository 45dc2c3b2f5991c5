package serialization

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// ReaderOptions configures how an envelope is read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Decode reads one envelope from r and returns its header and the
// decompressed data section.
func Decode(r io.Reader, opts ReaderOptions) (Header, []byte, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return Header{}, nil, truncated("fixed header", err)
	}
	info, err := parseInfo(fixed)
	if err != nil {
		return Header{}, nil, err
	}

	headerJSON := make([]byte, info.HeaderSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return Header{}, nil, truncated("header", err)
	}

	pad := info.dataOffset() - FixedHeaderSize - int64(info.HeaderSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if _, err := io.CopyN(io.Discard, r, pad); err != nil {
		return Header{}, nil, truncated("padding", err)
	}

	stored, err := readData(r, info, opts.SkipChecksumValidation)
	if err != nil {
		return Header{}, nil, err
	}

	// The data section was verified while it was read.
	opts.SkipChecksumValidation = true
	return finish(info, headerJSON, stored, opts)
}

// readData reads the data section from r, hashing it on the way unless
// skip is set.
func readData(r io.Reader, info Info, skip bool) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, min(info.StoredSize, 1<<26)))
	src := io.LimitReader(r, int64(info.StoredSize)) //nolint:gosec // G115: bounded by MaxDataSize

	var sum uint64
	var err error
	if skip {
		_, err = buf.ReadFrom(src)
	} else {
		sum, err = ComputeChecksumReader(io.TeeReader(src, buf))
	}
	if err != nil {
		return nil, truncated("data", err)
	}
	if uint64(buf.Len()) != info.StoredSize {
		return nil, fmt.Errorf("%w: reading data: got %d of %d bytes", ErrTruncated, buf.Len(), info.StoredSize)
	}
	if !skip {
		if err := ValidateChecksum(sum, info.Checksum); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeBytes decodes an envelope held entirely in memory. Trailing bytes
// after the data section are ignored. When the data is not compressed the
// returned slice aliases b.
func DecodeBytes(b []byte, opts ReaderOptions) (Header, []byte, error) {
	info, err := parseInfo(b)
	if err != nil {
		return Header{}, nil, err
	}
	headerJSON, stored, err := sections(b, info)
	if err != nil {
		return Header{}, nil, err
	}
	return finish(info, headerJSON, stored, opts)
}

// sections slices the JSON header and the stored data out of b.
func sections(b []byte, info Info) (headerJSON, stored []byte, err error) {
	size := int64(len(b))
	headerEnd := int64(FixedHeaderSize) + int64(info.HeaderSize) //nolint:gosec // G115: bounded by MaxHeaderSize
	if headerEnd > size {
		return nil, nil, fmt.Errorf("%w: header_end=%d, size=%d", ErrTruncated, headerEnd, size)
	}
	start := info.dataOffset()
	end := start + int64(info.StoredSize) //nolint:gosec // G115: bounded by MaxDataSize
	if end > size {
		return nil, nil, fmt.Errorf("%w: data_end=%d, size=%d", ErrTruncated, end, size)
	}
	return b[FixedHeaderSize:headerEnd], b[start:end], nil
}

// finish verifies the stored data, parses the JSON header and decompresses.
func finish(info Info, headerJSON, stored []byte, opts ReaderOptions) (Header, []byte, error) {
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(stored), info.Checksum); err != nil {
			return Header{}, nil, err
		}
	}

	var h Header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return Header{}, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&h, info, opts.ValidationLevel); err != nil {
		return Header{}, nil, fmt.Errorf("validation failed: %w", err)
	}

	data, err := decompress(info.Codec, stored, info.RawSize)
	if err != nil {
		return Header{}, nil, err
	}
	return h, data, nil
}

func truncated(section string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: reading %s", ErrTruncated, section)
	}
	return fmt.Errorf("failed to read %s: %w", section, err)
}

// ReadFile reads one envelope from path.
func ReadFile(path string, opts ReaderOptions) (Header, []byte, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	file, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return Decode(bufio.NewReader(file), opts)
}
