package serialization

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// MmapReader provides memory-mapped access to an envelope file.
// Only the fixed and JSON headers are parsed up front; the data section is
// verified and decoded when Data is called.
type MmapReader struct {
	file   *os.File
	data   []byte // mmap'd region (read-only)
	info   Info
	header Header
	stored []byte
	opts   ReaderOptions
	closed bool
}

// NewMmapReader maps path read-only and parses its headers.
//
// Important: Always call Close() when done to unmap the file (use defer).
func NewMmapReader(path string, opts ReaderOptions) (*MmapReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() < FixedHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("%w: file has %d bytes", ErrTruncated, stat.Size())
	}

	data, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	r := &MmapReader{file: file, data: data, opts: opts}
	if err := r.parseHeader(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	return r, nil
}

func (r *MmapReader) parseHeader() error {
	info, err := parseInfo(r.data)
	if err != nil {
		return err
	}
	headerJSON, stored, err := sections(r.data, info)
	if err != nil {
		return err
	}

	// The checksum is verified lazily in Data, so parse the header directly.
	var h Header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&h, info, r.opts.ValidationLevel); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	r.info = info
	r.header = h
	r.stored = stored
	return nil
}

// Header returns the JSON header.
func (r *MmapReader) Header() Header {
	return r.header
}

// Info returns the fixed header.
func (r *MmapReader) Info() Info {
	return r.info
}

// Data verifies and returns a copy of the decoded data section.
// The copy stays valid after Close.
func (r *MmapReader) Data() ([]byte, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	if !r.opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(r.stored), r.info.Checksum); err != nil {
			return nil, err
		}
	}
	if r.info.Codec == CodecNone {
		out := make([]byte, len(r.stored))
		copy(out, r.stored)
		return out, nil
	}
	return decompress(r.info.Codec, r.stored, r.info.RawSize)
}

// Close unmaps and closes the file.
func (r *MmapReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.stored = nil

	var err error
	if r.data != nil {
		err = munmapFile(r.data)
		r.data = nil
	}
	if closeErr := r.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
