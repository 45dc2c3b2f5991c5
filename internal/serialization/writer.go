package serialization

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const libraryVersion = "0.3.0" // Current library version

// WriterOptions configures how an envelope is written.
type WriterOptions struct {
	Codec Codec // Compression for the data section (CodecNone by default)
	Level int   // Codec level; DefaultCompressionLevel picks the codec default
}

// Encode writes one envelope holding data to w and returns the number of
// bytes written.
//
// Missing bookkeeping fields of h (format version, library version, id and
// creation time) are filled in before the header is marshaled.
func Encode(w io.Writer, h Header, data []byte, opts WriterOptions) (int64, error) {
	h.FormatVersion = FormatVersion
	if h.LibraryVersion == "" {
		h.LibraryVersion = libraryVersion
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	if h.Shape == nil {
		h.Shape = []int{}
	}
	if len(h.State) > MaxStateSlots {
		return 0, &ValidationError{
			Type:    "too_many_slots",
			Field:   "state",
			Details: fmt.Sprintf("got %d, max %d", len(h.State), MaxStateSlots),
		}
	}

	stored, codec, err := compress(opts.Codec, opts.Level, data)
	if err != nil {
		return 0, err
	}

	headerJSON, err := json.Marshal(h)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return 0, ErrHeaderTooLarge
	}

	info := Info{
		Version:    FormatVersion,
		Codec:      codec,
		HeaderSize: uint64(len(headerJSON)),
		StoredSize: uint64(len(stored)),
		RawSize:    uint64(len(data)),
		Checksum:   ComputeChecksum(stored),
	}
	if len(h.State) > 0 {
		info.Flags |= FlagHasState
	}
	if codec != CodecNone {
		info.Flags |= FlagCompressed
	}

	cw := &countingWriter{w: w}
	if _, err := cw.Write(info.marshal()); err != nil {
		return cw.n, fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := cw.Write(headerJSON); err != nil {
		return cw.n, fmt.Errorf("failed to write header: %w", err)
	}
	if pad := padding(cw.n); pad > 0 {
		if _, err := cw.Write(make([]byte, pad)); err != nil {
			return cw.n, fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := cw.Write(stored); err != nil {
		return cw.n, fmt.Errorf("failed to write data: %w", err)
	}
	return cw.n, nil
}

// Writer writes a single envelope to a file.
type Writer struct {
	file    *os.File
	buf     *bufio.Writer
	opts    WriterOptions
	written bool
	closed  bool
}

// NewWriter creates path and returns a Writer for it.
func NewWriter(path string, opts WriterOptions) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file, buf: bufio.NewWriter(file), opts: opts}, nil
}

// Write encodes the envelope. It may be called only once.
func (w *Writer) Write(h Header, data []byte) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if w.written {
		return fmt.Errorf("envelope already written")
	}
	w.written = true
	if _, err := Encode(w.buf, h, data, w.opts); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteFile writes one envelope to path, replacing any existing file.
func WriteFile(path string, h Header, data []byte, opts WriterOptions) error {
	w, err := NewWriter(path, opts)
	if err != nil {
		return err
	}
	if err := w.Write(h, data); err != nil {
		_ = w.Close() // Best effort close on error
		return err
	}
	return w.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
