package serialization

import (
	"io"

	"github.com/zeebo/xxh3"
)

// ComputeChecksum computes the XXH3-64 checksum of data.
func ComputeChecksum(data []byte) uint64 {
	return xxh3.Hash(data)
}

// ComputeChecksumReader computes the XXH3-64 checksum from an io.Reader.
// This is useful for checksumming large files without loading them into memory.
func ComputeChecksumReader(r io.Reader) (uint64, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// ValidateChecksum compares computed checksum against stored checksum.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(computed, stored uint64) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}
