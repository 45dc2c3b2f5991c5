package serialization

import (
	"fmt"

	"github.com/born-ml/spacedata/internal/tensor"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize = 100 * 1024 * 1024 // 100MB - maximum JSON header size
	MaxDataSize   = 1 << 40           // 1TB - maximum data section size
	MaxStateSlots = 1024              // Maximum number of attribute state slots
	MaxDims       = 64                // Maximum array rank
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks dtype, shape and data size only.
	ValidationNormal
	// ValidationNone skips validation (use only with trusted input).
	ValidationNone
)

// ValidateHeader checks the JSON header against the fixed header it was read with.
func ValidateHeader(h *Header, info Info, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	dtype, err := tensor.ParseDataType(h.DType)
	if err != nil {
		return &ValidationError{Type: "invalid_dtype", Field: "dtype", Details: err.Error()}
	}

	if len(h.Shape) > MaxDims {
		return &ValidationError{
			Type:    "too_many_dims",
			Field:   "shape",
			Details: fmt.Sprintf("got %d, max %d", len(h.Shape), MaxDims),
		}
	}
	shape := tensor.Shape(h.Shape)
	if err := shape.Validate(); err != nil {
		return &ValidationError{Type: "invalid_shape", Field: "shape", Details: err.Error()}
	}

	//nolint:gosec // G115: element count and dtype size are non-negative
	want := uint64(shape.NumElements()) * uint64(dtype.Size())
	if info.RawSize != want {
		return &ValidationError{
			Type:    "size_mismatch",
			Field:   "shape",
			Details: fmt.Sprintf("shape %v of %s requires %d bytes, header declares %d", h.Shape, dtype, want, info.RawSize),
		}
	}
	if !info.Compressed() && info.StoredSize != info.RawSize {
		return &ValidationError{
			Type:    "size_mismatch",
			Details: fmt.Sprintf("uncompressed data: stored=%d raw=%d", info.StoredSize, info.RawSize),
		}
	}

	if level == ValidationNormal {
		return nil
	}

	if h.FormatVersion != FormatVersion {
		return &ValidationError{
			Type:    "version_mismatch",
			Field:   "format_version",
			Details: fmt.Sprintf("JSON header declares %d, fixed header %d", h.FormatVersion, FormatVersion),
		}
	}
	if len(h.State) > MaxStateSlots {
		return &ValidationError{
			Type:    "too_many_slots",
			Field:   "state",
			Details: fmt.Sprintf("got %d, max %d", len(h.State), MaxStateSlots),
		}
	}
	hasState := info.Flags&FlagHasState != 0
	if hasState != (len(h.State) > 0) {
		return &ValidationError{
			Type:    "flag_mismatch",
			Field:   "state",
			Details: fmt.Sprintf("has-state flag is %t but header carries %d slots", hasState, len(h.State)),
		}
	}
	if info.Compressed() != (info.Codec != CodecNone) {
		return &ValidationError{
			Type:    "flag_mismatch",
			Details: fmt.Sprintf("compressed flag is %t but codec is %s", info.Compressed(), info.Codec),
		}
	}
	return nil
}
