package serialization

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func validHeader() (*Header, Info) {
	h := &Header{FormatVersion: FormatVersion, DType: "float32", Shape: []int{2, 3}}
	info := Info{Version: FormatVersion, RawSize: 24, StoredSize: 24}
	return h, info
}

// TestValidateHeader covers each validation rule.
func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *Header, info *Info)
		level   ValidationLevel
		errType string
	}{
		{"valid", func(*Header, *Info) {}, ValidationStrict, ""},
		{"bad dtype", func(h *Header, _ *Info) { h.DType = "complex128" }, ValidationStrict, "invalid_dtype"},
		{"negative dim", func(h *Header, _ *Info) { h.Shape = []int{2, -3} }, ValidationStrict, "invalid_shape"},
		{"too many dims", func(h *Header, _ *Info) { h.Shape = make([]int, MaxDims+1) }, ValidationStrict, "too_many_dims"},
		{"raw size", func(_ *Header, info *Info) { info.RawSize = 20 }, ValidationNormal, "size_mismatch"},
		{"stored size", func(_ *Header, info *Info) { info.StoredSize = 12 }, ValidationNormal, "size_mismatch"},
		{"version", func(h *Header, _ *Info) { h.FormatVersion = 7 }, ValidationStrict, "version_mismatch"},
		{"version normal", func(h *Header, _ *Info) { h.FormatVersion = 7 }, ValidationNormal, ""},
		{"state flag", func(h *Header, _ *Info) {
			h.State = []json.RawMessage{json.RawMessage(`{}`)}
		}, ValidationStrict, "flag_mismatch"},
		{"too many slots", func(h *Header, info *Info) {
			h.State = make([]json.RawMessage, MaxStateSlots+1)
			info.Flags |= FlagHasState
		}, ValidationStrict, "too_many_slots"},
		{"codec flag", func(_ *Header, info *Info) {
			info.Codec = CodecZstd
			info.StoredSize = 10
		}, ValidationStrict, "size_mismatch"},
		{"compressed without codec", func(_ *Header, info *Info) {
			info.Flags |= FlagCompressed
			info.StoredSize = 10
		}, ValidationStrict, "flag_mismatch"},
		{"none skips everything", func(h *Header, _ *Info) { h.DType = "nope" }, ValidationNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, info := validHeader()
			tt.mutate(h, &info)
			err := ValidateHeader(h, info, tt.level)

			if tt.errType == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got: %v", err)
			}
			if vErr.Type != tt.errType {
				t.Errorf("Expected error type %q, got %q (%v)", tt.errType, vErr.Type, err)
			}
		})
	}
}

// TestValidationErrorMessage verifies error formatting with and without a field.
func TestValidationErrorMessage(t *testing.T) {
	withField := &ValidationError{Type: "invalid_dtype", Field: "dtype", Details: "unknown"}
	if !strings.Contains(withField.Error(), `field "dtype"`) {
		t.Errorf("Unexpected message: %s", withField.Error())
	}
	plain := &ValidationError{Type: "size_mismatch", Details: "stored=1 raw=2"}
	if plain.Error() != "size_mismatch: stored=1 raw=2" {
		t.Errorf("Unexpected message: %s", plain.Error())
	}
}
