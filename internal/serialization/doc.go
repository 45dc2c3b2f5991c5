// Package serialization provides the envelope format used to persist
// attributed arrays.
//
// An envelope stores the array's raw state together with a positional tuple
// of auxiliary attribute values:
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00-0x03  Magic "DMAR"
//	    0x04-0x07  Format version (uint32 LE)
//	    0x08-0x0B  Flags (uint32 LE)
//	    0x0C-0x0F  Codec (uint32 LE)
//	    0x10-0x17  JSON header size (uint64 LE)
//	    0x18-0x1F  Stored data size (uint64 LE)
//	    0x20-0x27  Raw (uncompressed) data size (uint64 LE)
//	    0x28-0x2F  XXH3-64 checksum of the stored data (uint64 LE)
//	    0x30-0x3F  Reserved (zero)
//	  [JSON header: dtype, shape, id, creation time, attribute state slots]
//	  [Padding to a 64-byte boundary]
//	  [Data: row-major little-endian elements, optionally zstd or lz4 compressed]
//
// The attribute state is an ordered list of JSON values. Names are not
// recorded; the reader decides what each slot means.
//
// Example usage:
//
//	h := serialization.Header{DType: "float64", Shape: []int{3}, State: slots}
//	if err := serialization.WriteFile("b_gsm.dma", h, data, serialization.WriterOptions{Codec: serialization.CodecZstd}); err != nil {
//	    log.Fatal(err)
//	}
//
//	h, data, err := serialization.ReadFile("b_gsm.dma", serialization.ReaderOptions{})
package serialization
