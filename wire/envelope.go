package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the optional whole-file envelope around an ATFF
// payload. The envelope is not part of the ATFF layout: a compressed file
// decompresses to exactly the bytes the encoder produced.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

// DefaultMaxDecompressed bounds the size of a decompressed payload (256 MiB).
const DefaultMaxDecompressed = 256 * 1024 * 1024

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// ErrTooLarge is returned when a decompressed payload exceeds its limit.
var ErrTooLarge = errors.New("atff: decompressed payload too large")

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression name.
func ParseCompression(s string) (Compression, bool) {
	switch s {
	case "", "none":
		return CompressionNone, true
	case "zstd":
		return CompressionZstd, true
	case "lz4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}

// Detect reports which envelope, if any, wraps data.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Compress wraps data in the given envelope.
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil

	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("atff: unknown compression %s", c)
	}
}

// Decompress removes a detected envelope from data, returning the inner
// payload and the envelope found. Data with no envelope is returned as is.
// A maxSize <= 0 selects DefaultMaxDecompressed.
func Decompress(data []byte, maxSize int) ([]byte, Compression, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxDecompressed
	}

	c := Detect(data)
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(maxSize)),
		)
		if err != nil {
			return nil, c, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, c, fmt.Errorf("zstd decode: %w", err)
		}
		if len(out) > maxSize {
			return nil, c, ErrTooLarge
		}
		return out, c, nil

	case CompressionLZ4:
		zr := lz4.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(io.LimitReader(zr, int64(maxSize)+1))
		if err != nil {
			return nil, c, fmt.Errorf("lz4 decode: %w", err)
		}
		if len(out) > maxSize {
			return nil, c, ErrTooLarge
		}
		return out, c, nil

	default:
		return data, CompressionNone, nil
	}
}
