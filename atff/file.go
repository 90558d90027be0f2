package atff

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Neumenon/atff/wire"
)

// DefaultExt is the extension given to compiled files.
const DefaultExt = ".atff"

// OutputPath returns the default output path for an authoring file: the
// input path with its extension replaced by ext.
func OutputPath(input, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// Compile parses authoring text and returns its encoding wrapped in the
// requested compression envelope.
func Compile(ctx context.Context, text []byte, c wire.Compression, opts ...Option) ([]byte, error) {
	doc, err := ParseReader(bytes.NewReader(text))
	if err != nil {
		return nil, err
	}
	raw, err := Encode(ctx, doc, opts...)
	if err != nil {
		return nil, err
	}
	return wire.Compress(raw, c)
}

// CompileFile compiles the authoring file at in and writes the result to
// out, returning the digest of the bytes written.
func CompileFile(ctx context.Context, in, out string, c wire.Compression, opts ...Option) (wire.Digest, error) {
	text, err := os.ReadFile(in)
	if err != nil {
		return wire.Digest{}, fmt.Errorf("read input: %w", err)
	}
	data, err := Compile(ctx, text, c, opts...)
	if err != nil {
		return wire.Digest{}, fmt.Errorf("%s: %w", in, err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return wire.Digest{}, fmt.Errorf("write output: %w", err)
	}
	return wire.Sum(data), nil
}

// IsATFF reports whether data is an ATFF file, compressed or not.
func IsATFF(data []byte) bool {
	if wire.Detect(data) != wire.CompressionNone {
		return true
	}
	return bytes.HasPrefix(data, []byte(Magic))
}

// Load decodes data, first removing a zstd or lz4 envelope if present.
func Load(ctx context.Context, data []byte, opts ...Option) (*Document, error) {
	raw, _, err := wire.Decompress(data, 0)
	if err != nil {
		return nil, err
	}
	return Decode(ctx, raw, opts...)
}

// LoadFile reads and decodes the ATFF file at path.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	doc, err := Load(ctx, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
