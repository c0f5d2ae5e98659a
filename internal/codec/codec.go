// Package codec implements the optional, off-by-default payload compression
// layer (SPEC_FULL.md §4.6, C7). It runs strictly between the Store facade's
// argument/return bytes and the record layer: the on-flash header's length
// field always matches whatever bytes the chosen Compressor produced, so the
// record format itself (package record) never changes shape.
package codec

import "fmt"

// Algorithm selects which Compressor a Store uses.
type Algorithm int

const (
	// NoCompression stores payloads byte-for-byte, unchanged. This is the
	// default, and the only algorithm every invariant in SPEC_FULL.md §3/§8
	// assumes unless a test says otherwise.
	NoCompression Algorithm = iota
	Zstd
	LZ4
	XZ
)

func (a Algorithm) String() string {
	switch a {
	case NoCompression:
		return "none"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	case XZ:
		return "xz"
	default:
		return fmt.Sprintf("codec.Algorithm(%d)", int(a))
	}
}

// Compressor compresses and decompresses payload bytes.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

type passthroughCompressor struct{}

func (passthroughCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (passthroughCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

// New returns the Compressor for algorithm, or an error if the algorithm is
// unknown.
func New(algorithm Algorithm) (Compressor, error) {
	switch algorithm {
	case NoCompression:
		return passthroughCompressor{}, nil
	case Zstd:
		return newZstdCompressor()
	case LZ4:
		return lz4Compressor{}, nil
	case XZ:
		return xzCompressor{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown algorithm %v", algorithm)
	}
}
