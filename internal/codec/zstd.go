package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdCompressor wraps klauspost/compress/zstd. Encoders/decoders are kept
// around and reused across calls per the library's own guidance, rather than
// built fresh per payload.
type zstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor() (Compressor, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: failed to create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("codec: failed to create zstd decoder: %w", err)
	}

	return &zstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (c *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return c.encoder.EncodeAll(data, nil), nil
}

func (c *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd decode failed: %w", err)
	}
	return out, nil
}
