package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Compressor wraps pierrec/lz4/v4's streaming Writer/Reader.
type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("codec: lz4 write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: lz4 close failed: %w", err)
	}

	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: lz4 read failed: %w", err)
	}
	return out, nil
}
