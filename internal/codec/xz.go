package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// xzCompressor wraps ulikunitz/xz's streaming Writer/Reader.
type xzCompressor struct{}

func (xzCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("codec: failed to create xz writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("codec: xz write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: xz close failed: %w", err)
	}

	return buf.Bytes(), nil
}

func (xzCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("codec: failed to create xz reader: %w", err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("codec: xz read failed: %w", err)
	}
	return out, nil
}
