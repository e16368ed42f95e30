package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 compresses chunk payloads with the LZ4 block format. Incompressible
// payloads are stored verbatim, flagged by a one-byte header.
type LZ4 struct{}

const (
	lz4Raw        = 0
	lz4Compressed = 1
)

// Encode compresses raw, falling back to verbatim storage when the block
// does not shrink.
func (LZ4) Encode(raw []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(raw))
	buf := make([]byte, 1+bound)

	n, err := lz4.CompressBlock(raw, buf[1:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 encode: %w", err)
	}
	if n == 0 || n >= len(raw) {
		out := make([]byte, 1+len(raw))
		out[0] = lz4Raw
		copy(out[1:], raw)
		return out, nil
	}
	buf[0] = lz4Compressed
	return buf[:1+n], nil
}

// Decode reverses Encode. rawLen sizes the decompression buffer.
func (LZ4) Decode(stored []byte, rawLen int) ([]byte, error) {
	if len(stored) < 1 {
		return nil, fmt.Errorf("lz4 decode: empty chunk")
	}
	body := stored[1:]
	switch stored[0] {
	case lz4Raw:
		if len(body) != rawLen {
			return nil, fmt.Errorf("lz4 decode: got %d raw bytes, chunksize says %d", len(body), rawLen)
		}
		out := make([]byte, rawLen)
		copy(out, body)
		return out, nil
	case lz4Compressed:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decode: %w", err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("lz4 decode: got %d bytes, chunksize says %d", n, rawLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lz4 decode: unknown header byte %d", stored[0])
	}
}

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }
