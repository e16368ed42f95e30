package codec

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2 compresses chunk payloads with the S2 block format. S2 is
// self-describing, so Decode ignores rawLen beyond a sanity check.
type S2 struct{}

// Encode compresses raw.
func (S2) Encode(raw []byte) ([]byte, error) {
	return s2.Encode(nil, raw), nil
}

// Decode decompresses stored and verifies the payload length.
func (S2) Decode(stored []byte, rawLen int) ([]byte, error) {
	out, err := s2.Decode(nil, stored)
	if err != nil {
		return nil, fmt.Errorf("s2 decode: %w", err)
	}
	if len(out) != rawLen {
		return nil, fmt.Errorf("s2 decode: got %d bytes, chunksize says %d", len(out), rawLen)
	}
	return out, nil
}

// Name returns "s2".
func (S2) Name() string { return "s2" }
