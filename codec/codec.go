// Package codec centralizes chunk payload encoding for the chunked backend.
//
// Codec selection is a breaking-change boundary: chunks written with one
// codec can only be decoded by the same codec, so the column store records
// the codec name alongside every chunk.
package codec

// Codec encodes chunk payloads before they hit the column store and decodes
// them on the way back. Implementations must be safe for concurrent use.
type Codec interface {
	// Encode returns the stored form of raw.
	Encode(raw []byte) ([]byte, error)
	// Decode reverses Encode. rawLen is the original payload length, which
	// the store keeps as the chunk's chunksize column.
	Decode(stored []byte, rawLen int) ([]byte, error)
	// Name is the stable identifier persisted next to the chunk.
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "none":
		return None{}, true
	case "s2":
		return S2{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// Default is the codec used when none is configured.
var Default Codec = None{}

// None stores payloads verbatim.
type None struct{}

// Encode returns raw unchanged.
func (None) Encode(raw []byte) ([]byte, error) { return raw, nil }

// Decode returns stored unchanged.
func (None) Decode(stored []byte, _ int) ([]byte, error) { return stored, nil }

// Name returns "none".
func (None) Name() string { return "none" }
