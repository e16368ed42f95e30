package blobgo

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/hupe1980/blobgo/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closableBuffer is an in-memory sink that records Close calls.
type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (c *closableBuffer) Close() error {
	c.closed = true
	return nil
}

func TestReadRange_Chunked(t *testing.T) {
	ctx := context.Background()
	engine := New()

	// Small geometry so ranges cross both chunk and block seams.
	store := backend.NewMemoryChunked(backend.WithMaxChunk(16), backend.WithMaxBlock(64))
	obj := chunkedObj("read-1", "v1", store)
	data := payload(200)
	require.NoError(t, engine.WriteFrom(ctx, io.NopCloser(bytes.NewReader(data)), obj))

	t.Run("EverySubrange", func(t *testing.T) {
		for start := int64(0); start < int64(len(data)); start += 7 {
			for end := start; end < int64(len(data)); end += 11 {
				var sink closableBuffer
				err := engine.ReadRange(ctx, obj, &sink, backend.Range{Start: start, End: end})
				require.NoError(t, err, "range [%d,%d]", start, end)
				assert.Equal(t, data[start:end+1], sink.Bytes(), "range [%d,%d]", start, end)
			}
		}
	})

	t.Run("SingleByteAtBlockSeam", func(t *testing.T) {
		var sink closableBuffer
		require.NoError(t, engine.ReadRange(ctx, obj, &sink, backend.Range{Start: 64, End: 64}))
		assert.Equal(t, data[64:65], sink.Bytes())
	})

	t.Run("ClosesSink", func(t *testing.T) {
		var sink closableBuffer
		require.NoError(t, engine.ReadRange(ctx, obj, &sink, backend.Range{Start: 0, End: 9}))
		assert.True(t, sink.closed)
	})

	t.Run("StartBeyondSize", func(t *testing.T) {
		var sink closableBuffer
		err := engine.ReadRange(ctx, obj, &sink, backend.Range{Start: int64(len(data)), End: int64(len(data)) + 10})
		var rerr *ErrRangeUnsatisfiable
		require.ErrorAs(t, err, &rerr)
		assert.True(t, sink.closed)
	})

	t.Run("EndBeyondSize", func(t *testing.T) {
		var sink closableBuffer
		err := engine.ReadRange(ctx, obj, &sink, backend.Range{Start: 190, End: 500})
		var rerr *ErrRangeUnsatisfiable
		require.ErrorAs(t, err, &rerr)
	})

	t.Run("InvertedRange", func(t *testing.T) {
		var sink closableBuffer
		err := engine.ReadRange(ctx, obj, &sink, backend.Range{Start: 10, End: 5})
		var rerr *ErrRangeUnsatisfiable
		require.ErrorAs(t, err, &rerr)
	})

	t.Run("NegativeStart", func(t *testing.T) {
		var sink closableBuffer
		err := engine.ReadRange(ctx, obj, &sink, backend.Range{Start: -1, End: 5})
		var rerr *ErrRangeUnsatisfiable
		require.ErrorAs(t, err, &rerr)
	})

	t.Run("UnknownObject", func(t *testing.T) {
		missing := chunkedObj("no-such", "v1", store)
		var sink closableBuffer
		err := engine.ReadRange(ctx, missing, &sink, backend.Range{Start: 0, End: 9})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReadRange_Proxied(t *testing.T) {
	ctx := context.Background()
	engine := New()
	remote := backend.NewMemoryRemote()
	store := remote.Bucket("payloads")

	obj := chunkedObj("read-p1", "v1", store)
	data := payload(1_000)
	require.NoError(t, engine.WriteFrom(ctx, io.NopCloser(bytes.NewReader(data)), obj))

	t.Run("Subrange", func(t *testing.T) {
		var sink closableBuffer
		require.NoError(t, engine.ReadRange(ctx, obj, &sink, backend.Range{Start: 100, End: 299}))
		assert.Equal(t, data[100:300], sink.Bytes())
	})

	t.Run("FullObject", func(t *testing.T) {
		var sink closableBuffer
		require.NoError(t, engine.ReadRange(ctx, obj, &sink, backend.Range{Start: 0, End: int64(len(data)) - 1}))
		assert.Equal(t, data, sink.Bytes())
	})

	t.Run("UnknownObject", func(t *testing.T) {
		missing := chunkedObj("no-such", "v1", store)
		var sink closableBuffer
		err := engine.ReadRange(ctx, missing, &sink, backend.Range{Start: 0, End: 9})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
