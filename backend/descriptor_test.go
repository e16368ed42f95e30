package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor_Identity(t *testing.T) {
	store := NewMemoryChunked()
	obj := NewDescriptor("inode-1", "v1", BucketRef{Name: "tenant-a"}, store, NewMemorySink())

	assert.Equal(t, "inode-1", obj.Inode())
	assert.Equal(t, "v1", obj.Version())
	assert.Equal(t, "inode-1/v1", obj.RemoteKey())
	assert.Equal(t, BucketRef{Name: "tenant-a"}, obj.Bucket())
	assert.Same(t, store, obj.Blobstore().(*MemoryChunked))

	_, isPart := obj.Part()
	assert.False(t, isPart)

	part := NewPartDescriptor("inode-1", "v1", 3, BucketRef{Name: "tenant-a"}, store, NewMemorySink())
	n, isPart := part.Part()
	assert.True(t, isPart)
	assert.Equal(t, 3, n)
}

func TestDescriptor_Finalize(t *testing.T) {
	t.Run("BatchesColumns", func(t *testing.T) {
		sink := NewMemorySink()
		obj := NewDescriptor("inode-1", "v1", BucketRef{}, NewMemoryChunked(), sink)

		assert.Equal(t, int64(0), obj.Size())
		assert.Empty(t, obj.Checksum())

		require.NoError(t, obj.Finalize(context.Background(), 42, "deadbeef"))

		assert.Equal(t, int64(42), obj.Size())
		assert.Equal(t, "deadbeef", obj.Checksum())

		size, ok := sink.Column(ColumnSize)
		require.True(t, ok)
		assert.Equal(t, "42", size)
		checksum, ok := sink.Column(ColumnChecksum)
		require.True(t, ok)
		assert.Equal(t, "deadbeef", checksum)
	})

	t.Run("SinkFaultLeavesCacheEmpty", func(t *testing.T) {
		obj := NewDescriptor("inode-1", "v1", BucketRef{}, NewMemoryChunked(), failingSink{})

		err := obj.Finalize(context.Background(), 42, "deadbeef")
		require.Error(t, err)
		assert.Equal(t, int64(0), obj.Size())
		assert.Empty(t, obj.Checksum())
	})
}

type failingSink struct{}

func (failingSink) SetColumns(context.Context, map[string]string) error {
	return errors.New("metadata store unavailable")
}

func TestRange_Len(t *testing.T) {
	assert.Equal(t, int64(1), Range{Start: 0, End: 0}.Len())
	assert.Equal(t, int64(100), Range{Start: 50, End: 149}.Len())
}
