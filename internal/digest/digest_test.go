package digest

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator(t *testing.T) {
	acc := New()
	_, _ = acc.Write([]byte("hello "))
	_, _ = acc.Write([]byte("world"))

	assert.Equal(t, int64(11), acc.Size())
	// Chunked and one-shot digests agree.
	assert.Equal(t, Sum([]byte("hello world")), acc.Sum())
}

func TestSum_EmptyPayload(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Sum(nil))
}

func TestReader(t *testing.T) {
	acc := New()
	r := NewReader(bytes.NewReader([]byte("pass through")), acc)

	data, err := io.ReadAll(r)
	require.NoError(t, err)

	assert.Equal(t, "pass through", string(data))
	assert.Equal(t, int64(len(data)), acc.Size())
	assert.Equal(t, Sum(data), acc.Sum())
}
