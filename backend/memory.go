package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/hupe1980/blobgo/internal/digest"
)

const (
	defaultMemoryMaxChunk = 64 * 1024
	defaultMemoryMaxBlock = 1024 * 1024
)

// MemoryChunked is an in-memory Chunked backend for testing and embedding.
// It stores chunks without any external dependency and is safe for
// concurrent use on disjoint (block, offset) coordinates.
type MemoryChunked struct {
	mu       sync.RWMutex
	objects  map[string]map[int64][]Chunk
	maxChunk int
	maxBlock int64
}

// MemoryChunkedOption configures a MemoryChunked backend.
type MemoryChunkedOption func(*MemoryChunked)

// WithMaxChunk overrides the chunk-size ceiling (default 64 KiB).
func WithMaxChunk(n int) MemoryChunkedOption {
	return func(m *MemoryChunked) {
		if n > 0 {
			m.maxChunk = n
		}
	}
}

// WithMaxBlock overrides the block rollover threshold (default 1 MiB).
func WithMaxBlock(n int64) MemoryChunkedOption {
	return func(m *MemoryChunked) {
		if n > 0 {
			m.maxBlock = n
		}
	}
}

// NewMemoryChunked creates an empty in-memory chunked backend.
func NewMemoryChunked(opts ...MemoryChunkedOption) *MemoryChunked {
	m := &MemoryChunked{
		objects:  make(map[string]map[int64][]Chunk),
		maxChunk: defaultMemoryMaxChunk,
		maxBlock: defaultMemoryMaxBlock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func chunkedKey(obj *Descriptor) string {
	return obj.Inode() + "/" + obj.Version()
}

// Converge is a no-op: memory needs no provisioning.
func (m *MemoryChunked) Converge(_ context.Context) error {
	return nil
}

// Delete drops the object's blocks. Missing objects are not an error.
func (m *MemoryChunked) Delete(_ context.Context, obj *Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, chunkedKey(obj))
	return nil
}

// MaxChunk returns the chunk-size ceiling.
func (m *MemoryChunked) MaxChunk() int {
	return m.maxChunk
}

// IsBoundary rolls a block over once it holds maxBlock bytes.
func (m *MemoryChunked) IsBoundary(_, offset int64) bool {
	return offset >= m.maxBlock
}

// Blocks returns the object's block start offsets in ascending order.
func (m *MemoryChunked) Blocks(_ context.Context, obj *Descriptor) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks, ok := m.objects[chunkedKey(obj)]
	if !ok {
		return nil, fmt.Errorf("blocks %s: %w", chunkedKey(obj), ErrNotFound)
	}

	out := make([]int64, 0, len(blocks))
	for b := range blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Chunks returns the block's chunks with offset >= fromOffset, ascending.
func (m *MemoryChunked) Chunks(_ context.Context, obj *Descriptor, block, fromOffset int64) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks, ok := m.objects[chunkedKey(obj)]
	if !ok {
		return nil, fmt.Errorf("chunks %s: %w", chunkedKey(obj), ErrNotFound)
	}

	var out []Chunk
	for _, c := range blocks[block] {
		if c.Offset < fromOffset {
			continue
		}
		// Fresh view so callers can slice freely without aliasing the store.
		data := make([]byte, len(c.Data))
		copy(data, c.Data)
		out = append(out, Chunk{Block: c.Block, Offset: c.Offset, Data: data})
	}
	return out, nil
}

// StartBlock writes the zero-length marker chunk at (block, 0).
func (m *MemoryChunked) StartBlock(_ context.Context, obj *Descriptor, block int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := chunkedKey(obj)
	if m.objects[key] == nil {
		m.objects[key] = make(map[int64][]Chunk)
	}
	if len(m.objects[key][block]) == 0 {
		m.objects[key][block] = []Chunk{{Block: block, Offset: 0}}
	}
	return nil
}

// WriteChunk stores payload at (block, offset), keeping offsets ascending.
func (m *MemoryChunked) WriteChunk(_ context.Context, obj *Descriptor, block, offset int64, payload []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := chunkedKey(obj)
	if m.objects[key] == nil {
		m.objects[key] = make(map[int64][]Chunk)
	}

	data := make([]byte, len(payload))
	copy(data, payload)
	chunk := Chunk{Block: block, Offset: offset, Data: data}

	chunks := m.objects[key][block]
	i := sort.Search(len(chunks), func(i int) bool { return chunks[i].Offset >= offset })
	if i < len(chunks) && chunks[i].Offset == offset {
		// Marker chunk at offset 0 may be replaced by real data.
		chunks[i] = chunk
	} else {
		chunks = append(chunks, Chunk{})
		copy(chunks[i+1:], chunks[i:])
		chunks[i] = chunk
	}
	m.objects[key][block] = chunks
	return len(payload), nil
}

// MemoryRemote is an in-memory whole-object service. Bucket handles obtained
// from the same remote share state, so server-side copy and copy-parts work
// across buckets the way they do against a real service.
type MemoryRemote struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// NewMemoryRemote creates an empty in-memory remote service.
func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{buckets: make(map[string]map[string][]byte)}
}

// Bucket returns a Proxied backend addressing the named bucket.
func (r *MemoryRemote) Bucket(name string) *MemoryProxied {
	return &MemoryProxied{remote: r, bucket: BucketRef{Name: name}}
}

func (r *MemoryRemote) lookup(bucket, key string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.buckets[bucket][key]
	return data, ok
}

func (r *MemoryRemote) store(bucket, key string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buckets[bucket] == nil {
		r.buckets[bucket] = make(map[string][]byte)
	}
	r.buckets[bucket][key] = data
}

// MemoryProxied is the Proxied backend view of one MemoryRemote bucket.
type MemoryProxied struct {
	remote *MemoryRemote
	bucket BucketRef
}

// ProxiedBucket returns the bucket this handle addresses.
func (p *MemoryProxied) ProxiedBucket() BucketRef {
	return p.bucket
}

// Converge creates the bucket; creating it twice is success.
func (p *MemoryProxied) Converge(_ context.Context) error {
	p.remote.mu.Lock()
	defer p.remote.mu.Unlock()
	if p.remote.buckets[p.bucket.Name] == nil {
		p.remote.buckets[p.bucket.Name] = make(map[string][]byte)
	}
	return nil
}

// Delete removes the object; missing keys are not an error.
func (p *MemoryProxied) Delete(_ context.Context, obj *Descriptor) error {
	p.remote.mu.Lock()
	defer p.remote.mu.Unlock()
	delete(p.remote.buckets[p.bucket.Name], obj.RemoteKey())
	return nil
}

// Get streams the (optionally ranged) object bytes into sink.
func (p *MemoryProxied) Get(_ context.Context, obj *Descriptor, sink io.Writer, rng *Range) error {
	data, ok := p.remote.lookup(p.bucket.Name, obj.RemoteKey())
	if !ok {
		return fmt.Errorf("get %s: %w", obj.RemoteKey(), ErrNotFound)
	}
	if rng != nil {
		start, end := rng.Start, rng.End
		if start < 0 || start >= int64(len(data)) || start > end {
			return fmt.Errorf("get %s: range %d-%d outside object", obj.RemoteKey(), start, end)
		}
		if end >= int64(len(data)) {
			end = int64(len(data)) - 1
		}
		data = data[start : end+1]
	}
	_, err := io.Copy(sink, bytes.NewReader(data))
	return err
}

// Put reads source to completion and stores the payload.
func (p *MemoryProxied) Put(_ context.Context, obj *Descriptor, source io.Reader) error {
	data, err := io.ReadAll(source)
	if err != nil {
		return err
	}
	p.remote.store(p.bucket.Name, obj.RemoteKey(), data)
	return nil
}

// Copy performs a server-side copy between keys.
func (p *MemoryProxied) Copy(_ context.Context, src *Descriptor, srcBucket BucketRef, dst *Descriptor) error {
	data, ok := p.remote.lookup(srcBucket.Name, src.RemoteKey())
	if !ok {
		return fmt.Errorf("copy %s: %w", src.RemoteKey(), ErrNotFound)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	p.remote.store(p.bucket.Name, dst.RemoteKey(), copied)
	return nil
}

// CopyParts concatenates the source parts into dst, in order, and returns
// the assembled object's size and checksum as the remote's metadata would.
func (p *MemoryProxied) CopyParts(_ context.Context, parts []SourcePart, dst *Descriptor, notify Notifier) (int64, string, error) {
	var buf bytes.Buffer
	for i, part := range parts {
		if notify != nil {
			notify(Event{Kind: EventPart, Part: i + 1})
		}
		data, ok := p.remote.lookup(part.Bucket.Name, part.Object.RemoteKey())
		if !ok {
			return 0, "", fmt.Errorf("copy part %d %s: %w", i+1, part.Object.RemoteKey(), ErrNotFound)
		}
		buf.Write(data)
	}
	assembled := buf.Bytes()
	p.remote.store(p.bucket.Name, dst.RemoteKey(), assembled)
	return int64(len(assembled)), digest.Sum(assembled), nil
}
