package backend

import (
	"context"
	"strconv"
	"sync"
)

// Column names the engine persists after a completed write or copy.
const (
	ColumnSize     = "size"
	ColumnChecksum = "checksum"
)

// ColumnSink persists descriptor metadata columns. The metadata layer that
// owns object records supplies the implementation.
//
// SetColumns writes all given columns in one batch so a reader never observes
// a partially-finalized size/checksum pair.
type ColumnSink interface {
	SetColumns(ctx context.Context, cols map[string]string) error
}

// Descriptor identifies one version of one stored object and carries the
// backend strategy responsible for its payload.
//
// Descriptors are constructed by the request layer per operation. Only the
// streaming engine mutates them, and only the size and checksum columns.
type Descriptor struct {
	inode   string
	version string
	part    int // -1 when the object is not a multipart part
	bucket  BucketRef
	store   Backend
	sink    ColumnSink

	mu   sync.Mutex
	cols map[string]string
}

// NewDescriptor binds an object version to a backend and a column sink.
func NewDescriptor(inode, version string, bucket BucketRef, store Backend, sink ColumnSink) *Descriptor {
	return &Descriptor{
		inode:   inode,
		version: version,
		part:    -1,
		bucket:  bucket,
		store:   store,
		sink:    sink,
		cols:    make(map[string]string),
	}
}

// NewPartDescriptor binds one segment of a multipart upload. Part numbers
// are 1-indexed. The metadata layer mints a distinct version per part, so a
// part never collides with its sibling parts or with the assembled object in
// a backend's keyspace; payload is addressed by (inode, version) alone.
func NewPartDescriptor(inode, version string, part int, bucket BucketRef, store Backend, sink ColumnSink) *Descriptor {
	d := NewDescriptor(inode, version, bucket, store, sink)
	d.part = part
	return d
}

// Inode returns the object's opaque inode id.
func (d *Descriptor) Inode() string { return d.inode }

// Version returns the object's opaque version id.
func (d *Descriptor) Version() string { return d.version }

// Part returns the part number and whether this descriptor represents a
// multipart part.
func (d *Descriptor) Part() (int, bool) {
	if d.part < 0 {
		return 0, false
	}
	return d.part, true
}

// Bucket returns the bucket reference the object belongs to.
func (d *Descriptor) Bucket() BucketRef { return d.bucket }

// Blobstore returns the backend strategy bound to this object.
func (d *Descriptor) Blobstore() Backend { return d.store }

// Size returns the persisted payload size, or 0 if the object has not been
// finalized yet.
func (d *Descriptor) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := strconv.ParseInt(d.cols[ColumnSize], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Checksum returns the persisted payload checksum, or "" if the object has
// not been finalized yet.
func (d *Descriptor) Checksum() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cols[ColumnChecksum]
}

// Finalize persists size and checksum through the column sink in a single
// batch and caches them on the descriptor. The engine calls this exactly
// once, after the full payload has been acknowledged as transferred.
func (d *Descriptor) Finalize(ctx context.Context, size int64, checksum string) error {
	cols := map[string]string{
		ColumnSize:     strconv.FormatInt(size, 10),
		ColumnChecksum: checksum,
	}
	if d.sink != nil {
		if err := d.sink.SetColumns(ctx, cols); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.cols[ColumnSize] = cols[ColumnSize]
	d.cols[ColumnChecksum] = cols[ColumnChecksum]
	d.mu.Unlock()
	return nil
}

// RemoteKey returns the object's key in a proxied backend's namespace,
// "<inode>/<version>".
func (d *Descriptor) RemoteKey() string {
	return d.inode + "/" + d.version
}

// MemorySink is an in-memory ColumnSink for tests and embedding.
type MemorySink struct {
	mu   sync.Mutex
	cols map[string]string
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{cols: make(map[string]string)}
}

// SetColumns stores the given columns.
func (m *MemorySink) SetColumns(_ context.Context, cols map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range cols {
		m.cols[k] = v
	}
	return nil
}

// Column returns a stored column value.
func (m *MemorySink) Column(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.cols[key]
	return v, ok
}
