// Package backend defines the storage strategies an object's payload can be
// bound to, and the descriptor type that carries that binding.
//
// A backend implements exactly one of two capabilities:
//
//   - Chunked: the payload lives as an ordered sequence of blocks, each block
//     an ordered sequence of variable-length chunks in a column-oriented
//     store, addressed by (inode, version, block, offset).
//   - Proxied: whole-object operations are forwarded to a remote object
//     storage service, including its native multipart upload protocol.
//
// The streaming engine in the root package dispatches on the capability once
// per object; backends never see checksums or byte ranges beyond their own
// addressing scheme.
package backend

import (
	"context"
	"io"
)

// BucketRef identifies the remote namespace a proxied backend addresses.
// Name is the only attribute the storage layer needs.
type BucketRef struct {
	Name string
}

// Range is an inclusive byte range, S3-style: Start and End both identify
// bytes that are part of the requested span.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes the range covers.
func (r Range) Len() int64 {
	return r.End - r.Start + 1
}

// Chunk is a contiguous byte run within a block.
//
// Block is the global byte offset at which the chunk's block starts; blocks
// are created at strictly increasing offsets beginning at 0. Offset is
// relative to the block start. The start-of-block marker is the zero-length
// chunk at (block, 0), written by StartBlock so a block is enumerable before
// any data lands in it.
type Chunk struct {
	Block  int64
	Offset int64
	Data   []byte
}

// EventKind classifies copy progress notifications.
type EventKind int

const (
	// EventPart is emitted once before each source part is copied.
	EventPart EventKind = iota
	// EventBlock is emitted once per destination block during a chunked
	// copy-parts assembly.
	EventBlock
	// EventChunk is emitted once per chunk copied.
	EventChunk
)

// Event describes one unit of copy work about to be performed.
type Event struct {
	Kind   EventKind
	Part   int
	Block  int64
	Offset int64
	Bytes  int64
}

// Notifier receives copy progress events. It is invoked synchronously,
// in-line with the work, so an orchestrating layer can bound concurrency or
// emit progress. It carries no return value and never affects control flow.
type Notifier func(Event)

// SourcePart pairs one part of a multipart upload with the bucket it lives
// in. Parts are consumed read-only, in slice order.
type SourcePart struct {
	Object *Descriptor
	Bucket BucketRef
}

// Backend is the contract every storage strategy satisfies.
type Backend interface {
	// Converge provisions the underlying storage idempotently: create if
	// absent, and treat "already exists and owned by us" as success.
	Converge(ctx context.Context) error

	// Delete removes an object's payload. Delete is advisory cleanup:
	// implementations log and swallow not-found and remote faults rather
	// than propagating them.
	Delete(ctx context.Context, obj *Descriptor) error
}

// Chunked is the capability of backends that store payload as block/chunk
// pairs in a column-oriented store.
type Chunked interface {
	Backend

	// MaxChunk returns the chunk-size ceiling in bytes.
	MaxChunk() int

	// Blocks returns the object's block start offsets in ascending order.
	Blocks(ctx context.Context, obj *Descriptor) ([]int64, error)

	// Chunks returns the block's chunks in ascending offset order, starting
	// at the first offset >= fromOffset.
	Chunks(ctx context.Context, obj *Descriptor, block, fromOffset int64) ([]Chunk, error)

	// IsBoundary reports whether a write landing at the given block-relative
	// offset should start a new block. The policy is best-effort: the write
	// path has no mid-stream completion signal, so a caller can overshoot
	// the threshold by at most one chunk.
	IsBoundary(block, offset int64) bool

	// StartBlock makes a new block enumerable by writing its zero-length
	// marker chunk at offset 0.
	StartBlock(ctx context.Context, obj *Descriptor, block int64) error

	// WriteChunk stores exactly payload at (block, offset) and returns the
	// byte count written. Chunks are write-once and never merged.
	WriteChunk(ctx context.Context, obj *Descriptor, block, offset int64, payload []byte) (int, error)
}

// Proxied is the capability of backends that forward whole-object operations
// to a remote object storage service.
type Proxied interface {
	Backend

	// ProxiedBucket returns the remote bucket this backend addresses.
	ProxiedBucket() BucketRef

	// Get streams the object bytes into sink. A nil rng requests the whole
	// object; the caller owns range validation.
	Get(ctx context.Context, obj *Descriptor, sink io.Writer, rng *Range) error

	// Put uploads source as the object's payload via the remote service's
	// multipart protocol, reading fixed-size parts sequentially.
	Put(ctx context.Context, obj *Descriptor, source io.Reader) error

	// Copy performs a server-side copy from src (in srcBucket) to dst. No
	// payload transits the caller.
	Copy(ctx context.Context, src *Descriptor, srcBucket BucketRef, dst *Descriptor) error

	// CopyParts assembles dst out of the given source parts via server-side
	// part copy, in order, 1-indexed. notify is invoked before each part
	// copy. The returned size and checksum come from the remote service's
	// object metadata once the multipart upload completes.
	CopyParts(ctx context.Context, parts []SourcePart, dst *Descriptor, notify Notifier) (int64, string, error)
}
