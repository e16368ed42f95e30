// Package blobgo is the blob-storage engine of an S3-compatible object
// store: a streaming layer that reads, writes, and copies object payloads
// uniformly over structurally different storage strategies, maintaining an
// incremental content checksum as a side effect of writes and copies.
//
// # Storage strategies
//
// Payloads are bound to one of two backend capabilities (see the backend
// package):
//
//   - Chunked: payload stored as blocks of variable-length chunks in a
//     column-oriented store (backend/dynamo, backend.MemoryChunked)
//   - Proxied: whole-object operations forwarded to a remote object storage
//     service with native multipart upload (backend/s3, backend/minio,
//     backend.MemoryProxied)
//
// The engine dispatches on the capability once per object. Backends know
// only their own addressing scheme; the engine is the only component that
// knows about checksums and byte ranges.
//
// # Usage
//
//	engine := blobgo.New()
//	obj := backend.NewDescriptor(inode, version, bucket, store, sink)
//
//	if err := engine.WriteFrom(ctx, body, obj); err != nil {
//	    // size/checksum columns are untouched on failure
//	}
//	err := engine.ReadRange(ctx, obj, sink, backend.Range{Start: 0, End: obj.Size() - 1})
//
// All operations are synchronous: a call blocks until payload transfer
// completes or fails. Concurrency is the caller's fan-out across disjoint
// objects or coordinates; the engine takes no internal locks around block
// and chunk writes.
package blobgo
