package blobgo

import (
	"context"
	"fmt"

	"github.com/hupe1980/blobgo/backend"
	"github.com/hupe1980/blobgo/internal/digest"
)

// Copy duplicates src's payload into dst. When both objects are proxied the
// copy stays server-side; when both are chunked the payload is re-issued
// block-for-block, chunk-for-chunk, preserving offsets. Either way the
// size and checksum columns are copied from src rather than recomputed,
// since the bytes are identical by construction.
//
// Pairing a chunked object with a proxied one fails with
// ErrIncompatibleBackends: the metadata layer never binds one object version
// to two strategies, so a mixed pair indicates a routing bug upstream.
func (e *Engine) Copy(ctx context.Context, src, dst *backend.Descriptor) (err error) {
	defer func() {
		e.logger.LogCopy(ctx, src, dst, err)
	}()

	if sp, ok := src.Blobstore().(backend.Proxied); ok {
		dp, ok := dst.Blobstore().(backend.Proxied)
		if !ok {
			return ErrIncompatibleBackends
		}
		if err := dp.Copy(ctx, src, sp.ProxiedBucket(), dst); err != nil {
			return err
		}
		return dst.Finalize(ctx, src.Size(), src.Checksum())
	}

	sc, ok := src.Blobstore().(backend.Chunked)
	if !ok {
		return ErrUnsupportedBackend
	}
	dc, ok := dst.Blobstore().(backend.Chunked)
	if !ok {
		return ErrIncompatibleBackends
	}

	blocks, err := sc.Blocks(ctx, src)
	if err != nil {
		return err
	}
	for _, block := range blocks {
		if err := dc.StartBlock(ctx, dst, block); err != nil {
			return err
		}
		chunks, err := sc.Chunks(ctx, src, block, 0)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if len(c.Data) == 0 {
				continue
			}
			if _, err := dc.WriteChunk(ctx, dst, block, c.Offset, c.Data); err != nil {
				return err
			}
		}
	}
	return dst.Finalize(ctx, src.Size(), src.Checksum())
}

// CopyParts materializes a completed multipart upload: it assembles dst out
// of the source parts, in order, and finalizes dst's size and checksum once
// all parts are consumed. notify is the progress/backpressure hook; it is
// invoked synchronously per unit of work and never affects control flow.
func (e *Engine) CopyParts(ctx context.Context, parts []backend.SourcePart, dst *backend.Descriptor, notify backend.Notifier) (err error) {
	defer func() {
		e.logger.LogCopyParts(ctx, len(parts), dst, dst.Size(), err)
	}()

	switch be := dst.Blobstore().(type) {
	case backend.Proxied:
		size, checksum, err := be.CopyParts(ctx, parts, dst, notify)
		if err != nil {
			return err
		}
		return dst.Finalize(ctx, size, checksum)
	case backend.Chunked:
		return e.copyPartsChunked(ctx, be, parts, dst, notify)
	default:
		return ErrUnsupportedBackend
	}
}

// copyPartsChunked concatenates chunked parts by remapping each source block
// to gOffset+block in the destination, where gOffset is the byte size of all
// preceding parts. Part payloads stay disjoint in the destination by
// construction, so concurrent callers never contend on coordinates.
//
// One running checksum spans all parts. It is fed from fresh copies of the
// chunk bytes so the digest pass cannot interfere with a later or concurrent
// read of the same payload.
func (e *Engine) copyPartsChunked(ctx context.Context, be backend.Chunked, parts []backend.SourcePart, dst *backend.Descriptor, notify backend.Notifier) error {
	var (
		acc     = digest.New()
		gOffset int64
	)

	for i, part := range parts {
		src, ok := part.Object.Blobstore().(backend.Chunked)
		if !ok {
			return fmt.Errorf("part %d: %w", i+1, ErrIncompatibleBackends)
		}

		var partBytes int64
		blocks, err := src.Blocks(ctx, part.Object)
		if err != nil {
			return fmt.Errorf("part %d: %w", i+1, err)
		}
		for _, block := range blocks {
			dstBlock := gOffset + block
			if notify != nil {
				notify(backend.Event{Kind: backend.EventBlock, Part: i + 1, Block: dstBlock})
			}
			if err := be.StartBlock(ctx, dst, dstBlock); err != nil {
				return fmt.Errorf("part %d: %w", i+1, err)
			}

			chunks, err := src.Chunks(ctx, part.Object, block, 0)
			if err != nil {
				return fmt.Errorf("part %d: %w", i+1, err)
			}
			for _, c := range chunks {
				if len(c.Data) == 0 {
					continue
				}
				if notify != nil {
					notify(backend.Event{
						Kind:   backend.EventChunk,
						Part:   i + 1,
						Block:  dstBlock,
						Offset: c.Offset,
						Bytes:  int64(len(c.Data)),
					})
				}
				payload := make([]byte, len(c.Data))
				copy(payload, c.Data)
				if _, err := be.WriteChunk(ctx, dst, dstBlock, c.Offset, payload); err != nil {
					return fmt.Errorf("part %d: %w", i+1, err)
				}
				_, _ = acc.Write(c.Data)
				partBytes += int64(len(c.Data))
			}
		}
		gOffset += partBytes
	}

	return dst.Finalize(ctx, gOffset, acc.Sum())
}
