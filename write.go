package blobgo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/blobgo/backend"
	"github.com/hupe1980/blobgo/internal/digest"
)

// WriteFrom stores the source stream as the object's payload, computing the
// content checksum on the way through. On success the object's size and
// checksum columns are finalized in one batch; on failure they are left
// untouched, so a partial write is never reported as complete. The source is
// always closed on exit.
func (e *Engine) WriteFrom(ctx context.Context, source io.ReadCloser, obj *backend.Descriptor) (err error) {
	defer func() {
		if cerr := source.Close(); cerr != nil {
			e.logger.WithObject(obj).Warn("source close failed", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
		e.logger.LogWrite(ctx, obj, obj.Size(), err)
	}()

	switch be := obj.Blobstore().(type) {
	case backend.Proxied:
		acc := digest.New()
		if err := be.Put(ctx, obj, digest.NewReader(e.throttle(ctx, source), acc)); err != nil {
			return err
		}
		return obj.Finalize(ctx, acc.Size(), acc.Sum())
	case backend.Chunked:
		return e.writeChunked(ctx, be, obj, source)
	default:
		return ErrUnsupportedBackend
	}
}

// writeChunked reads maxChunk-sized chunks from source, rolling to a new
// block whenever the backend's boundary policy signals one. End of stream is
// the sole termination condition.
func (e *Engine) writeChunked(ctx context.Context, be backend.Chunked, obj *backend.Descriptor, source io.Reader) error {
	var (
		acc        = digest.New()
		r          = e.throttle(ctx, source)
		buf        = make([]byte, be.MaxChunk())
		pos        int64
		blockStart int64
	)

	if err := be.StartBlock(ctx, obj, 0); err != nil {
		return err
	}

	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if pos > blockStart && be.IsBoundary(blockStart, pos-blockStart) {
				blockStart = pos
				if err := be.StartBlock(ctx, obj, blockStart); err != nil {
					return err
				}
			}
			if _, err := be.WriteChunk(ctx, obj, blockStart, pos-blockStart, buf[:n]); err != nil {
				return err
			}
			_, _ = acc.Write(buf[:n])
			pos += int64(n)
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("read source at %d: %w", pos, rerr)
		}
	}

	return obj.Finalize(ctx, pos, acc.Sum())
}
