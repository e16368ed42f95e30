package blobgo

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Engine is the strategy-agnostic streaming layer. Each entry point inspects
// the object descriptor's bound backend capability and dispatches once per
// object, not per chunk.
//
// An Engine is stateless apart from its configuration and safe for
// concurrent use; all per-operation state (streams, buffers, checksum
// accumulators) is scoped to a single invocation.
type Engine struct {
	logger  *Logger
	limiter *rate.Limiter
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	o := options{
		logger: NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		logger:  o.logger,
		limiter: o.limiter,
	}
}

// throttle wraps r with the configured rate limiter, if any.
func (e *Engine) throttle(ctx context.Context, r io.Reader) io.Reader {
	if e.limiter == nil {
		return r
	}
	return &throttledReader{ctx: ctx, r: r, limiter: e.limiter}
}

// throttledReader paces reads to the limiter's byte rate. Reads are capped
// to the limiter's burst so WaitN never sees an unsatisfiable request.
type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if burst := t.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
