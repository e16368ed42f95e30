package blobgo

import (
	"golang.org/x/time/rate"
)

type options struct {
	logger  *Logger
	limiter *rate.Limiter
}

// Option configures Engine constructor behavior.
type Option func(*options)

// WithLogger configures the engine's logger.
//
// If nil is passed, NoopLogger is used.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithRateLimiter throttles write ingestion to the limiter's rate, in bytes
// per second. Reads and server-side copies are unaffected: they either
// stream out of the store or never transit the engine at all.
//
// If nil is passed, or the limiter's burst is not positive, writes are
// unthrottled (the default). A zero burst would otherwise admit no bytes at
// all and stall the write loop on empty reads.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		if l == nil || l.Burst() <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = l
	}
}
