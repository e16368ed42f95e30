package blobgo

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/blobgo/backend"
)

// Logger wraps slog.Logger with blobgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithObject adds the object's identity fields to the logger.
func (l *Logger) WithObject(obj *backend.Descriptor) *Logger {
	return &Logger{
		Logger: l.Logger.With("inode", obj.Inode(), "version", obj.Version()),
	}
}

// WithBucket adds a bucket field to the logger.
func (l *Logger) WithBucket(bucket backend.BucketRef) *Logger {
	return &Logger{
		Logger: l.Logger.With("bucket", bucket.Name),
	}
}

// LogRead logs a ranged read.
func (l *Logger) LogRead(ctx context.Context, obj *backend.Descriptor, rng backend.Range, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"inode", obj.Inode(),
			"version", obj.Version(),
			"start", rng.Start,
			"end", rng.End,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "read completed",
			"inode", obj.Inode(),
			"version", obj.Version(),
			"start", rng.Start,
			"end", rng.End,
		)
	}
}

// LogWrite logs a payload write.
func (l *Logger) LogWrite(ctx context.Context, obj *backend.Descriptor, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"inode", obj.Inode(),
			"version", obj.Version(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "write completed",
			"inode", obj.Inode(),
			"version", obj.Version(),
			"size", size,
		)
	}
}

// LogCopy logs a single-object copy.
func (l *Logger) LogCopy(ctx context.Context, src, dst *backend.Descriptor, err error) {
	if err != nil {
		l.ErrorContext(ctx, "copy failed",
			"src_inode", src.Inode(),
			"src_version", src.Version(),
			"dst_inode", dst.Inode(),
			"dst_version", dst.Version(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "copy completed",
			"src_inode", src.Inode(),
			"src_version", src.Version(),
			"dst_inode", dst.Inode(),
			"dst_version", dst.Version(),
		)
	}
}

// LogCopyParts logs a multipart assembly copy.
func (l *Logger) LogCopyParts(ctx context.Context, parts int, dst *backend.Descriptor, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "copy parts failed",
			"parts", parts,
			"dst_inode", dst.Inode(),
			"dst_version", dst.Version(),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "copy parts completed",
			"parts", parts,
			"dst_inode", dst.Inode(),
			"dst_version", dst.Version(),
			"size", size,
		)
	}
}
