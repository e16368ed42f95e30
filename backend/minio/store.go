package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hupe1980/blobgo/backend"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultChunkSize is the remote service's minimum multipart part size.
const DefaultChunkSize = 5 * 1024 * 1024

// Config configures the MinIO proxied store.
type Config struct {
	// Endpoint is the service host:port. Required by NewClient.
	Endpoint string

	// AccessKey and SecretKey are the service credentials.
	AccessKey string
	SecretKey string

	// Secure enables TLS.
	Secure bool

	// Bucket is the remote namespace all objects live in. Required.
	Bucket string

	// ChunkSize is the upload part size in bytes. Default 5 MiB.
	ChunkSize int64

	// Logger receives best-effort delete diagnostics. Default slog.Default.
	Logger *slog.Logger
}

// NewClient builds a *minio.Client from the config.
func NewClient(cfg Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return client, nil
}

// Store implements backend.Proxied on MinIO.
type Store struct {
	client    *minio.Client
	bucket    string
	chunkSize int64
	logger    *slog.Logger
}

// NewStore creates a proxied store over the given client.
func NewStore(client *minio.Client, cfg Config) *Store {
	s := &Store{
		client:    client,
		bucket:    cfg.Bucket,
		chunkSize: cfg.ChunkSize,
		logger:    cfg.Logger,
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ProxiedBucket returns the remote bucket this store addresses.
func (s *Store) ProxiedBucket() backend.BucketRef {
	return backend.BucketRef{Name: s.bucket}
}

// Converge creates the bucket if absent. A bucket already owned by the
// caller is success; any other fault propagates.
func (s *Store) Converge(ctx context.Context) error {
	err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return fmt.Errorf("make bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Get issues a ranged GET for the object and streams it into sink. The
// caller owns range validation.
func (s *Store) Get(ctx context.Context, obj *backend.Descriptor, sink io.Writer, rng *backend.Range) error {
	opts := minio.GetObjectOptions{}
	if rng != nil {
		if err := opts.SetRange(rng.Start, rng.End); err != nil {
			return fmt.Errorf("get %s: %w", obj.RemoteKey(), err)
		}
	}

	reader, err := s.client.GetObject(ctx, s.bucket, obj.RemoteKey(), opts)
	if err != nil {
		return fmt.Errorf("get %s: %w", obj.RemoteKey(), err)
	}
	defer func() { _ = reader.Close() }()

	if _, err := io.Copy(sink, reader); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return fmt.Errorf("get %s: %w", obj.RemoteKey(), backend.ErrNotFound)
		}
		return fmt.Errorf("get %s: stream body: %w", obj.RemoteKey(), err)
	}
	return nil
}

// Put uploads source via the multipart protocol with the configured part
// size; minio-go uploads sequential parts for streams of unknown length.
func (s *Store) Put(ctx context.Context, obj *backend.Descriptor, source io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucket, obj.RemoteKey(), source, -1, minio.PutObjectOptions{
		PartSize: uint64(s.chunkSize),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", obj.RemoteKey(), err)
	}
	return nil
}

// Copy performs a server-side copy from src (in srcBucket) to dst.
func (s *Store) Copy(ctx context.Context, src *backend.Descriptor, srcBucket backend.BucketRef, dst *backend.Descriptor) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dst.RemoteKey()},
		minio.CopySrcOptions{Bucket: srcBucket.Name, Object: src.RemoteKey()},
	)
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src.RemoteKey(), dst.RemoteKey(), err)
	}
	return nil
}

// CopyParts assembles dst from the source parts with a server-side compose;
// the remote copies each part, no payload transits the caller. The final
// size and checksum come from the remote's object metadata.
func (s *Store) CopyParts(ctx context.Context, parts []backend.SourcePart, dst *backend.Descriptor, notify backend.Notifier) (int64, string, error) {
	srcs := make([]minio.CopySrcOptions, len(parts))
	for i, part := range parts {
		if notify != nil {
			notify(backend.Event{Kind: backend.EventPart, Part: i + 1})
		}
		srcs[i] = minio.CopySrcOptions{
			Bucket: part.Bucket.Name,
			Object: part.Object.RemoteKey(),
		}
	}

	_, err := s.client.ComposeObject(ctx,
		minio.CopyDestOptions{Bucket: s.bucket, Object: dst.RemoteKey()},
		srcs...,
	)
	if err != nil {
		return 0, "", fmt.Errorf("copy parts %s: %w", dst.RemoteKey(), err)
	}

	info, err := s.client.StatObject(ctx, s.bucket, dst.RemoteKey(), minio.StatObjectOptions{})
	if err != nil {
		return 0, "", fmt.Errorf("copy parts %s: stat: %w", dst.RemoteKey(), err)
	}
	return info.Size, strings.Trim(info.ETag, `"`), nil
}

// Delete removes the object. Delete is advisory cleanup: not-found and
// remote faults are logged and swallowed.
func (s *Store) Delete(ctx context.Context, obj *backend.Descriptor) error {
	err := s.client.RemoveObject(ctx, s.bucket, obj.RemoteKey(), minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code != "NoSuchKey" && errResp.Code != "NotFound" {
			s.logger.Warn("object delete failed",
				"bucket", s.bucket,
				"key", obj.RemoteKey(),
				"error", err,
			)
		}
	}
	return nil
}
