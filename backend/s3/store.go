package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/hupe1980/blobgo/backend"
)

// isNotFound matches both the modeled NoSuchKey error and the generic
// not-found codes some S3-compatible services return.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

// Client is the interface for the S3 operations the store uses.
// *s3.Client satisfies it; tests substitute mocks.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	UploadPartCopy(ctx context.Context, params *s3.UploadPartCopyInput, optFns ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Store implements backend.Proxied on S3.
type Store struct {
	client          Client
	uploader        *manager.Uploader
	bucket          string
	chunkSize       int64
	copyConcurrency int
	logger          *slog.Logger
}

// NewStore creates a proxied store over the given client.
func NewStore(client Client, cfg Config) *Store {
	s := &Store{
		client:          client,
		bucket:          cfg.Bucket,
		chunkSize:       cfg.ChunkSize,
		copyConcurrency: cfg.CopyConcurrency,
		logger:          cfg.Logger,
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	if s.copyConcurrency <= 0 {
		s.copyConcurrency = DefaultCopyConcurrency
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	// Concurrency 1 keeps parts sequential, so part numbers follow stream
	// order without coordination.
	s.uploader = manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = s.chunkSize
		u.Concurrency = 1
	})
	return s
}

// ProxiedBucket returns the remote bucket this store addresses.
func (s *Store) ProxiedBucket() backend.BucketRef {
	return backend.BucketRef{Name: s.bucket}
}

// Converge creates the bucket if absent. A bucket already owned by the
// caller is success; any other fault propagates.
func (s *Store) Converge(ctx context.Context) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Get issues a ranged GET for the object and streams the body into sink.
// The caller owns range validation.
func (s *Store) Get(ctx context.Context, obj *backend.Descriptor, sink io.Writer, rng *backend.Range) error {
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj.RemoteKey()),
	}
	if rng != nil {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End))
	}

	resp, err := s.client.GetObject(ctx, input)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("get %s: %w", obj.RemoteKey(), backend.ErrNotFound)
		}
		return fmt.Errorf("get %s: %w", obj.RemoteKey(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := io.Copy(sink, resp.Body); err != nil {
		return fmt.Errorf("get %s: stream body: %w", obj.RemoteKey(), err)
	}
	return nil
}

// Put uploads source via the multipart protocol, reading sequential parts of
// the configured chunk size; a short final part completes the upload.
func (s *Store) Put(ctx context.Context, obj *backend.Descriptor, source io.Reader) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj.RemoteKey()),
		Body:   source,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", obj.RemoteKey(), err)
	}
	return nil
}

// Delete removes the object. Delete is advisory cleanup: not-found and
// remote faults are logged and swallowed.
func (s *Store) Delete(ctx context.Context, obj *backend.Descriptor) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(obj.RemoteKey()),
	})
	if err != nil && !isNotFound(err) {
		s.logger.Warn("object delete failed",
			"bucket", s.bucket,
			"key", obj.RemoteKey(),
			"error", err,
		)
	}
	return nil
}
