package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/blobgo/backend"
	"golang.org/x/sync/errgroup"
)

func copySource(bucket backend.BucketRef, obj *backend.Descriptor) string {
	return bucket.Name + "/" + obj.RemoteKey()
}

// Copy performs a server-side copy from src (in srcBucket) to dst. No
// payload transits the caller.
func (s *Store) Copy(ctx context.Context, src *backend.Descriptor, srcBucket backend.BucketRef, dst *backend.Descriptor) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dst.RemoteKey()),
		CopySource: aws.String(copySource(srcBucket, src)),
	})
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", src.RemoteKey(), dst.RemoteKey(), err)
	}
	return nil
}

// CopyParts assembles dst out of the source parts via server-side part copy:
// one UploadPartCopy per source part, 1-indexed in source order, fanned out
// under the configured concurrency ceiling. notify fires before each part
// copy is dispatched. After completion the remote service's object metadata
// supplies the final size and checksum, since the payload never passed
// through local checksum computation.
func (s *Store) CopyParts(ctx context.Context, parts []backend.SourcePart, dst *backend.Descriptor, notify backend.Notifier) (int64, string, error) {
	create, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(dst.RemoteKey()),
	})
	if err != nil {
		return 0, "", fmt.Errorf("copy parts %s: create upload: %w", dst.RemoteKey(), err)
	}
	uploadID := create.UploadId

	completed := make([]types.CompletedPart, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.copyConcurrency)
	for i, part := range parts {
		num := int32(i + 1)
		if notify != nil {
			notify(backend.Event{Kind: backend.EventPart, Part: i + 1})
		}
		g.Go(func() error {
			out, err := s.client.UploadPartCopy(gctx, &s3.UploadPartCopyInput{
				Bucket:     aws.String(s.bucket),
				Key:        aws.String(dst.RemoteKey()),
				UploadId:   uploadID,
				PartNumber: aws.Int32(num),
				CopySource: aws.String(copySource(part.Bucket, part.Object)),
			})
			if err != nil {
				return fmt.Errorf("copy part %d from %s: %w", num, part.Object.RemoteKey(), err)
			}
			completed[i] = types.CompletedPart{
				PartNumber: aws.Int32(num),
				ETag:       out.CopyPartResult.ETag,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.abortUpload(ctx, dst, uploadID)
		return 0, "", fmt.Errorf("copy parts %s: %w", dst.RemoteKey(), err)
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(dst.RemoteKey()),
		UploadId: uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		s.abortUpload(ctx, dst, uploadID)
		return 0, "", fmt.Errorf("copy parts %s: complete upload: %w", dst.RemoteKey(), err)
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(dst.RemoteKey()),
	})
	if err != nil {
		return 0, "", fmt.Errorf("copy parts %s: head: %w", dst.RemoteKey(), err)
	}

	return aws.ToInt64(head.ContentLength), strings.Trim(aws.ToString(head.ETag), `"`), nil
}

func (s *Store) abortUpload(ctx context.Context, dst *backend.Descriptor, uploadID *string) {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(dst.RemoteKey()),
		UploadId: uploadID,
	})
	if err != nil {
		s.logger.Warn("multipart abort failed",
			"bucket", s.bucket,
			"key", dst.RemoteKey(),
			"error", err,
		)
	}
}
