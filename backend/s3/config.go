package s3

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	// DefaultChunkSize is the remote service's minimum multipart part size.
	DefaultChunkSize = 5 * 1024 * 1024

	// DefaultCopyConcurrency bounds the part-copy fan-out in CopyParts.
	DefaultCopyConcurrency = 4
)

// Config configures the proxied store and, via NewClient, the SDK client
// behind it.
type Config struct {
	// Endpoint overrides the service endpoint, for S3-compatible services.
	// A custom endpoint implies path-style addressing.
	Endpoint string

	// AccessKey and SecretKey select static credentials. When empty, the
	// default credential chain applies.
	AccessKey string
	SecretKey string

	// Profile selects a shared-config profile.
	Profile string

	// Region overrides the resolved region.
	Region string

	// Bucket is the remote namespace all objects live in. Required.
	Bucket string

	// ChunkSize is the upload part size in bytes. Default 5 MiB, the
	// remote service's minimum multipart part size.
	ChunkSize int64

	// CopyConcurrency bounds concurrent part copies during CopyParts.
	// Default 4.
	CopyConcurrency int

	// Logger receives best-effort delete diagnostics. Default slog.Default.
	Logger *slog.Logger
}

// NewClient builds an *s3.Client from the config, honoring a custom
// endpoint, static credentials, and a shared-config profile.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
