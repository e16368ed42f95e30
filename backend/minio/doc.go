// Package minio implements the proxied storage strategy on MinIO and other
// S3-compatible services via minio-go.
//
// It mirrors the s3 package's behavior with the native MinIO client:
// ranged GetObject reads, streaming multipart PutObject writes, server-side
// CopyObject, and ComposeObject for multipart assembly. Objects are keyed
// "<inode>/<version>".
package minio
