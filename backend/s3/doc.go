// Package s3 implements the proxied storage strategy on Amazon S3 and
// S3-compatible services via the AWS SDK v2.
//
// Whole-object operations are forwarded to the remote service: reads become
// ranged GETs, writes drive the native multipart upload protocol with
// sequential fixed-size parts, copies stay server-side (CopyObject,
// UploadPartCopy), and multipart assembly never moves payload through the
// caller. Objects are keyed "<inode>/<version>".
//
// All SDK calls go through the Client interface so tests can substitute
// mocks; *s3.Client satisfies it.
package s3
