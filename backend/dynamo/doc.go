// Package dynamo implements the chunked storage strategy on DynamoDB.
//
// An object's payload is stored as one partition per (inode, version) pair,
// with one item per chunk:
//
//   - Partition key: blob (string) - "<inode>/<version>"
//   - Sort key: coord (string) - zero-padded "<block>#<offset>" so that
//     lexicographic order equals (block, offset) order
//   - Attributes: block (N), off (N), chunksize (N), enc (S), data (B)
//
// A block's start-of-block marker is the zero-length chunk at (block, 0).
// Chunk payloads are passed through the configured codec before storage;
// the codec name is persisted per item so chunks stay readable after a
// configuration change.
//
// Create the table out-of-band, or let Converge do it:
//
//	aws dynamodb create-table \
//	  --table-name blobgo-chunks \
//	  --attribute-definitions AttributeName=blob,AttributeType=S AttributeName=coord,AttributeType=S \
//	  --key-schema AttributeName=blob,KeyType=HASH AttributeName=coord,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo
