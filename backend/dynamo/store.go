package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/blobgo/backend"
	"github.com/hupe1980/blobgo/codec"
)

const (
	// DefaultMaxChunk leaves headroom under DynamoDB's 400 KB item ceiling.
	DefaultMaxChunk = 256 * 1024

	// DefaultMaxBlock is the block rollover threshold.
	DefaultMaxBlock = 64 * 1024 * 1024
)

// Client is the interface for the DynamoDB operations the store uses.
// *dynamodb.Client satisfies it; tests substitute mocks.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Config configures the DynamoDB chunked store.
type Config struct {
	// TableName is the chunk table. Required.
	TableName string

	// MaxChunk is the chunk-size ceiling in bytes. Default 256 KiB.
	MaxChunk int

	// MaxBlock is the block rollover threshold in bytes. Default 64 MiB.
	// The threshold is best-effort: the write path can overshoot it by at
	// most one chunk.
	MaxBlock int64

	// Codec encodes chunk payloads before storage. Default codec.Default.
	Codec codec.Codec

	// Logger receives best-effort delete diagnostics. Default slog.Default.
	Logger *slog.Logger
}

// Store implements backend.Chunked on DynamoDB.
type Store struct {
	client   Client
	table    string
	maxChunk int
	maxBlock int64
	codec    codec.Codec
	logger   *slog.Logger
}

// NewStore creates a chunked store over the given DynamoDB client.
func NewStore(client Client, cfg Config) *Store {
	s := &Store{
		client:   client,
		table:    cfg.TableName,
		maxChunk: cfg.MaxChunk,
		maxBlock: cfg.MaxBlock,
		codec:    cfg.Codec,
		logger:   cfg.Logger,
	}
	if s.maxChunk <= 0 {
		s.maxChunk = DefaultMaxChunk
	}
	if s.maxBlock <= 0 {
		s.maxBlock = DefaultMaxBlock
	}
	if s.codec == nil {
		s.codec = codec.Default
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func blobKey(obj *backend.Descriptor) string {
	return obj.Inode() + "/" + obj.Version()
}

// coordKey zero-pads block and offset so string order matches numeric order.
func coordKey(block, offset int64) string {
	return fmt.Sprintf("%020d#%020d", block, offset)
}

// MaxChunk returns the chunk-size ceiling.
func (s *Store) MaxChunk() int {
	return s.maxChunk
}

// IsBoundary rolls a block over once it holds MaxBlock bytes.
func (s *Store) IsBoundary(_, offset int64) bool {
	return offset >= s.maxBlock
}

// Converge creates the chunk table if absent. A table that already exists is
// success; any other fault propagates.
func (s *Store) Converge(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("blob"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("coord"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("blob"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("coord"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// StartBlock writes the block's zero-length marker chunk at offset 0.
func (s *Store) StartBlock(ctx context.Context, obj *backend.Descriptor, block int64) error {
	return s.putChunk(ctx, obj, block, 0, nil)
}

// WriteChunk stores payload at (block, offset) and returns the raw byte
// count written.
func (s *Store) WriteChunk(ctx context.Context, obj *backend.Descriptor, block, offset int64, payload []byte) (int, error) {
	if err := s.putChunk(ctx, obj, block, offset, payload); err != nil {
		return 0, err
	}
	return len(payload), nil
}

func (s *Store) putChunk(ctx context.Context, obj *backend.Descriptor, block, offset int64, payload []byte) error {
	stored, err := s.codec.Encode(payload)
	if err != nil {
		return fmt.Errorf("encode chunk %s (%d,%d): %w", blobKey(obj), block, offset, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"blob":      &types.AttributeValueMemberS{Value: blobKey(obj)},
			"coord":     &types.AttributeValueMemberS{Value: coordKey(block, offset)},
			"block":     &types.AttributeValueMemberN{Value: strconv.FormatInt(block, 10)},
			"off":       &types.AttributeValueMemberN{Value: strconv.FormatInt(offset, 10)},
			"chunksize": &types.AttributeValueMemberN{Value: strconv.Itoa(len(payload))},
			"enc":       &types.AttributeValueMemberS{Value: s.codec.Name()},
			"data":      &types.AttributeValueMemberB{Value: stored},
		},
	})
	if err != nil {
		return fmt.Errorf("put chunk %s (%d,%d): %w", blobKey(obj), block, offset, err)
	}
	return nil
}

// Blocks returns the object's block start offsets in ascending order.
func (s *Store) Blocks(ctx context.Context, obj *backend.Descriptor) ([]int64, error) {
	var (
		blocks []int64
		last   int64 = -1
	)

	err := s.queryPages(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#b = :blob"),
		ExpressionAttributeNames: map[string]string{
			"#b":   "blob",
			"#blk": "block",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":blob": &types.AttributeValueMemberS{Value: blobKey(obj)},
		},
		ProjectionExpression: aws.String("#blk"),
	}, func(item map[string]types.AttributeValue) error {
		block, err := numberAttr(item, "block")
		if err != nil {
			return err
		}
		// Items arrive in coord order, so equal blocks are adjacent.
		if block != last {
			blocks = append(blocks, block)
			last = block
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blocks %s: %w", blobKey(obj), err)
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("blocks %s: %w", blobKey(obj), backend.ErrNotFound)
	}
	return blocks, nil
}

// Chunks returns the block's chunks with offset >= fromOffset, ascending.
func (s *Store) Chunks(ctx context.Context, obj *backend.Descriptor, block, fromOffset int64) ([]backend.Chunk, error) {
	var chunks []backend.Chunk

	err := s.queryPages(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#b = :blob AND coord BETWEEN :lo AND :hi"),
		ExpressionAttributeNames: map[string]string{
			"#b": "blob",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":blob": &types.AttributeValueMemberS{Value: blobKey(obj)},
			":lo":   &types.AttributeValueMemberS{Value: coordKey(block, fromOffset)},
			":hi":   &types.AttributeValueMemberS{Value: coordKey(block, math.MaxInt64)},
		},
	}, func(item map[string]types.AttributeValue) error {
		chunk, err := s.decodeItem(item)
		if err != nil {
			return err
		}
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chunks %s block %d: %w", blobKey(obj), block, err)
	}
	return chunks, nil
}

// Delete removes the object's chunk items. Delete is advisory cleanup:
// faults are logged and swallowed.
func (s *Store) Delete(ctx context.Context, obj *backend.Descriptor) error {
	var coords []string

	err := s.queryPages(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("#b = :blob"),
		ExpressionAttributeNames: map[string]string{
			"#b": "blob",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":blob": &types.AttributeValueMemberS{Value: blobKey(obj)},
		},
		ProjectionExpression: aws.String("coord"),
	}, func(item map[string]types.AttributeValue) error {
		coord, ok := item["coord"].(*types.AttributeValueMemberS)
		if !ok {
			return errors.New("item without coord attribute")
		}
		coords = append(coords, coord.Value)
		return nil
	})
	if err != nil {
		s.logger.Warn("chunk delete enumeration failed",
			"blob", blobKey(obj),
			"error", err,
		)
		return nil
	}

	for _, coord := range coords {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.table),
			Key: map[string]types.AttributeValue{
				"blob":  &types.AttributeValueMemberS{Value: blobKey(obj)},
				"coord": &types.AttributeValueMemberS{Value: coord},
			},
		})
		if err != nil {
			s.logger.Warn("chunk delete failed",
				"blob", blobKey(obj),
				"coord", coord,
				"error", err,
			)
		}
	}
	return nil
}

// queryPages runs the query across all result pages, calling fn per item.
func (s *Store) queryPages(ctx context.Context, input *dynamodb.QueryInput, fn func(map[string]types.AttributeValue) error) error {
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return err
		}
		for _, item := range out.Items {
			if err := fn(item); err != nil {
				return err
			}
		}
		if out.LastEvaluatedKey == nil {
			return nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *Store) decodeItem(item map[string]types.AttributeValue) (backend.Chunk, error) {
	block, err := numberAttr(item, "block")
	if err != nil {
		return backend.Chunk{}, err
	}
	offset, err := numberAttr(item, "off")
	if err != nil {
		return backend.Chunk{}, err
	}
	chunksize, err := numberAttr(item, "chunksize")
	if err != nil {
		return backend.Chunk{}, err
	}

	var stored []byte
	if b, ok := item["data"].(*types.AttributeValueMemberB); ok {
		stored = b.Value
	}

	encName := codec.Default.Name()
	if enc, ok := item["enc"].(*types.AttributeValueMemberS); ok {
		encName = enc.Value
	}
	dec, ok := codec.ByName(encName)
	if !ok {
		return backend.Chunk{}, fmt.Errorf("chunk (%d,%d): unknown codec %q", block, offset, encName)
	}

	data, err := dec.Decode(stored, int(chunksize))
	if err != nil {
		return backend.Chunk{}, fmt.Errorf("chunk (%d,%d): %w", block, offset, err)
	}
	return backend.Chunk{Block: block, Offset: offset, Data: data}, nil
}

func numberAttr(item map[string]types.AttributeValue, name string) (int64, error) {
	attr, ok := item[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("item without %s attribute", name)
	}
	n, err := strconv.ParseInt(attr.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return n, nil
}
