package dynamo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/blobgo/backend"
	"github.com/hupe1980/blobgo/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDynamoClient is an in-memory DynamoDB mock covering the query shapes
// the store issues: full-partition scans and coord BETWEEN ranges, with
// optional result paging.
type mockDynamoClient struct {
	mu       sync.RWMutex
	tables   map[string]bool
	items    map[string]map[string]map[string]types.AttributeValue // blob -> coord -> item
	pageSize int
}

func newMockDynamoClient() *mockDynamoClient {
	return &mockDynamoClient{
		tables: make(map[string]bool),
		items:  make(map[string]map[string]map[string]types.AttributeValue),
	}
}

func (m *mockDynamoClient) CreateTable(_ context.Context, params *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := *params.TableName
	if m.tables[name] {
		return nil, &types.ResourceInUseException{}
	}
	m.tables[name] = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (m *mockDynamoClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob := params.Item["blob"].(*types.AttributeValueMemberS).Value
	coord := params.Item["coord"].(*types.AttributeValueMemberS).Value
	if m.items[blob] == nil {
		m.items[blob] = make(map[string]map[string]types.AttributeValue)
	}
	m.items[blob][coord] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob := params.ExpressionAttributeValues[":blob"].(*types.AttributeValueMemberS).Value

	var coords []string
	for coord := range m.items[blob] {
		if strings.Contains(*params.KeyConditionExpression, "BETWEEN") {
			lo := params.ExpressionAttributeValues[":lo"].(*types.AttributeValueMemberS).Value
			hi := params.ExpressionAttributeValues[":hi"].(*types.AttributeValueMemberS).Value
			if coord < lo || coord > hi {
				continue
			}
		}
		coords = append(coords, coord)
	}
	sort.Strings(coords)

	if params.ExclusiveStartKey != nil {
		after := params.ExclusiveStartKey["coord"].(*types.AttributeValueMemberS).Value
		i := sort.SearchStrings(coords, after)
		if i < len(coords) && coords[i] == after {
			i++
		}
		coords = coords[i:]
	}

	out := &dynamodb.QueryOutput{}
	if m.pageSize > 0 && len(coords) > m.pageSize {
		coords = coords[:m.pageSize]
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"blob":  &types.AttributeValueMemberS{Value: blob},
			"coord": &types.AttributeValueMemberS{Value: coords[len(coords)-1]},
		}
	}
	for _, coord := range coords {
		out.Items = append(out.Items, m.items[blob][coord])
	}
	return out, nil
}

func (m *mockDynamoClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob := params.Key["blob"].(*types.AttributeValueMemberS).Value
	coord := params.Key["coord"].(*types.AttributeValueMemberS).Value
	delete(m.items[blob], coord)
	return &dynamodb.DeleteItemOutput{}, nil
}

func testObj(store backend.Backend, inode, version string) *backend.Descriptor {
	return backend.NewDescriptor(inode, version, backend.BucketRef{Name: "tenant-a"}, store, backend.NewMemorySink())
}

func TestStore_Converge(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamoClient()
	store := NewStore(client, Config{TableName: "blobgo-chunks"})

	require.NoError(t, store.Converge(ctx))
	// Second converge hits ResourceInUse and still succeeds.
	require.NoError(t, store.Converge(ctx))
	assert.True(t, client.tables["blobgo-chunks"])
}

func TestStore_WriteAndReadChunks(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamoClient()
	store := NewStore(client, Config{TableName: "t"})
	obj := testObj(store, "inode-1", "v1")

	require.NoError(t, store.StartBlock(ctx, obj, 0))
	_, err := store.WriteChunk(ctx, obj, 0, 0, []byte("alpha"))
	require.NoError(t, err)
	_, err = store.WriteChunk(ctx, obj, 0, 5, []byte("beta"))
	require.NoError(t, err)

	chunks, err := store.Chunks(ctx, obj, 0, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, int64(0), chunks[0].Offset)
	assert.Equal(t, []byte("alpha"), chunks[0].Data)
	assert.Equal(t, int64(5), chunks[1].Offset)
	assert.Equal(t, []byte("beta"), chunks[1].Data)

	t.Run("FromOffset", func(t *testing.T) {
		chunks, err := store.Chunks(ctx, obj, 0, 5)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, []byte("beta"), chunks[0].Data)
	})

	t.Run("MarkerSurvivesInEmptyBlock", func(t *testing.T) {
		require.NoError(t, store.StartBlock(ctx, obj, 100))
		chunks, err := store.Chunks(ctx, obj, 100, 0)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Empty(t, chunks[0].Data)
	})
}

func TestStore_CompressedChunks(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamoClient()
	store := NewStore(client, Config{TableName: "t", Codec: codec.S2{}})
	obj := testObj(store, "inode-2", "v1")

	payload := []byte(strings.Repeat("compressible ", 100))
	require.NoError(t, store.StartBlock(ctx, obj, 0))
	_, err := store.WriteChunk(ctx, obj, 0, 0, payload)
	require.NoError(t, err)

	// The stored item carries the codec name and the encoded bytes.
	item := client.items["inode-2/v1"][coordKey(0, 0)]
	require.NotNil(t, item)
	assert.Equal(t, "s2", item["enc"].(*types.AttributeValueMemberS).Value)
	assert.Less(t, len(item["data"].(*types.AttributeValueMemberB).Value), len(payload))

	chunks, err := store.Chunks(ctx, obj, 0, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, payload, chunks[0].Data)
}

func TestStore_Blocks(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamoClient()
	store := NewStore(client, Config{TableName: "t"})
	obj := testObj(store, "inode-3", "v1")

	for _, block := range []int64{0, 1 << 26, 1 << 27} {
		require.NoError(t, store.StartBlock(ctx, obj, block))
		_, err := store.WriteChunk(ctx, obj, block, 0, []byte("x"))
		require.NoError(t, err)
	}

	blocks, err := store.Blocks(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1 << 26, 1 << 27}, blocks)

	t.Run("UnknownObject", func(t *testing.T) {
		_, err := store.Blocks(ctx, testObj(store, "no-such", "v1"))
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})
}

func TestStore_QueryPagination(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamoClient()
	client.pageSize = 2
	store := NewStore(client, Config{TableName: "t"})
	obj := testObj(store, "inode-4", "v1")

	require.NoError(t, store.StartBlock(ctx, obj, 0))
	for i := int64(0); i < 5; i++ {
		_, err := store.WriteChunk(ctx, obj, 0, i*10+1, []byte("chunk"))
		require.NoError(t, err)
	}

	chunks, err := store.Chunks(ctx, obj, 0, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 6) // marker plus five data chunks
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	client := newMockDynamoClient()
	store := NewStore(client, Config{TableName: "t"})
	obj := testObj(store, "inode-5", "v1")

	require.NoError(t, store.StartBlock(ctx, obj, 0))
	_, err := store.WriteChunk(ctx, obj, 0, 0, []byte("gone"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, obj))
	assert.Empty(t, client.items["inode-5/v1"])

	t.Run("FaultsAreSwallowed", func(t *testing.T) {
		failing := &faultyClient{Client: client}
		store := NewStore(failing, Config{TableName: "t"})
		assert.NoError(t, store.Delete(ctx, testObj(store, "inode-5", "v1")))
	})
}

func TestCoordKeyOrder(t *testing.T) {
	// String order of coord keys must match numeric (block, offset) order.
	coords := []string{
		coordKey(0, 0),
		coordKey(0, 9),
		coordKey(0, 10),
		coordKey(9, 0),
		coordKey(10, 0),
		coordKey(1<<40, 1<<40),
	}
	assert.True(t, sort.StringsAreSorted(coords))
}

// faultyClient fails every call, for exercising best-effort paths.
type faultyClient struct {
	Client
}

func (f *faultyClient) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return nil, errors.New("throughput exceeded")
}

func (f *faultyClient) DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return nil, errors.New("throughput exceeded")
}
