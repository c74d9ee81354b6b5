package qdrant

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

const testCollection = "product_images"

// pointsStub отвечает на Upsert и Query вместо сервера Qdrant.
type pointsStub struct {
	qdrant.UnimplementedPointsServer

	mu      sync.Mutex
	batches []*qdrant.UpsertPoints
	queries []*qdrant.QueryPoints
	hits    []*qdrant.ScoredPoint
}

func (s *pointsStub) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.PointsOperationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, req)
	return &qdrant.PointsOperationResponse{
		Result: &qdrant.UpdateResult{Status: qdrant.UpdateStatus_Completed},
	}, nil
}

func (s *pointsStub) Query(_ context.Context, req *qdrant.QueryPoints) (*qdrant.QueryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, req)
	return &qdrant.QueryResponse{Result: s.hits}, nil
}

func newTestRepo(t *testing.T, stub *pointsStub) *EmbeddingRepo {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	qdrant.RegisterPointsServer(srv, stub)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   "127.0.0.1",
		Port:                   lis.Addr().(*net.TCPAddr).Port,
		SkipCompatibilityCheck: true,
		PoolSize:               1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewEmbeddingRepo(client, &cfg.QdrantCfg{CollectionName: testCollection})
}

func TestEmbeddingRepo_UpsertPointsInBatches(t *testing.T) {
	stub := &pointsStub{}
	repo := newTestRepo(t, stub)

	points := make([]domain.IndexPoint, upsertBatchSize+3)
	for i := range points {
		points[i] = *domain.NewIndexPoint(uint64(i), int64(1000+i), []float32{float32(i), 0, 1}, "build-1")
	}

	require.NoError(t, repo.UpsertPoints(context.Background(), points))

	require.Len(t, stub.batches, 2)
	assert.Len(t, stub.batches[0].GetPoints(), upsertBatchSize)
	assert.Len(t, stub.batches[1].GetPoints(), 3)

	for _, batch := range stub.batches {
		assert.Equal(t, testCollection, batch.GetCollectionName())
		assert.True(t, batch.GetWait())
	}

	last := stub.batches[1].GetPoints()[2]
	assert.Equal(t, uint64(upsertBatchSize+2), last.GetId().GetNum())
	assert.Equal(t, int64(1000+upsertBatchSize+2), last.GetPayload()["product_id"].GetIntegerValue())
	assert.Equal(t, "build-1", last.GetPayload()["build_id"].GetStringValue())
}

func TestEmbeddingRepo_UpsertNothing(t *testing.T) {
	stub := &pointsStub{}
	repo := newTestRepo(t, stub)

	require.NoError(t, repo.UpsertPoints(context.Background(), nil))
	assert.Empty(t, stub.batches)
}

func TestEmbeddingRepo_Search(t *testing.T) {
	stub := &pointsStub{hits: []*qdrant.ScoredPoint{
		{Id: qdrant.NewIDNum(4), Score: 0.1, Payload: map[string]*qdrant.Value{"product_id": qdrant.NewValueInt(40)}},
		{Id: qdrant.NewIDNum(1), Score: 0.7, Payload: map[string]*qdrant.Value{"product_id": qdrant.NewValueInt(10)}},
	}}
	repo := newTestRepo(t, stub)

	ids, err := repo.Search(context.Background(), []float32{0.5, 0.5, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{40, 10}, ids)

	require.Len(t, stub.queries, 1)
	assert.Equal(t, testCollection, stub.queries[0].GetCollectionName())
	assert.Equal(t, uint64(2), stub.queries[0].GetLimit())
}

func TestEmbeddingRepo_SearchWithoutProductID(t *testing.T) {
	stub := &pointsStub{hits: []*qdrant.ScoredPoint{
		{Id: qdrant.NewIDNum(4), Score: 0.1},
	}}
	repo := newTestRepo(t, stub)

	_, err := repo.Search(context.Background(), []float32{0, 0, 0}, 1)
	require.ErrorIs(t, err, e.ErrOutOfRange)
}
