package qdrant

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

const upsertBatchSize = 256

// EmbeddingRepo зеркалирует строки индекса похожих изображений в коллекцию Qdrant.
// ID точки: номер строки, в payload: product_id и build_id.
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// UpsertPoints сохраняет или обновляет точки пачками.
func (q *EmbeddingRepo) UpsertPoints(ctx context.Context, points []domain.IndexPoint) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))

		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, point := range points[start:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(point.Row),
				Vectors: qdrant.NewVectors(point.Vector...),
				Payload: qdrant.NewValueMap(point.Payload()),
			})
		}

		wait := true
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.cfg.CollectionName,
			Points:         batch,
			Wait:           &wait,
		})
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}

	return nil
}

// Search возвращает product_id ближайших точек по возрастанию расстояния.
func (q *EmbeddingRepo) Search(ctx context.Context, vector []float32, limit int) ([]int64, error) {
	lim := uint64(limit)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayloadInclude("product_id"),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	ids := make([]int64, 0, len(hits))
	for _, hit := range hits {
		v, ok := hit.GetPayload()["product_id"]
		if !ok {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrOutOfRange)
		}
		ids = append(ids, v.GetIntegerValue())
	}

	return ids, nil
}
