package similarity

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/DRSN-tech/ecofinds/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Service ищет товары по изображению: эмбеддинг → поиск в индексе → ID товаров.
// Снимок индекса публикуется один раз через Attach и дальше только читается,
// поэтому FindSimilar можно вызывать конкурентно.
type Service struct {
	embedder ImageEmbedder
	snapshot atomic.Pointer[Snapshot]
	logger   logger.Logger
}

func NewService(embedder ImageEmbedder, logger logger.Logger) *Service {
	return &Service{
		embedder: embedder,
		logger:   logger,
	}
}

// Attach публикует загруженный снимок. Повторный вызов возвращает e.ErrAlreadyLoaded.
func (s *Service) Attach(snap *Snapshot) error {
	const op = "Service.Attach"

	if snap == nil {
		return e.Wrap(op, e.ErrIndexNotLoaded)
	}

	if snap.Dimension() != s.embedder.Dimension() {
		return fmt.Errorf("%s: index dimension %d, embedder dimension %d: %w",
			op, snap.Dimension(), s.embedder.Dimension(), e.ErrDimensionMismatch)
	}

	if !s.snapshot.CompareAndSwap(nil, snap) {
		return e.Wrap(op, e.ErrAlreadyLoaded)
	}

	s.logger.Infof("similarity index attached: build=%s rows=%d dim=%d",
		snap.BuildID(), snap.RowCount(), snap.Dimension())

	return nil
}

func (s *Service) Loaded() bool {
	return s.snapshot.Load() != nil
}

// Snapshot возвращает опубликованный снимок или nil.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *Service) Dimension() int {
	return s.embedder.Dimension()
}

// FindSimilar возвращает до topK ID товаров, ближайший первым. Один товар может встретиться
// несколько раз, если в индексе несколько его изображений.
// Любая ошибка удовлетворяет errors.Is(err, e.ErrSearchFailed) и сохраняет исходную причину.
func (s *Service) FindSimilar(ctx context.Context, raw []byte, topK int) ([]int64, error) {
	const op = "Service.FindSimilar"

	ctx, span := tracing.Start(ctx, "similarity.find_similar",
		attribute.Int("similarity.top_k", topK),
		attribute.Int("similarity.payload_bytes", len(raw)),
	)
	defer span.End()

	ids, err := s.find(ctx, op, topK, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, raw)
	})
	tracing.RecordError(span, err)
	span.SetAttributes(attribute.Int("similarity.results", len(ids)))

	return ids, err
}

// FindSimilarImage: то же, что FindSimilar, для уже декодированного изображения.
func (s *Service) FindSimilarImage(ctx context.Context, img image.Image, topK int) ([]int64, error) {
	const op = "Service.FindSimilarImage"

	ctx, span := tracing.Start(ctx, "similarity.find_similar_image",
		attribute.Int("similarity.top_k", topK),
	)
	defer span.End()

	ids, err := s.find(ctx, op, topK, func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedImage(ctx, img)
	})
	tracing.RecordError(span, err)

	return ids, err
}

func (s *Service) find(ctx context.Context, op string, topK int, embed func(context.Context) ([]float32, error)) ([]int64, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, e.SearchFailed(op, e.ErrIndexNotLoaded)
	}

	vec, err := embed(ctx)
	if err != nil {
		return nil, e.SearchFailed(op, err)
	}

	return s.search(op, snap, vec, topK)
}

func (s *Service) search(op string, snap *Snapshot, vec []float32, topK int) ([]int64, error) {
	hits, err := snap.index.Search(vec, topK)
	if err != nil {
		return nil, e.SearchFailed(op, err)
	}

	ids := make([]int64, 0, len(hits))
	for _, hit := range hits {
		id, err := snap.ids.Resolve(hit.Row)
		if err != nil {
			if errors.Is(err, e.ErrOutOfRange) {
				s.logger.Errorf(err, "similarity index integrity violation: build=%s row=%d rows=%d ids=%d",
					snap.BuildID(), hit.Row, snap.RowCount(), snap.ids.Len())
			}
			return nil, e.SearchFailed(op, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
