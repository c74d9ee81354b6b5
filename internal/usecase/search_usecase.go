package usecase

import (
	"context"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/jimlawless/whereami"
)

// SearchUseCase ищет товары по изображению и подтягивает их карточки.
type SearchUseCase struct {
	searcher    SimilaritySearcher
	products    ProductUC
	defaultTopK int
	maxTopK     int
	logger      logger.Logger
}

func NewSearchUC(searcher SimilaritySearcher, products ProductUC, defaultTopK, maxTopK int, logger logger.Logger) *SearchUseCase {
	return &SearchUseCase{
		searcher:    searcher,
		products:    products,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
		logger:      logger,
	}
}

// FindSimilar возвращает ID в порядке близости. TopK == 0 означает значение по умолчанию.
// Товары, удалённые после сборки индекса, остаются в ProductIDs, но не попадают в Products.
func (s *SearchUseCase) FindSimilar(ctx context.Context, req *FindSimilarReq) (*FindSimilarRes, error) {
	if len(req.Image) == 0 {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrNoImages)
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.defaultTopK
	}
	if topK < 1 || topK > s.maxTopK {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrInvalidTopK)
	}

	ids, err := s.searcher.FindSimilar(ctx, req.Image, topK)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	res := &FindSimilarRes{ProductIDs: ids, Products: []ProductInfo{}}
	if len(ids) == 0 {
		return res, nil
	}

	info, err := s.products.GetProductsInfo(ctx, NewGetProductsReq(uniqueIDs(ids)))
	if err != nil {
		// Результат поиска важнее карточек
		s.logger.Warnf("Failed to hydrate similar products: %v", err)
		return res, nil
	}
	res.Products = info.Products

	return res, nil
}

func (s *SearchUseCase) Ready() bool {
	return s.searcher.Loaded()
}

// uniqueIDs убирает повторы, сохраняя порядок первого вхождения.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
