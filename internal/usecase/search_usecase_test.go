package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchUseCase_FindSimilar(t *testing.T) {
	searcher := &fakeSearcher{ids: []int64{20, 10, 20}, loaded: true}
	products := &stubProductUC{res: NewGetProductsRes([]ProductInfo{{ID: 20}, {ID: 10}}, nil)}
	uc := NewSearchUC(searcher, products, 5, 50, logger.NewNopLogger())

	res, err := uc.FindSimilar(context.Background(), &FindSimilarReq{Image: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, 5, searcher.gotK)
	assert.Equal(t, []int64{20, 10, 20}, res.ProductIDs)
	assert.Len(t, res.Products, 2)
	assert.True(t, uc.Ready())
}

func TestSearchUseCase_TopKBounds(t *testing.T) {
	uc := NewSearchUC(&fakeSearcher{}, &stubProductUC{}, 5, 50, logger.NewNopLogger())

	for _, k := range []int{-1, 51} {
		_, err := uc.FindSimilar(context.Background(), &FindSimilarReq{Image: []byte{1}, TopK: k})
		require.ErrorIs(t, err, e.ErrInvalidTopK)
	}

	_, err := uc.FindSimilar(context.Background(), &FindSimilarReq{TopK: 3})
	require.ErrorIs(t, err, e.ErrNoImages)
}

func TestSearchUseCase_PropagatesSearchFailure(t *testing.T) {
	searcher := &fakeSearcher{err: e.SearchFailed("Service.FindSimilar", e.ErrIndexNotLoaded)}
	uc := NewSearchUC(searcher, &stubProductUC{}, 5, 50, logger.NewNopLogger())

	_, err := uc.FindSimilar(context.Background(), &FindSimilarReq{Image: []byte{1}, TopK: 1})
	require.ErrorIs(t, err, e.ErrIndexNotLoaded)
	require.ErrorIs(t, err, e.ErrSearchFailed)
	assert.False(t, uc.Ready())
}

func TestSearchUseCase_KeepsIDsWhenHydrationFails(t *testing.T) {
	searcher := &fakeSearcher{ids: []int64{3}}
	uc := NewSearchUC(searcher, &stubProductUC{err: errBoom}, 5, 50, logger.NewNopLogger())

	res, err := uc.FindSimilar(context.Background(), &FindSimilarReq{Image: []byte{1}, TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, res.ProductIDs)
	assert.Empty(t, res.Products)
}
