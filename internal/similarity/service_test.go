package similarity

import (
	"context"
	"sync"
	"testing"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/idmap"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/DRSN-tech/ecofinds/pkg/vectorindex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRGBService собирает индекс из трёх однотонных изображений: A → 10, B → 20, C → 30.
func newRGBService(t *testing.T) (*Service, map[string][]byte) {
	t.Helper()

	images := map[string][]byte{
		"a.png": solidPNG(t, red),
		"b.png": solidPNG(t, green),
		"c.png": solidPNG(t, blue),
	}
	embedder := NewEmbedder(NewThumbnailEncoder(4))

	art, err := NewBuilder(embedder, mapSource(images), logger.NewNopLogger()).Build(context.Background(), []CatalogEntry{
		{ProductID: 10, ImageRef: "a.png"},
		{ProductID: 20, ImageRef: "b.png"},
		{ProductID: 30, ImageRef: "c.png"},
	})
	require.NoError(t, err)

	snap, err := art.Snapshot()
	require.NoError(t, err)

	svc := NewService(embedder, logger.NewNopLogger())
	require.NoError(t, svc.Attach(snap))

	return svc, images
}

func TestService_FindSimilar_ExactImageFirst(t *testing.T) {
	svc, images := newRGBService(t)

	ids, err := svc.FindSimilar(context.Background(), images["b.png"], 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, ids)

	vec, err := NewEmbedder(NewThumbnailEncoder(4)).Embed(context.Background(), images["b.png"])
	require.NoError(t, err)
	hits, err := svc.Snapshot().Index().Search(vec, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
}

func TestService_FindSimilar_RanksAllWhenTopKExceedsRows(t *testing.T) {
	svc, images := newRGBService(t)

	ids, err := svc.FindSimilar(context.Background(), images["a.png"], 5)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, int64(10), ids[0])
	assert.ElementsMatch(t, []int64{10, 20, 30}, ids)
}

func TestService_FindSimilar_NotLoaded(t *testing.T) {
	svc := NewService(NewEmbedder(NewThumbnailEncoder(4)), logger.NewNopLogger())
	assert.False(t, svc.Loaded())

	_, err := svc.FindSimilar(context.Background(), solidPNG(t, red), 5)
	require.ErrorIs(t, err, e.ErrSearchFailed)
	require.ErrorIs(t, err, e.ErrIndexNotLoaded)
}

func TestService_FindSimilar_EmptyIndex(t *testing.T) {
	embedder := NewEmbedder(NewThumbnailEncoder(4))
	index, err := vectorindex.New(embedder.Dimension())
	require.NoError(t, err)
	buildID := uuid.New()
	index.SetBuildID(buildID)

	snap, err := NewSnapshot(index, idmap.New(buildID, nil))
	require.NoError(t, err)

	svc := NewService(embedder, logger.NewNopLogger())
	require.NoError(t, svc.Attach(snap))

	ids, err := svc.FindSimilar(context.Background(), solidPNG(t, red), 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_FindSimilar_FailureKinds(t *testing.T) {
	svc, images := newRGBService(t)

	_, err := svc.FindSimilar(context.Background(), []byte("nope"), 5)
	require.ErrorIs(t, err, e.ErrSearchFailed)
	require.ErrorIs(t, err, e.ErrDecode)

	failing := NewService(NewEmbedder(&stubEncoder{dim: 48, err: errModelDown}), logger.NewNopLogger())
	require.NoError(t, failing.Attach(svc.Snapshot()))

	_, err = failing.FindSimilar(context.Background(), images["a.png"], 5)
	require.ErrorIs(t, err, e.ErrSearchFailed)
	require.ErrorIs(t, err, e.ErrModel)
	require.ErrorIs(t, err, errModelDown)
}

func TestService_FindSimilar_NoDedupe(t *testing.T) {
	embedder := NewEmbedder(NewThumbnailEncoder(2))
	images := mapSource{
		"front.png": solidPNG(t, red),
		"back.png":  solidPNG(t, red),
		"other.png": solidPNG(t, blue),
	}

	art, err := NewBuilder(embedder, images, logger.NewNopLogger()).Build(context.Background(), []CatalogEntry{
		{ProductID: 7, ImageRef: "front.png"},
		{ProductID: 7, ImageRef: "back.png"},
		{ProductID: 8, ImageRef: "other.png"},
	})
	require.NoError(t, err)
	snap, err := art.Snapshot()
	require.NoError(t, err)

	svc := NewService(embedder, logger.NewNopLogger())
	require.NoError(t, svc.Attach(snap))

	ids, err := svc.FindSimilar(context.Background(), images["front.png"], 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 7}, ids)
}

func TestService_Attach(t *testing.T) {
	svc, _ := newRGBService(t)
	assert.True(t, svc.Loaded())

	err := svc.Attach(svc.Snapshot())
	require.ErrorIs(t, err, e.ErrAlreadyLoaded)

	other := NewService(NewEmbedder(NewThumbnailEncoder(8)), logger.NewNopLogger())
	err = other.Attach(svc.Snapshot())
	require.ErrorIs(t, err, e.ErrDimensionMismatch)
	assert.False(t, other.Loaded())

	require.ErrorIs(t, other.Attach(nil), e.ErrIndexNotLoaded)
}

func TestService_ConcurrentSearches(t *testing.T) {
	svc, images := newRGBService(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids, err := svc.FindSimilar(context.Background(), images["c.png"], 1)
			if err != nil {
				errs <- err
				return
			}
			if len(ids) != 1 || ids[0] != 30 {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestNewSnapshot_RequiresLockStep(t *testing.T) {
	index, err := vectorindex.New(2)
	require.NoError(t, err)
	_, err = index.Add([]float32{1, 2})
	require.NoError(t, err)
	buildID := uuid.New()
	index.SetBuildID(buildID)

	_, err = NewSnapshot(index, idmap.New(buildID, []int64{1, 2}))
	require.ErrorIs(t, err, e.ErrArtifactMismatch)

	_, err = NewSnapshot(index, idmap.New(uuid.New(), []int64{1}))
	require.ErrorIs(t, err, e.ErrArtifactMismatch)

	snap, err := NewSnapshot(index, idmap.New(buildID, []int64{1}))
	require.NoError(t, err)
	assert.Equal(t, 1, snap.RowCount())
}
