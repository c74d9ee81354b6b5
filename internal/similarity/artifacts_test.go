package similarity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildRGB(t *testing.T) *Artifacts {
	t.Helper()

	images := mapSource{
		"a.png": solidPNG(t, red),
		"b.png": solidPNG(t, green),
		"c.png": solidPNG(t, blue),
	}
	art, err := NewBuilder(NewEmbedder(NewThumbnailEncoder(4)), images, logger.NewNopLogger()).
		Build(context.Background(), []CatalogEntry{
			{ProductID: 10, ImageRef: "a.png"},
			{ProductID: 20, ImageRef: "b.png"},
			{ProductID: 30, ImageRef: "c.png"},
		})
	require.NoError(t, err)
	return art
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "artifacts")
	store := NewFileStore(dir)
	art := buildRGB(t)

	location, err := store.Save(ctx, art)
	require.NoError(t, err)
	assert.Equal(t, dir, location)
	assert.FileExists(t, filepath.Join(dir, IndexFileName))
	assert.FileExists(t, filepath.Join(dir, IDMapFileName))

	snap, err := store.Load(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, art.BuildID, snap.BuildID())
	assert.Equal(t, 3, snap.RowCount())
	for row, want := range []int64{10, 20, 30} {
		got, err := snap.IDs().Resolve(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	for row := 0; row < 3; row++ {
		want, err := art.Index.Vector(row)
		require.NoError(t, err)
		got, err := snap.Index().Vector(row)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestFileStore_RejectsMixedBuilds(t *testing.T) {
	ctx := context.Background()
	first := filepath.Join(t.TempDir(), "first")
	second := filepath.Join(t.TempDir(), "second")

	_, err := NewFileStore(first).Save(ctx, buildRGB(t))
	require.NoError(t, err)
	_, err = NewFileStore(second).Save(ctx, buildRGB(t))
	require.NoError(t, err)

	// Индекс от одной сборки, таблица от другой.
	raw, err := os.ReadFile(filepath.Join(second, IDMapFileName))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(first, IDMapFileName), raw, 0o644))

	_, err = NewFileStore(first).Load(ctx, "")
	require.ErrorIs(t, err, e.ErrArtifactMismatch)
}

func TestFileStore_MissingArtifacts(t *testing.T) {
	_, err := NewFileStore(t.TempDir()).Load(context.Background(), "")
	require.ErrorIs(t, err, e.ErrIndexNotLoaded)
	require.ErrorIs(t, err, os.ErrNotExist)
}
