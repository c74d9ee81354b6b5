package similarity

import (
	"context"
	"image"
	"testing"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_Embed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		encoder  *stubEncoder
		raw      []byte
		wantErrs []error
	}{
		{
			name:    "ok",
			encoder: &stubEncoder{dim: 2, vec: []float32{0.5, 0.25}},
			raw:     solidPNG(t, red),
		},
		{
			name:     "garbage bytes",
			encoder:  &stubEncoder{dim: 2, vec: []float32{0.5, 0.25}},
			raw:      []byte("this is not an image"),
			wantErrs: []error{e.ErrDecode},
		},
		{
			name:     "empty payload",
			encoder:  &stubEncoder{dim: 2, vec: []float32{0.5, 0.25}},
			raw:      nil,
			wantErrs: []error{e.ErrDecode},
		},
		{
			name:     "model failure",
			encoder:  &stubEncoder{dim: 2, err: errModelDown},
			raw:      solidPNG(t, red),
			wantErrs: []error{e.ErrModel, errModelDown},
		},
		{
			name:     "wrong dimension",
			encoder:  &stubEncoder{dim: 3, vec: []float32{0.5, 0.25}},
			raw:      solidPNG(t, red),
			wantErrs: []error{e.ErrModel, e.ErrDimensionMismatch},
		},
		{
			name:     "empty vector",
			encoder:  &stubEncoder{dim: 2, vec: []float32{}},
			raw:      solidPNG(t, red),
			wantErrs: []error{e.ErrModel, e.ErrVectorEmbeddingEmpty},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := NewEmbedder(tt.encoder).Embed(ctx, tt.raw)
			if len(tt.wantErrs) == 0 {
				require.NoError(t, err)
				assert.Len(t, vec, tt.encoder.dim)
				return
			}
			for _, want := range tt.wantErrs {
				require.ErrorIs(t, err, want)
			}
		})
	}
}

func TestEmbedder_DecodeErrorSkipsModel(t *testing.T) {
	enc := &stubEncoder{dim: 2, vec: []float32{1, 1}}

	_, err := NewEmbedder(enc).Embed(context.Background(), []byte{0xff, 0xd8, 0x00})
	require.ErrorIs(t, err, e.ErrDecode)
	assert.Zero(t, enc.calls.Load())
}

func TestThumbnailEncoder(t *testing.T) {
	ctx := context.Background()
	enc := NewThumbnailEncoder(4)
	m := NewEmbedder(enc)

	assert.Equal(t, 48, m.Dimension())
	assert.Equal(t, "thumbnail-rgb-4", m.ModelVersion())

	first, err := m.Embed(ctx, solidPNG(t, red))
	require.NoError(t, err)
	second, err := m.Embed(ctx, solidPNG(t, red))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Чистый красный: R=1, G=0, B=0 для каждого пикселя.
	for i := 0; i < len(first); i += 3 {
		assert.InDelta(t, 1, first[i], 0.01)
		assert.InDelta(t, 0, first[i+1], 0.01)
		assert.InDelta(t, 0, first[i+2], 0.01)
	}

	other, err := m.Embed(ctx, solidPNG(t, blue))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestThumbnailEncoder_TransparentBecomesWhite(t *testing.T) {
	enc := NewThumbnailEncoder(2)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))

	vec, err := enc.Encode(context.Background(), img)
	require.NoError(t, err)
	for _, v := range vec {
		assert.InDelta(t, 1, v, 1e-6)
	}
}

func TestThumbnailEncoder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbedder(NewThumbnailEncoder(2)).Embed(ctx, solidPNG(t, red))
	require.ErrorIs(t, err, e.ErrModel)
	require.ErrorIs(t, err, context.Canceled)
}
