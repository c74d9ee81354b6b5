// Package similarity: поиск товаров по похожему изображению: эмбеддер, плоский индекс
// с таблицей соответствия строк товарам и офлайн-сборка этих артефактов.
package similarity

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	_ "golang.org/x/image/webp"
)

// maxPixels ограничивает размер декодируемого изображения.
const maxPixels = 50_000_000

// Encoder превращает изображение в вектор фиксированной размерности.
type Encoder interface {
	Encode(ctx context.Context, img image.Image) ([]float32, error)
	Dimension() int
	ModelVersion() string
}

// ImageEmbedder: то, что нужно сервису поиска и сборщику индекса.
type ImageEmbedder interface {
	Embed(ctx context.Context, raw []byte) ([]float32, error)
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)
	Dimension() int
	ModelVersion() string
}

// Embedder декодирует байты изображения и передаёт его энкодеру.
type Embedder struct {
	encoder Encoder
}

func NewEmbedder(encoder Encoder) *Embedder {
	return &Embedder{encoder: encoder}
}

func (m *Embedder) Dimension() int {
	return m.encoder.Dimension()
}

func (m *Embedder) ModelVersion() string {
	return m.encoder.ModelVersion()
}

// Embed: неразборчивые байты → e.ErrDecode, сбой энкодера → e.ErrModel.
func (m *Embedder) Embed(ctx context.Context, raw []byte) ([]float32, error) {
	const op = "Embedder.Embed"

	img, _, err := Decode(raw)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return m.EmbedImage(ctx, img)
}

// EmbedImage кодирует уже декодированное изображение.
func (m *Embedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	const op = "Embedder.EmbedImage"

	if img == nil {
		return nil, fmt.Errorf("%s: nil image: %w", op, e.ErrDecode)
	}

	vec, err := m.encoder.Encode(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, e.ErrModel, err)
	}

	if len(vec) == 0 {
		return nil, fmt.Errorf("%s: %w: %w", op, e.ErrModel, e.ErrVectorEmbeddingEmpty)
	}

	if len(vec) != m.encoder.Dimension() {
		return nil, fmt.Errorf("%s: got %d, want %d: %w: %w",
			op, len(vec), m.encoder.Dimension(), e.ErrModel, e.ErrDimensionMismatch)
	}

	for i, v := range vec {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%s: non-finite component %d: %w", op, i, e.ErrModel)
		}
	}

	return vec, nil
}

// Decode распознаёт JPEG, PNG, GIF и WebP. Любая ошибка: e.ErrDecode.
func Decode(raw []byte) (image.Image, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("empty payload: %w", e.ErrDecode)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", e.ErrDecode, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("%s image %dx%d: %w", format, cfg.Width, cfg.Height, e.ErrDecode)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", e.ErrDecode, err)
	}

	return img, format, nil
}
