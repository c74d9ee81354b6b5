package similarity

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ThumbnailEncoder: детерминированный локальный энкодер: изображение сжимается до side×side
// на белом фоне, вектор: значения RGB в [0,1] построчно.
type ThumbnailEncoder struct {
	side int
}

func NewThumbnailEncoder(side int) *ThumbnailEncoder {
	return &ThumbnailEncoder{side: side}
}

func (t *ThumbnailEncoder) Dimension() int {
	return t.side * t.side * 3
}

func (t *ThumbnailEncoder) ModelVersion() string {
	return fmt.Sprintf("thumbnail-rgb-%d", t.side)
}

func (t *ThumbnailEncoder) Encode(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if t.side <= 0 {
		return nil, fmt.Errorf("thumbnail side must be positive, got %d", t.side)
	}

	dst := image.NewRGBA(image.Rect(0, 0, t.side, t.side))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	vec := make([]float32, 0, t.Dimension())
	for y := 0; y < t.side; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+t.side*4]
		for x := 0; x < t.side; x++ {
			px := row[x*4 : x*4+3]
			vec = append(vec, float32(px[0])/255, float32(px[1])/255, float32(px[2])/255)
		}
	}

	return vec, nil
}
