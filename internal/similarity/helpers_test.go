package similarity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

type mapSource map[string][]byte

func (m mapSource) Open(_ context.Context, ref string) ([]byte, error) {
	raw, ok := m[ref]
	if !ok {
		return nil, fmt.Errorf("no image %q", ref)
	}
	return raw, nil
}

// stubEncoder возвращает заранее заданный вектор или ошибку и считает вызовы.
type stubEncoder struct {
	dim   int
	vec   []float32
	err   error
	calls atomic.Int32
}

func (s *stubEncoder) Encode(ctx context.Context, _ image.Image) ([]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, ctx.Err()
}

func (s *stubEncoder) Dimension() int       { return s.dim }
func (s *stubEncoder) ModelVersion() string { return "stub-1" }

var errModelDown = errors.New("model is down")
