package insights

import (
	"image"

	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
)

const (
	ConditionExcellent   = "Excellent"
	ConditionGood        = "Good"
	ConditionNeedsRepair = "Needs Repair"

	excellentBrightness = 150
	goodBrightness      = 75
	authenticityScore   = 0.95
)

// ConditionGrader оценивает состояние товара по средней яркости фотографии.
type ConditionGrader struct{}

func NewConditionGrader() *ConditionGrader {
	return &ConditionGrader{}
}

// Grade декодирует изображение и считает среднее по всем RGB-каналам (0–255).
func (g *ConditionGrader) Grade(raw []byte) (*usecase.ConditionRes, error) {
	const op = "ConditionGrader.Grade"

	img, _, err := similarity.Decode(raw)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &usecase.ConditionRes{
		Condition:         gradeBrightness(meanBrightness(img)),
		AuthenticityScore: authenticityScore,
	}, nil
}

func gradeBrightness(brightness float64) string {
	switch {
	case brightness > excellentBrightness:
		return ConditionExcellent
	case brightness > goodBrightness:
		return ConditionGood
	default:
		return ConditionNeedsRepair
	}
}

func meanBrightness(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}

	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sum += float64(r>>8) + float64(g>>8) + float64(bl>>8)
		}
	}

	return sum / float64(b.Dx()*b.Dy()*3)
}
