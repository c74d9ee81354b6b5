package insights

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayPNG(t *testing.T, level uint8) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: level, G: level, B: level, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestConditionGrader_Grade(t *testing.T) {
	grader := NewConditionGrader()

	tests := []struct {
		level uint8
		want  string
	}{
		{255, ConditionExcellent},
		{151, ConditionExcellent},
		{150, ConditionGood},
		{76, ConditionGood},
		{75, ConditionNeedsRepair},
		{0, ConditionNeedsRepair},
	}

	for _, tt := range tests {
		res, err := grader.Grade(grayPNG(t, tt.level))
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Condition, "level %d", tt.level)
		assert.Equal(t, 0.95, res.AuthenticityScore)
	}

	_, err := grader.Grade([]byte("not an image"))
	require.ErrorIs(t, err, e.ErrDecode)
}

func TestPriceSuggester_Suggest(t *testing.T) {
	p := NewPriceSuggester()

	tests := []struct {
		category, condition string
		want                float64
	}{
		{"electronics", "Excellent", 57.5},
		{"Fashion", "Good", 175},
		{"home", "Needs Repair", 15},
		{"toys", "Mint", 105},
		{"home", "Excellent", 142.35},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, p.Suggest(tt.category, tt.condition), 1e-9, "%s/%s", tt.category, tt.condition)
	}
}

func TestEcoCatalog_Lookup(t *testing.T) {
	c := NewEcoCatalog()

	phone, ok := c.Lookup("SmartPhone")
	require.True(t, ok)
	assert.Equal(t, 80.0, *phone.CO2Kg)
	assert.Nil(t, phone.WaterLiters)
	assert.Equal(t, 0.5, *phone.WasteKg)

	laptop, ok := c.Lookup("laptop")
	require.True(t, ok)
	assert.Equal(t, 190000.0, *laptop.WaterLiters)

	_, ok = c.Lookup("sofa")
	assert.False(t, ok)
}

func sampleInteractions() []domain.Interaction {
	raw := [][3]float64{
		{1, 101, 5}, {1, 102, 1}, {2, 101, 5}, {2, 103, 1},
		{3, 102, 5}, {3, 104, 1}, {4, 101, 1}, {4, 103, 5},
	}
	out := make([]domain.Interaction, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.Interaction{UserID: int64(r[0]), ProductID: int64(r[1]), Score: r[2]})
	}
	return out
}

func TestRecommender_Recommend(t *testing.T) {
	r := NewRecommender()

	ids, err := r.Recommend(sampleInteractions(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{101}, ids)

	ids, err = r.Recommend(sampleInteractions(), 1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = r.Recommend(sampleInteractions(), 9)
	require.ErrorIs(t, err, e.ErrNoInteractions)
}

func TestRecommender_UsesMaxScorePerPair(t *testing.T) {
	interactions := []domain.Interaction{
		{UserID: 1, ProductID: 10, Score: domain.InteractionCart},
		{UserID: 2, ProductID: 10, Score: domain.InteractionCart},
		{UserID: 2, ProductID: 11, Score: domain.InteractionCart},
		{UserID: 2, ProductID: 11, Score: domain.InteractionPurchase},
	}

	ids, err := NewRecommender().Recommend(interactions, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{11}, ids)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float64{1, 2}, []float64{2, 4}), 1e-12)
	assert.InDelta(t, 1, cosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.Equal(t, 1.0, cosineDistance([]float64{0, 0}, []float64{1, 1}))
}
