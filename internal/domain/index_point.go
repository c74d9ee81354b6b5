package domain

// IndexPoint: строка индекса, зеркалируемая во внешнее векторное хранилище
type IndexPoint struct {
	Row       uint64
	ProductID int64
	Vector    []float32
	BuildID   string
}

func NewIndexPoint(row uint64, productID int64, vector []float32, buildID string) *IndexPoint {
	return &IndexPoint{
		Row:       row,
		ProductID: productID,
		Vector:    vector,
		BuildID:   buildID,
	}
}

// Payload: метаданные точки
func (p *IndexPoint) Payload() map[string]any {
	return map[string]any{
		"product_id": p.ProductID,
		"build_id":   p.BuildID,
	}
}
