package converter

// ProductInfoRedisModel: карточка товара в кэше (JSON под ключом product:<id>).
type ProductInfoRedisModel struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	CategoryName string `json:"category_name"`
	Price        int64  `json:"price"`
	ImageURL     string `json:"image_url"`
}
