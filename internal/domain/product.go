package domain

import "time"

// DefaultImageURL подставляется, если продавец не приложил изображение.
const DefaultImageURL = "https://via.placeholder.com/300"

// Product описывает товар, выставленный пользователем
type Product struct {
	ID           int64
	OwnerID      int64
	CategoryID   int64
	CategoryName string
	Title        string
	Description  string
	Price        int64 // Цена хранится в центах
	ImageURL     string
	ImageKeys    []string // ключи объектов в MinIO
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewProduct(ownerID, categoryID int64, title, description string, price int64, imageURL string) *Product {
	if imageURL == "" {
		imageURL = DefaultImageURL
	}

	return &Product{
		OwnerID:     ownerID,
		CategoryID:  categoryID,
		Title:       title,
		Description: description,
		Price:       price,
		ImageURL:    imageURL,
	}
}

// ProductFilter: параметры выборки каталога.
// Category: либо ID категории, либо подстрока её названия.
type ProductFilter struct {
	CategoryID   *int64
	CategoryName string
	Keyword      string
	Page         int
	PerPage      int
}

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// ProductPage: страница каталога.
type ProductPage struct {
	Items   []Product
	Total   int64
	Page    int
	PerPage int
}

// Pages возвращает общее число страниц.
func (p ProductPage) Pages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}
