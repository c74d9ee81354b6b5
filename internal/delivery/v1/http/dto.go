package http

import (
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/shopspring/decimal"
)

// REQUESTS

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

type seedCategoriesRequest struct {
	Names []string `json:"names"`
}

// productRequest: тело POST/PUT /products. Цена принимается и строкой, и числом.
type productRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	CategoryID  *int64           `json:"category_id,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty" swaggertype:"string" example:"19.99"`
	ImageURL    *string          `json:"image_url,omitempty"`
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// RESPONSES

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type seedCategoriesResponse struct {
	Created []string `json:"created"`
}

type productResponse struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	CategoryID  int64     `json:"category_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price" example:"19.99"`
	ImageURL    string    `json:"image_url"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type productPageResponse struct {
	Items   []productResponse `json:"items"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
	Pages   int               `json:"pages"`
}

type productInfoResponse struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Price    string `json:"price" example:"19.99"`
	ImageURL string `json:"image_url"`
}

type cartItemResponse struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Quantity  int              `json:"quantity"`
	AddedAt   time.Time        `json:"added_at"`
	Product   *productResponse `json:"product,omitempty"`
}

type orderItemResponse struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type orderResponse struct {
	ID          int64               `json:"id"`
	OrderDate   time.Time           `json:"order_date"`
	TotalAmount string              `json:"total_amount"`
	Items       []orderItemResponse `json:"items"`
}

type similarResponse struct {
	SimilarProductIDs []int64               `json:"similar_product_ids"`
	Products          []productInfoResponse `json:"products"`
}

type conditionResponse struct {
	Condition         string  `json:"condition"`
	AuthenticityScore float64 `json:"authenticity_score"`
}

type priceResponse struct {
	Category       string `json:"category"`
	Condition      string `json:"condition"`
	SuggestedPrice string `json:"suggested_price" example:"57.50"`
}

type ecoResponse struct {
	Category    string   `json:"category"`
	CO2Kg       *float64 `json:"co2_kg"`
	WaterLiters *float64 `json:"water_liters"`
	WasteKg     *float64 `json:"waste_kg"`
}

type recommendationsResponse struct {
	UserID          int64   `json:"user_id"`
	Recommendations []int64 `json:"recommendations"`
}

type healthResponse struct {
	Status          string `json:"status"`
	SimilarityReady bool   `json:"similarity_ready"`
}

// MAPPERS

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toAuthResponse(res *usecase.AuthRes) authResponse {
	return authResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   res.ExpiresAt,
		User:        toUserResponse(res.User),
	}
}

func toCategoriesResponse(cats []domain.Category) []categoryResponse {
	res := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		res = append(res, categoryResponse{ID: c.ID, Name: c.Name})
	}
	return res
}

func toProductResponse(p *domain.Product) productResponse {
	images := p.ImageKeys
	if images == nil {
		images = []string{}
	}

	return productResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		CategoryID:  p.CategoryID,
		Category:    p.CategoryName,
		Title:       p.Title,
		Description: p.Description,
		Price:       formatCents(p.Price),
		ImageURL:    p.ImageURL,
		Images:      images,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductPageResponse(page *domain.ProductPage) productPageResponse {
	items := make([]productResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toProductResponse(&page.Items[i]))
	}

	return productPageResponse{
		Items:   items,
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
		Pages:   page.Pages(),
	}
}

func toProductInfoResponses(infos []usecase.ProductInfo) []productInfoResponse {
	res := make([]productInfoResponse, 0, len(infos))
	for _, p := range infos {
		res = append(res, productInfoResponse{
			ID:       p.ID,
			Title:    p.Title,
			Category: p.CategoryName,
			Price:    formatCents(p.Price),
			ImageURL: p.ImageURL,
		})
	}
	return res
}

func toCartItemResponse(ci *domain.CartItem) cartItemResponse {
	res := cartItemResponse{
		ID:        ci.ID,
		ProductID: ci.ProductID,
		Quantity:  ci.Quantity,
		AddedAt:   ci.AddedAt,
	}
	if ci.Product != nil {
		p := toProductResponse(ci.Product)
		res.Product = &p
	}
	return res
}

func toCartResponse(items []domain.CartItem) []cartItemResponse {
	res := make([]cartItemResponse, 0, len(items))
	for i := range items {
		res = append(res, toCartItemResponse(&items[i]))
	}
	return res
}

func toOrderResponse(o *domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     formatCents(it.Price),
		})
	}

	return orderResponse{
		ID:          o.ID,
		OrderDate:   o.OrderDate,
		TotalAmount: formatCents(o.TotalAmount),
		Items:       items,
	}
}

func toOrdersResponse(orders []domain.Order) []orderResponse {
	res := make([]orderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toOrderResponse(&orders[i]))
	}
	return res
}
