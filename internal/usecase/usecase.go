package usecase

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
)

type AuthUC interface {
	Register(ctx context.Context, req *RegisterReq) (*AuthRes, error)
	Login(ctx context.Context, req *LoginReq) (*AuthRes, error)
	Authenticate(token string) (int64, error)
}

type UserUC interface {
	GetProfile(ctx context.Context, userID int64) (*domain.User, error)
	UpdateProfile(ctx context.Context, req *UpdateProfileReq) (*domain.User, error)
}

type CategoryUC interface {
	List(ctx context.Context) ([]domain.Category, error)
	Seed(ctx context.Context, names []string) ([]string, error)
}

type ProductUC interface {
	CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, req *UpdateProductReq) (*domain.Product, error)
	DeleteProduct(ctx context.Context, productID, userID int64) error
	ListProducts(ctx context.Context, filter domain.ProductFilter, userID *int64) (*domain.ProductPage, error)
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
}

type CartUC interface {
	List(ctx context.Context, userID int64) ([]domain.CartItem, error)
	Add(ctx context.Context, req *AddToCartReq) (*domain.CartItem, error)
	Remove(ctx context.Context, itemID, userID int64) error
}

type OrderUC interface {
	Checkout(ctx context.Context, userID int64) (*domain.Order, error)
	List(ctx context.Context, userID int64) ([]domain.Order, error)
}

type SearchUC interface {
	FindSimilar(ctx context.Context, req *FindSimilarReq) (*FindSimilarRes, error)
	Ready() bool
}

type AssistantUC interface {
	GradeCondition(ctx context.Context, raw []byte) (*ConditionRes, error)
	SuggestPrice(ctx context.Context, category, condition string) (float64, error)
	EcoImpact(ctx context.Context, category string) (*EcoImpact, error)
	Recommendations(ctx context.Context, userID int64) (*RecommendationsRes, error)
}
