package usecase

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) (*domain.User, error)
}

type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	// CreateIfNotExists возвращает created=false, если категория с таким именем уже есть.
	CreateIfNotExists(ctx context.Context, name string) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error)
	GetProductsInfo(ctx context.Context, ids []int64) ([]ProductInfo, error)
	AttachImages(ctx context.Context, productID int64, keys []string) error
}

type CartRepository interface {
	List(ctx context.Context, userID int64) ([]domain.CartItem, error)
	// AddOrIncrement добавляет строку или увеличивает количество существующей.
	AddOrIncrement(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error)
	GetByID(ctx context.Context, id int64) (*domain.CartItem, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context, userID int64) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
}

type SearchKeywordRepository interface {
	Create(ctx context.Context, keyword *domain.SearchKeyword) error
}

type InteractionRepository interface {
	ListAll(ctx context.Context) ([]domain.Interaction, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
}

type IndexBuildRepository interface {
	Create(ctx context.Context, build *domain.IndexBuild) (*domain.IndexBuild, error)
	Latest(ctx context.Context) (*domain.IndexBuild, error)
	GetByBuildID(ctx context.Context, buildID uuid.UUID) (*domain.IndexBuild, error)
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Delete(ctx context.Context, key string) error
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []int64) error
}

type EmbeddingRepository interface {
	UpsertPoints(ctx context.Context, points []domain.IndexPoint) error
	Search(ctx context.Context, vector []float32, limit int) ([]int64, error)
}
