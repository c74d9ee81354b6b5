package usecase

import (
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
)

// AUTH / USERS

type RegisterReq struct {
	Username string
	Email    string
	Password string
}

type LoginReq struct {
	Email    string
	Password string
}

// AuthRes: токен доступа и пользователь, которому он выдан.
type AuthRes struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *domain.User
}

// UpdateProfileReq: частичное обновление профиля: nil-поля не меняются.
type UpdateProfileReq struct {
	UserID   int64
	Username *string
	Email    *string
	Password *string
}

// PRODUCT USECASE

// CreateProductReq: запрос на добавление нового товара.
type CreateProductReq struct {
	OwnerID     int64
	CategoryID  int64
	Title       string
	Description string
	Price       int64
	ImageURL    string
	Images      []ProductImage
}

// UpdateProductReq: частичное обновление товара владельцем.
type UpdateProductReq struct {
	ProductID   int64
	UserID      int64
	Title       *string
	Description *string
	CategoryID  *int64
	Price       *int64
	ImageURL    *string
}

// ProductImage представляет изображение, загруженное через multipart/form-data.
type ProductImage struct {
	Data     []byte // байты изображения
	MimeType string // Content-Type из multipart (image/jpeg)
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

// GetProductsReq запрос информации о продуктах по их идентификаторам.
type GetProductsReq struct {
	IDs []int64
}

// GetProductsRes: ответ с данными запрошенных продуктов.
type GetProductsRes struct {
	Products         []ProductInfo
	NotFoundProducts []int64
}

// ProductInfo: DTO с информацией о продукте для внешнего использования.
type ProductInfo struct {
	ID           int64
	Title        string
	CategoryName string
	Price        int64
	ImageURL     string
}

// CART / ORDERS

type AddToCartReq struct {
	UserID    int64
	ProductID int64
	Quantity  int
}

// SEARCH

// FindSimilarReq: поиск товаров по изображению.
type FindSimilarReq struct {
	Image []byte
	TopK  int
}

// FindSimilarRes: ID в порядке близости и найденные по ним товары.
type FindSimilarRes struct {
	ProductIDs []int64
	Products   []ProductInfo
}

// ASSISTANT

type ConditionRes struct {
	Condition         string
	AuthenticityScore float64
}

// EcoImpact: экологический след категории. Отсутствующая метрика: nil.
type EcoImpact struct {
	CO2Kg       *float64
	WaterLiters *float64
	WasteKg     *float64
}

type RecommendationsRes struct {
	UserID     int64
	ProductIDs []int64
}

// INFRASTRUCTURE

// UploadImagesRes: результат загрузки изображений (ключи в MinIO).
type UploadImagesRes struct {
	ImagesKeys []string
}

// UploadImagesReq: запрос на загрузку изображений продукта.
type UploadImagesReq struct {
	Prefix string
	Images []ProductImage
}

// WriteRawMessageReq: готовое сообщение для брокера. Key: ID агрегата, задаёт партицию.
type WriteRawMessageReq struct {
	Key       int64
	EventID   string
	EventType string
	Payload   []byte
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	ProductCreated OutboxEventType = "product.created"
	ProductUpdated OutboxEventType = "product.updated"
	ProductDeleted OutboxEventType = "product.deleted"
	OrderCreated   OutboxEventType = "order.created"
)

// OutboxEvent: событие, записанное в той же транзакции, что и изменение данных.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	AggregateID int64
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// MAPPERS

func NewProductInfo(p *domain.Product) ProductInfo {
	return ProductInfo{
		ID:           p.ID,
		Title:        p.Title,
		CategoryName: p.CategoryName,
		Price:        p.Price,
		ImageURL:     p.ImageURL,
	}
}

func NewUploadImagesReq(prefix string, images []ProductImage) *UploadImagesReq {
	return &UploadImagesReq{
		Prefix: prefix,
		Images: images,
	}
}

func NewUploadImagesRes(imagesKeys []string) *UploadImagesRes {
	return &UploadImagesRes{
		ImagesKeys: imagesKeys,
	}
}

func NewProductImage(data []byte, mimeType string, size int64, name string) *ProductImage {
	return &ProductImage{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewGetProductsRes(pr []ProductInfo, notFoundProducts []int64) *GetProductsRes {
	return &GetProductsRes{
		Products:         pr,
		NotFoundProducts: notFoundProducts,
	}
}

func NewGetProductsReq(ids []int64) *GetProductsReq {
	return &GetProductsReq{ids}
}

func NewWriteRawMessageReq(event *OutboxEvent) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:       event.AggregateID,
		EventID:   event.EventID,
		EventType: string(event.EventType),
		Payload:   event.Payload,
	}
}
