package e

import (
	"errors"
	"fmt"
)

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = errors.New("transaction not found")

	// Внутренние ошибки с векторами и индексом
	ErrEmptyVectors         = errors.New("empty vectors")
	ErrVectorEmbeddingEmpty = errors.New("vector embedding is empty")
	ErrImageVectorMismatch  = errors.New("image vector mismatch")
	ErrDimensionMismatch    = errors.New("vector dimension mismatch")
	ErrArtifactMismatch     = errors.New("index artifacts were not built together")
	ErrCorruptedArtifact    = errors.New("index artifact is corrupted")
	ErrAlreadyLoaded        = errors.New("similarity index is already loaded")
	ErrEmptyCatalog         = errors.New("catalog is empty")
	ErrNoIndexBuilds        = errors.New("no index builds recorded")

	// Таксономия поиска похожих изображений
	ErrDecode         = errors.New("image cannot be decoded")
	ErrModel          = errors.New("embedding model failure")
	ErrIndexNotLoaded = errors.New("similarity index is not loaded")
	ErrOutOfRange     = errors.New("index row is out of id mapping range")
	ErrSearchFailed   = errors.New("similarity search failed")

	// 400 Bad Request
	ErrStatusBadRequest     = errors.New("bad request")
	ErrExpectedMultipart    = errors.New("expected multipart/form-data")
	ErrExpectedJSON         = errors.New("expected application/json body")
	ErrMissingFields        = errors.New("required fields are missing")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrPricePrecision       = errors.New("price must have at most 2 decimal places")
	ErrProductNameRequired  = errors.New("product title is required")
	ErrPriceMustBePositive  = errors.New("price must be positive")
	ErrNoImages             = errors.New("no images provided")
	ErrTooManyImages        = errors.New("too many images")
	ErrFileTooLarge         = errors.New("file too large")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidTopK          = errors.New("top_k is out of range")
	ErrInvalidPagination    = errors.New("invalid pagination parameters")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrOrderTotalOverflow   = errors.New("order total is too large")
	ErrCategoryNotFound     = errors.New("category not found")

	// 401 / 403
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// 404
	ErrUserNotFound     = errors.New("user not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrNoProducts       = errors.New("no products requested")
	ErrNoInteractions   = errors.New("user not found or has no interactions")
	ErrNoEcoData        = errors.New("no data for this category")

	// 409
	ErrEmailTaken = errors.New("email already registered")

	// 429
	ErrTooManyRequests = errors.New("too many requests")

	// 500
	ErrInternalServerError = errors.New("internal server error")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = errors.New("incorrect environment variable")
	ErrNoKafkaBrokers       = errors.New("no kafka brokers configured")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// SearchFailed оборачивает причину сбоя поиска так, чтобы errors.Is находил
// и ErrSearchFailed, и исходный вид ошибки.
func SearchFailed(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrSearchFailed, cause)
}
