package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
)

type ImagesInfra interface {
	UploadImages(ctx context.Context, req *UploadImagesReq) (*UploadImagesRes, error)
	CleanupImages(keys []string)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// Transactor выполняет fn в одной транзакции БД.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type TokenManager interface {
	IssueToken(userID int64) (string, time.Time, error)
	ParseToken(raw string) (int64, error)
	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) error
}

// SimilaritySearcher: поиск по похожему изображению.
type SimilaritySearcher interface {
	FindSimilar(ctx context.Context, raw []byte, topK int) ([]int64, error)
	Loaded() bool
}

type ConditionGrader interface {
	Grade(raw []byte) (*ConditionRes, error)
}

type PriceSuggester interface {
	Suggest(category, condition string) float64
}

type Recommender interface {
	Recommend(interactions []domain.Interaction, userID int64) ([]int64, error)
}

type EcoCatalog interface {
	Lookup(category string) (*EcoImpact, bool)
}
