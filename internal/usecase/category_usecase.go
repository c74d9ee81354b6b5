package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
)

// DefaultCategories: набор категорий для первичного заполнения.
var DefaultCategories = []string{"Electronics", "Clothing", "Home & Garden", "Books", "Sports", "Toys"}

type CategoryUseCase struct {
	categoryRepo CategoryRepository
}

func NewCategoryUC(categoryRepo CategoryRepository) *CategoryUseCase {
	return &CategoryUseCase{categoryRepo: categoryRepo}
}

func (c *CategoryUseCase) List(ctx context.Context) ([]domain.Category, error) {
	const op = "CategoryUseCase.List"

	categories, err := c.categoryRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return categories, nil
}

// Seed идемпотентно создаёт категории и возвращает имена тех, что были созданы сейчас.
// Пустой список: DefaultCategories.
func (c *CategoryUseCase) Seed(ctx context.Context, names []string) ([]string, error) {
	const op = "CategoryUseCase.Seed"

	if len(names) == 0 {
		names = DefaultCategories
	}

	created := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ok, err := c.categoryRepo.CreateIfNotExists(ctx, name)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		if ok {
			created = append(created, name)
		}
	}

	return created, nil
}
