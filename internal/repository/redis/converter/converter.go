package converter

import (
	"github.com/DRSN-tech/ecofinds/internal/usecase"
)

type ProductInfoConverter interface {
	ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel
	ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo
	ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel
}

type ProductInfoConv struct{}

func (ProductInfoConv) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	if entity == nil {
		return nil
	}
	return &ProductInfoRedisModel{
		ID:           entity.ID,
		Title:        entity.Title,
		CategoryName: entity.CategoryName,
		Price:        entity.Price,
		ImageURL:     entity.ImageURL,
	}
}

func (ProductInfoConv) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	if model == nil {
		return nil
	}
	return &usecase.ProductInfo{
		ID:           model.ID,
		Title:        model.Title,
		CategoryName: model.CategoryName,
		Price:        model.Price,
		ImageURL:     model.ImageURL,
	}
}

func (c ProductInfoConv) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	if entities == nil {
		return nil
	}
	out := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		out = append(out, *c.ToRedisModel(&entities[i]))
	}
	return out
}
