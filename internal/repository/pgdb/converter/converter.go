package converter

import (
	"time"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
)

// UserConverter преобразует сущности User между domain и моделью PostgreSQL.
type UserConverter interface {
	ToModel(entity *domain.User) *UserModel
	ToEntity(model *UserModel) *domain.User
}

// CategoryConverter преобразует сущности Category между domain и моделью PostgreSQL.
type CategoryConverter interface {
	ToEntity(model *CategoryModel) *domain.Category
}

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToModel(entity *domain.Product) *ProductModel
	ToEntity(model *ProductModel) *domain.Product
}

type OrderConverter interface {
	ToEntity(model *OrderModel, items []OrderItemModel) *domain.Order
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent
}

type IndexBuildConverter interface {
	ToModel(entity *domain.IndexBuild) *IndexBuildModel
	ToEntity(model *IndexBuildModel) *domain.IndexBuild
}

type UserConv struct{}

func (UserConv) ToModel(entity *domain.User) *UserModel {
	if entity == nil {
		return nil
	}
	return &UserModel{
		ID:           entity.ID,
		Username:     entity.Username,
		Email:        entity.Email,
		PasswordHash: entity.PasswordHash,
		CreatedAt:    ConvertTime(entity.CreatedAt),
	}
}

func (UserConv) ToEntity(model *UserModel) *domain.User {
	if model == nil {
		return nil
	}
	return &domain.User{
		ID:           model.ID,
		Username:     model.Username,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		CreatedAt:    ConvertTime(model.CreatedAt),
	}
}

type CategoryConv struct{}

func (CategoryConv) ToEntity(model *CategoryModel) *domain.Category {
	if model == nil {
		return nil
	}
	return &domain.Category{
		ID:        model.ID,
		Name:      model.Name,
		CreatedAt: ConvertTime(model.CreatedAt),
	}
}

type ProductConv struct{}

func (ProductConv) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}
	return &ProductModel{
		ID:           entity.ID,
		OwnerID:      entity.OwnerID,
		CategoryID:   entity.CategoryID,
		CategoryName: entity.CategoryName,
		Title:        entity.Title,
		Description:  entity.Description,
		Price:        entity.Price,
		ImageURL:     entity.ImageURL,
		ImageKeys:    cloneStrings(entity.ImageKeys),
		CreatedAt:    ConvertTime(entity.CreatedAt),
		UpdatedAt:    ConvertTime(entity.UpdatedAt),
	}
}

func (ProductConv) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}
	return &domain.Product{
		ID:           model.ID,
		OwnerID:      model.OwnerID,
		CategoryID:   model.CategoryID,
		CategoryName: model.CategoryName,
		Title:        model.Title,
		Description:  model.Description,
		Price:        model.Price,
		ImageURL:     model.ImageURL,
		ImageKeys:    cloneStrings(model.ImageKeys),
		CreatedAt:    ConvertTime(model.CreatedAt),
		UpdatedAt:    ConvertTime(model.UpdatedAt),
	}
}

type OrderConv struct{}

func (OrderConv) ToEntity(model *OrderModel, items []OrderItemModel) *domain.Order {
	if model == nil {
		return nil
	}
	order := &domain.Order{
		ID:          model.ID,
		UserID:      model.UserID,
		OrderDate:   ConvertTime(model.OrderDate),
		TotalAmount: model.TotalAmount,
		Items:       make([]domain.OrderItem, 0, len(items)),
	}
	for _, it := range items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return order
}

type OutboxEventConv struct{}

func (OutboxEventConv) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		AggregateID: entity.AggregateID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   ConvertTime(entity.CreatedAt),
		ProcessedAt: ConvertPointerTime(entity.ProcessedAt),
	}
}

func (OutboxEventConv) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		AggregateID: model.AggregateID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   ConvertTime(model.CreatedAt),
		ProcessedAt: ConvertPointerTime(model.ProcessedAt),
	}
}

func (c OutboxEventConv) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	if models == nil {
		return nil
	}
	out := make([]*usecase.OutboxEvent, len(models))
	for i, m := range models {
		out[i] = c.ToEntity(m)
	}
	return out
}

type IndexBuildConv struct{}

func (IndexBuildConv) ToModel(entity *domain.IndexBuild) *IndexBuildModel {
	if entity == nil {
		return nil
	}
	return &IndexBuildModel{
		ID:           entity.ID,
		BuildID:      entity.BuildID,
		RowCount:     entity.RowCount,
		Dimension:    entity.Dimension,
		ModelVersion: entity.ModelVersion,
		Location:     entity.Location,
		CreatedAt:    ConvertTime(entity.CreatedAt),
	}
}

func (IndexBuildConv) ToEntity(model *IndexBuildModel) *domain.IndexBuild {
	if model == nil {
		return nil
	}
	return &domain.IndexBuild{
		ID:           model.ID,
		BuildID:      model.BuildID,
		RowCount:     model.RowCount,
		Dimension:    model.Dimension,
		ModelVersion: model.ModelVersion,
		Location:     model.Location,
		CreatedAt:    ConvertTime(model.CreatedAt),
	}
}

// ConvertPointerTime копирует значение, чтобы модель и сущность не делили указатель.
func ConvertPointerTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func ConvertTime(t time.Time) time.Time {
	return t.UTC()
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
