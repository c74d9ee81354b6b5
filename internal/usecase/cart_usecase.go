package usecase

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
)

type CartUseCase struct {
	cartRepo    CartRepository
	productRepo ProductRepository
}

func NewCartUC(cartRepo CartRepository, productRepo ProductRepository) *CartUseCase {
	return &CartUseCase{cartRepo: cartRepo, productRepo: productRepo}
}

func (c *CartUseCase) List(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	const op = "CartUseCase.List"

	items, err := c.cartRepo.List(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return items, nil
}

// Add кладёт товар в корзину. Если строка с этим товаром уже есть, количество увеличивается.
func (c *CartUseCase) Add(ctx context.Context, req *AddToCartReq) (*domain.CartItem, error) {
	const op = "CartUseCase.Add"

	if req.ProductID == 0 {
		return nil, e.Wrap(op, e.ErrMissingFields)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > domain.MaxCartQuantity {
		return nil, e.Wrap(op, e.ErrInvalidQuantity)
	}

	product, err := c.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	item, err := c.cartRepo.AddOrIncrement(ctx, domain.NewCartItem(req.UserID, req.ProductID, req.Quantity))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	item.Product = product

	return item, nil
}

func (c *CartUseCase) Remove(ctx context.Context, itemID, userID int64) error {
	const op = "CartUseCase.Remove"

	item, err := c.cartRepo.GetByID(ctx, itemID)
	if err != nil {
		return e.Wrap(op, err)
	}
	if item.UserID != userID {
		return e.Wrap(op, e.ErrForbidden)
	}

	if err := c.cartRepo.Delete(ctx, itemID); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}
