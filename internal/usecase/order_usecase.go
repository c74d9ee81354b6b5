package usecase

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
)

type OrderUseCase struct {
	orderRepo  OrderRepository
	cartRepo   CartRepository
	outboxRepo OutboxRepository
	tx         Transactor
	logger     logger.Logger
}

func NewOrderUC(
	orderRepo OrderRepository,
	cartRepo CartRepository,
	outboxRepo OutboxRepository,
	tx Transactor,
	logger logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		outboxRepo: outboxRepo,
		tx:         tx,
		logger:     logger,
	}
}

// Checkout оформляет заказ из корзины по текущим ценам.
// Заказ, его позиции, очистка корзины и событие order.created фиксируются одной транзакцией.
func (o *OrderUseCase) Checkout(ctx context.Context, userID int64) (*domain.Order, error) {
	const op = "OrderUseCase.Checkout"

	var order *domain.Order
	err := o.tx.Do(ctx, func(ctx context.Context) error {
		cart, err := o.cartRepo.List(ctx, userID)
		if err != nil {
			return err
		}

		draft, err := domain.NewOrderFromCart(userID, cart)
		if err != nil {
			return err
		}
		if len(draft.Items) == 0 {
			return e.ErrCartEmpty
		}

		order, err = o.orderRepo.Create(ctx, draft)
		if err != nil {
			return err
		}

		if err := o.cartRepo.Clear(ctx, userID); err != nil {
			return err
		}

		event := orderEvent{
			OrderID:     order.ID,
			UserID:      userID,
			TotalAmount: order.TotalAmount,
			ProductIDs:  make([]int64, 0, len(order.Items)),
		}
		for _, it := range order.Items {
			event.ProductIDs = append(event.ProductIDs, it.ProductID)
		}
		return writeOutbox(ctx, o.outboxRepo, OrderCreated, order.ID, event)
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	o.logger.Infof("order placed: id=%d user=%d total=%d", order.ID, userID, order.TotalAmount)
	return order, nil
}

func (o *OrderUseCase) List(ctx context.Context, userID int64) ([]domain.Order, error) {
	const op = "OrderUseCase.List"

	orders, err := o.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return orders, nil
}
