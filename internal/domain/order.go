package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/DRSN-tech/ecofinds/pkg/e"
)

// Order: оформленный заказ. TotalAmount и цены позиций в центах на момент оформления.
type Order struct {
	ID          int64
	UserID      int64
	OrderDate   time.Time
	TotalAmount int64
	Items       []OrderItem
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     int64
}

// NewOrderFromCart собирает заказ по текущим ценам товаров корзины.
// Сумма, не помещающаяся в int64, даёт e.ErrOrderTotalOverflow.
func NewOrderFromCart(userID int64, cart []CartItem) (*Order, error) {
	order := &Order{
		UserID: userID,
		Items:  make([]OrderItem, 0, len(cart)),
	}

	for _, ci := range cart {
		if ci.Product == nil {
			continue
		}
		order.Items = append(order.Items, OrderItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Price:     ci.Product.Price,
		})

		line, ok := mulCents(ci.Product.Price, ci.Quantity)
		if !ok || order.TotalAmount > math.MaxInt64-line {
			return nil, fmt.Errorf("product %d x %d: %w", ci.ProductID, ci.Quantity, e.ErrOrderTotalOverflow)
		}
		order.TotalAmount += line
	}

	return order, nil
}

// mulCents умножает цену на количество. Обе величины неотрицательны.
func mulCents(price int64, qty int) (int64, bool) {
	if price < 0 || qty < 0 {
		return 0, false
	}
	if qty != 0 && price > math.MaxInt64/int64(qty) {
		return 0, false
	}
	return price * int64(qty), true
}
