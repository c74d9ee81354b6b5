package domain

import "time"

// MaxCartQuantity: предел количества одного товара в строке корзины.
const MaxCartQuantity = 1000

// CartItem: строка корзины пользователя. Повторное добавление товара увеличивает Quantity.
type CartItem struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	AddedAt   time.Time
	Product   *Product
}

func NewCartItem(userID, productID int64, quantity int) *CartItem {
	return &CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
}
