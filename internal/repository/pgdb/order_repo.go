package pgdb

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

type OrderRepo struct {
	pool *pgxpool.Pool
	conv converter.OrderConverter
}

func NewOrderRepo(pool *pgxpool.Pool, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{pool: pool, conv: conv}
}

// Create сохраняет заказ и его позиции. Вызывать внутри транзакции.
func (o *OrderRepo) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.OrderModel
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, total_amount)
		VALUES ($1, $2)
		RETURNING id, user_id, order_date, total_amount
	`, order.UserID, order.TotalAmount).
		Scan(&model.ID, &model.UserID, &model.OrderDate, &model.TotalAmount)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var (
		productIDs = make([]int64, len(order.Items))
		quantities = make([]int32, len(order.Items))
		prices     = make([]int64, len(order.Items))
	)
	for i, it := range order.Items {
		productIDs[i] = it.ProductID
		quantities[i] = int32(it.Quantity)
		prices[i] = it.Price
	}

	rows, err := tx.Query(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		SELECT $1, t.product_id, t.quantity, t.price
		FROM unnest($2::bigint[], $3::int[], $4::bigint[]) WITH ORDINALITY AS t(product_id, quantity, price, ord)
		ORDER BY t.ord
		RETURNING id, order_id, product_id, quantity, price
	`, model.ID, productIDs, quantities, prices)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	items, err := scanOrderItems(rows)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(&model, items), nil
}

// ListByUser возвращает заказы пользователя, новые первыми, с позициями.
func (o *OrderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	q := tr.QuerierFromCtx(ctx, o.pool)

	rows, err := q.Query(ctx, `
		SELECT id, user_id, order_date, total_amount
		FROM orders
		WHERE user_id = $1
		ORDER BY order_date DESC, id DESC
	`, userID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var (
		models []converter.OrderModel
		ids    []int64
	)
	for rows.Next() {
		var m converter.OrderModel
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrderDate, &m.TotalAmount); err != nil {
			rows.Close()
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		models = append(models, m)
		ids = append(ids, m.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	orders := make([]domain.Order, 0, len(models))
	if len(models) == 0 {
		return orders, nil
	}

	itemRows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer itemRows.Close()

	items, err := scanOrderItems(itemRows)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	byOrder := make(map[int64][]converter.OrderItemModel, len(models))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	for i := range models {
		orders = append(orders, *o.conv.ToEntity(&models[i], byOrder[models[i].ID]))
	}

	return orders, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanOrderItems(rows rowScanner) ([]converter.OrderItemModel, error) {
	var items []converter.OrderItemModel
	for rows.Next() {
		var it converter.OrderItemModel
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
