package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

type CartRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewCartRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *CartRepo {
	return &CartRepo{pool: pool, conv: conv}
}

// List возвращает корзину вместе с товарами. В транзакции строки блокируются до коммита.
func (c *CartRepo) List(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	query := `
		SELECT
			ci.id, ci.user_id, ci.product_id, ci.quantity, ci.added_at,
			p.id, p.owner_id, p.category_id, cat.name, p.title, p.description,
			p.price, p.image_url, '{}'::text[], p.created_at, p.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN categories cat ON cat.id = p.category_id
		WHERE ci.user_id = $1
		ORDER BY ci.id
		FOR UPDATE OF ci
	`

	rows, err := tr.QuerierFromCtx(ctx, c.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var (
			item    converter.CartItemModel
			product converter.ProductModel
		)
		err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt,
			&product.ID, &product.OwnerID, &product.CategoryID, &product.CategoryName, &product.Title, &product.Description,
			&product.Price, &product.ImageURL, &product.ImageKeys, &product.CreatedAt, &product.UpdatedAt,
		)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		entity := cartItemEntity(&item)
		entity.Product = c.conv.ToEntity(&product)
		items = append(items, *entity)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return items, nil
}

// AddOrIncrement добавляет товар в корзину или увеличивает количество существующей строки.
// Если сумма превысила бы domain.MaxCartQuantity, строка не меняется и возвращается e.ErrInvalidQuantity.
func (c *CartRepo) AddOrIncrement(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		WHERE cart_items.quantity + EXCLUDED.quantity <= $4
		RETURNING id, user_id, product_id, quantity, added_at
	`

	var model converter.CartItemModel
	err := tr.QuerierFromCtx(ctx, c.pool).
		QueryRow(ctx, query, item.UserID, item.ProductID, item.Quantity, domain.MaxCartQuantity).
		Scan(&model.ID, &model.UserID, &model.ProductID, &model.Quantity, &model.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrInvalidQuantity)
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return cartItemEntity(&model), nil
}

func (c *CartRepo) GetByID(ctx context.Context, id int64) (*domain.CartItem, error) {
	query := `SELECT id, user_id, product_id, quantity, added_at FROM cart_items WHERE id = $1`

	var model converter.CartItemModel
	err := tr.QuerierFromCtx(ctx, c.pool).
		QueryRow(ctx, query, id).
		Scan(&model.ID, &model.UserID, &model.ProductID, &model.Quantity, &model.AddedAt)
	if err != nil {
		if noRows(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrCartItemNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return cartItemEntity(&model), nil
}

func (c *CartRepo) Delete(ctx context.Context, id int64) error {
	tag, err := tr.QuerierFromCtx(ctx, c.pool).Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrCartItemNotFound)
	}
	return nil
}

func (c *CartRepo) Clear(ctx context.Context, userID int64) error {
	if _, err := tr.QuerierFromCtx(ctx, c.pool).Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

func cartItemEntity(m *converter.CartItemModel) *domain.CartItem {
	return &domain.CartItem{
		ID:        m.ID,
		UserID:    m.UserID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		AddedAt:   converter.ConvertTime(m.AddedAt),
	}
}
