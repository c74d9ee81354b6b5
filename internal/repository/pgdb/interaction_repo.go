package pgdb

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// InteractionRepo собирает оценки «пользователь, товар» из заказов и корзин.
type InteractionRepo struct {
	pool *pgxpool.Pool
}

func NewInteractionRepo(pool *pgxpool.Pool) *InteractionRepo {
	return &InteractionRepo{pool: pool}
}

// ListAll возвращает максимальную оценку каждой пары: покупка сильнее добавления в корзину.
func (i *InteractionRepo) ListAll(ctx context.Context) ([]domain.Interaction, error) {
	query := `
		SELECT user_id, product_id, MAX(score)
		FROM (
			SELECT o.user_id, oi.product_id, $1::float8 AS score
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			UNION ALL
			SELECT user_id, product_id, $2::float8
			FROM cart_items
		) t
		GROUP BY user_id, product_id
		ORDER BY user_id, product_id
	`

	rows, err := i.pool.Query(ctx, query, float64(domain.InteractionPurchase), float64(domain.InteractionCart))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var result []domain.Interaction
	for rows.Next() {
		var it domain.Interaction
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Score); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, it)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
