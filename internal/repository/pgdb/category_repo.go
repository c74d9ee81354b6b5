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

// CategoryRepo реализует репозиторий категорий поверх PostgreSQL.
type CategoryRepo struct {
	pool *pgxpool.Pool
	conv converter.CategoryConverter
}

func NewCategoryRepo(pool *pgxpool.Pool, conv converter.CategoryConverter) *CategoryRepo {
	return &CategoryRepo{pool: pool, conv: conv}
}

func (c *CategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := tr.QuerierFromCtx(ctx, c.pool).Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Category, 0)
	for rows.Next() {
		var model converter.CategoryModel
		if err := rows.Scan(&model.ID, &model.Name, &model.CreatedAt); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *c.conv.ToEntity(&model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// CreateIfNotExists идемпотентно создаёт категорию по имени, игнорируя дубликаты.
func (c *CategoryRepo) CreateIfNotExists(ctx context.Context, name string) (bool, error) {
	query := `
		INSERT INTO categories(name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING;
	`

	tag, err := tr.QuerierFromCtx(ctx, c.pool).Exec(ctx, query, name)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() == 1, nil
}

func (c *CategoryRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := tr.QuerierFromCtx(ctx, c.pool).
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).
		Scan(&ok)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}
	return ok, nil
}
