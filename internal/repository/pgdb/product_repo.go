package pgdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/ecofinds/internal/similarity"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ProductRepo реализует репозиторий продуктов поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

// productSelect читает товар вместе с названием категории и ключами изображений.
// Источник строк подставляется через %s: таблица products или CTE.
const productSelect = `
	SELECT
		p.id, p.owner_id, p.category_id, cat.name, p.title, p.description,
		p.price, p.image_url,
		COALESCE((SELECT array_agg(pi.object_key ORDER BY pi.id)
		          FROM product_images pi WHERE pi.product_id = p.id), '{}'),
		p.created_at, p.updated_at
	FROM %s p
	JOIN categories cat ON cat.id = p.category_id
`

func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	model := p.conv.ToModel(product)
	query := `
		WITH ins AS (
			INSERT INTO products (owner_id, category_id, title, description, price, image_url)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		)` + fmt.Sprintf(productSelect, "ins")

	created, err := scanProduct(tr.QuerierFromCtx(ctx, p.pool).QueryRow(ctx, query,
		model.OwnerID, model.CategoryID, model.Title, model.Description, model.Price, model.ImageURL,
	))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(created), nil
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(productSelect, "products") + ` WHERE p.id = $1`

	model, err := scanProduct(tr.QuerierFromCtx(ctx, p.pool).QueryRow(ctx, query, id))
	if err != nil {
		if noRows(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

func (p *ProductRepo) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	model := p.conv.ToModel(product)
	query := `
		WITH upd AS (
			UPDATE products
			SET category_id = $2, title = $3, description = $4, price = $5, image_url = $6, updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)` + fmt.Sprintf(productSelect, "upd")

	updated, err := scanProduct(tr.QuerierFromCtx(ctx, p.pool).QueryRow(ctx, query,
		model.ID, model.CategoryID, model.Title, model.Description, model.Price, model.ImageURL,
	))
	if err != nil {
		if noRows(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(updated), nil
}

// Delete удаляет товар; строки корзин и изображения удаляются каскадом.
func (p *ProductRepo) Delete(ctx context.Context, id int64) error {
	tag, err := tr.QuerierFromCtx(ctx, p.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}
	return nil
}

// List возвращает страницу каталога, новые товары первыми.
func (p *ProductRepo) List(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	where, args := productFilterClause(filter)
	q := tr.QuerierFromCtx(ctx, p.pool)

	var total int64
	countQuery := `SELECT count(*) FROM products p JOIN categories cat ON cat.id = p.category_id` + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	page := &domain.ProductPage{
		Items:   make([]domain.Product, 0),
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}
	if total == 0 {
		return page, nil
	}

	args = append(args, filter.PerPage, filter.Offset())
	listQuery := fmt.Sprintf(productSelect, "products") + where +
		fmt.Sprintf(` ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		page.Items = append(page.Items, *p.conv.ToEntity(model))
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return page, nil
}

// GetProductsInfo возвращает информацию о продуктах по их идентификаторам, включая название категории.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, ids []int64) ([]usecase.ProductInfo, error) {
	query := `
		SELECT pr.id, pr.title, pr.price, pr.image_url, cat.name
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE pr.id = ANY($1)
	`

	rows, err := tr.QuerierFromCtx(ctx, p.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0)
	for rows.Next() {
		var product usecase.ProductInfo
		if err := rows.Scan(&product.ID, &product.Title, &product.Price, &product.ImageURL, &product.CategoryName); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, product)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// AttachImages привязывает ключи объектов MinIO к товару. Вызывать внутри транзакции.
func (p *ProductRepo) AttachImages(ctx context.Context, productID int64, keys []string) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO product_images (product_id, object_key)
		SELECT $1, key FROM unnest($2::text[]) WITH ORDINALITY AS t(key, ord)
		ORDER BY ord
	`
	if _, err := tx.Exec(ctx, query, productID, keys); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}

// CatalogImages возвращает первое изображение каждого товара: источник для сборки индекса.
func (p *ProductRepo) CatalogImages(ctx context.Context) ([]similarity.CatalogEntry, error) {
	query := `
		SELECT DISTINCT ON (product_id) product_id, object_key
		FROM product_images
		ORDER BY product_id, id
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var entries []similarity.CatalogEntry
	for rows.Next() {
		var entry similarity.CatalogEntry
		if err := rows.Scan(&entry.ProductID, &entry.ImageRef); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return entries, nil
}

// productFilterClause собирает WHERE и аргументы по фильтру каталога.
func productFilterClause(f domain.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	} else if f.CategoryName != "" {
		args = append(args, "%"+escapeLike(f.CategoryName)+"%")
		conds = append(conds, fmt.Sprintf("cat.name ILIKE $%d", len(args)))
	}

	if f.Keyword != "" {
		args = append(args, "%"+escapeLike(f.Keyword)+"%")
		conds = append(conds, fmt.Sprintf("p.title ILIKE $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var model converter.ProductModel
	err := row.Scan(
		&model.ID, &model.OwnerID, &model.CategoryID, &model.CategoryName, &model.Title, &model.Description,
		&model.Price, &model.ImageURL, &model.ImageKeys, &model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}
