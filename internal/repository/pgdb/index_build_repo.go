package pgdb

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// IndexBuildRepo хранит журнал сборок индекса похожих изображений.
type IndexBuildRepo struct {
	pool *pgxpool.Pool
	conv converter.IndexBuildConverter
}

func NewIndexBuildRepo(pool *pgxpool.Pool, conv converter.IndexBuildConverter) *IndexBuildRepo {
	return &IndexBuildRepo{
		pool: pool,
		conv: conv,
	}
}

const indexBuildColumns = `id, build_id, row_count, dimension, model_version, location, created_at`

// Create регистрирует сборку. Повторная регистрация того же build_id обновляет location.
func (r *IndexBuildRepo) Create(ctx context.Context, build *domain.IndexBuild) (*domain.IndexBuild, error) {
	model := r.conv.ToModel(build)
	query := `
		INSERT INTO index_builds (build_id, row_count, dimension, model_version, location)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (build_id)
		DO UPDATE SET location = EXCLUDED.location
		RETURNING ` + indexBuildColumns

	created, err := scanIndexBuild(tr.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query,
		model.BuildID, model.RowCount, model.Dimension, model.ModelVersion, model.Location,
	))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return r.conv.ToEntity(created), nil
}

// Latest возвращает последнюю зарегистрированную сборку.
func (r *IndexBuildRepo) Latest(ctx context.Context) (*domain.IndexBuild, error) {
	query := `SELECT ` + indexBuildColumns + ` FROM index_builds ORDER BY created_at DESC, id DESC LIMIT 1`
	return r.getOne(ctx, query)
}

func (r *IndexBuildRepo) GetByBuildID(ctx context.Context, buildID uuid.UUID) (*domain.IndexBuild, error) {
	query := `SELECT ` + indexBuildColumns + ` FROM index_builds WHERE build_id = $1`
	return r.getOne(ctx, query, buildID)
}

func (r *IndexBuildRepo) getOne(ctx context.Context, query string, args ...any) (*domain.IndexBuild, error) {
	model, err := scanIndexBuild(tr.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...))
	if err != nil {
		if noRows(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrNoIndexBuilds)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return r.conv.ToEntity(model), nil
}

func scanIndexBuild(row pgx.Row) (*converter.IndexBuildModel, error) {
	var model converter.IndexBuildModel
	err := row.Scan(
		&model.ID,
		&model.BuildID,
		&model.RowCount,
		&model.Dimension,
		&model.ModelVersion,
		&model.Location,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}
