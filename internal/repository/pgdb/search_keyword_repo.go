package pgdb

import (
	"context"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

type SearchKeywordRepo struct {
	pool *pgxpool.Pool
}

func NewSearchKeywordRepo(pool *pgxpool.Pool) *SearchKeywordRepo {
	return &SearchKeywordRepo{pool: pool}
}

func (s *SearchKeywordRepo) Create(ctx context.Context, keyword *domain.SearchKeyword) error {
	err := tr.QuerierFromCtx(ctx, s.pool).
		QueryRow(ctx, `INSERT INTO search_keywords (user_id, keyword) VALUES ($1, $2) RETURNING id, searched_at`,
			keyword.UserID, keyword.Keyword).
		Scan(&keyword.ID, &keyword.SearchedAt)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	return nil
}
