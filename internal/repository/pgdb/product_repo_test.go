package pgdb

import (
	"testing"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestProductFilterClause(t *testing.T) {
	categoryID := int64(4)

	tests := []struct {
		name      string
		filter    domain.ProductFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filters",
			filter:    domain.ProductFilter{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "category id wins over name",
			filter:    domain.ProductFilter{CategoryID: &categoryID, CategoryName: "elec"},
			wantWhere: " WHERE p.category_id = $1",
			wantArgs:  []any{int64(4)},
		},
		{
			name:      "name and keyword",
			filter:    domain.ProductFilter{CategoryName: "elec", Keyword: "50%_off"},
			wantWhere: " WHERE cat.name ILIKE $1 AND p.title ILIKE $2",
			wantArgs:  []any{"%elec%", `%50\%\_off%`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := productFilterClause(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
