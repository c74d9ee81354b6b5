package domain

import "time"

// SearchKeyword: запрос из поиска по каталогу, сохраняется для аналитики.
type SearchKeyword struct {
	ID         int64
	UserID     *int64
	Keyword    string
	SearchedAt time.Time
}
