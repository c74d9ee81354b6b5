package domain

import (
	"time"

	"github.com/google/uuid"
)

// IndexBuild: запись об одной сборке индекса похожих изображений.
type IndexBuild struct {
	ID           int64
	BuildID      uuid.UUID
	RowCount     int
	Dimension    int
	ModelVersion string
	Location     string // каталог или префикс в бакете с артефактами
	CreatedAt    time.Time
}
