package similarity

import (
	"fmt"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/idmap"
	"github.com/DRSN-tech/ecofinds/pkg/vectorindex"
	"github.com/google/uuid"
)

// Snapshot: неизменяемая пара «индекс + таблица соответствия» одной сборки.
// Число строк индекса всегда равно длине таблицы.
type Snapshot struct {
	index *vectorindex.Index
	ids   *idmap.Map
}

func NewSnapshot(index *vectorindex.Index, ids *idmap.Map) (*Snapshot, error) {
	const op = "similarity.NewSnapshot"

	if index == nil || ids == nil {
		return nil, fmt.Errorf("%s: missing artifact: %w", op, e.ErrIndexNotLoaded)
	}

	if err := idmap.CheckLockStep(ids, index.BuildID(), index.RowCount()); err != nil {
		return nil, e.Wrap(op, err)
	}

	return &Snapshot{index: index, ids: ids}, nil
}

func (s *Snapshot) BuildID() uuid.UUID {
	return s.index.BuildID()
}

func (s *Snapshot) RowCount() int {
	return s.index.RowCount()
}

func (s *Snapshot) Dimension() int {
	return s.index.Dimension()
}

func (s *Snapshot) Index() *vectorindex.Index {
	return s.index
}

func (s *Snapshot) IDs() *idmap.Map {
	return s.ids
}
