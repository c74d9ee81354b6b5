// Package vectorindex: точный (flat) индекс векторов изображений поверх vecgo.
// Строки нумеруются с нуля в порядке добавления, расстояние: квадрат L2.
package vectorindex

import (
	"context"
	"fmt"
	"slices"

	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/google/uuid"
	"github.com/hupe1980/vecgo/index/flat"
)

// Hit: найденная строка индекса и квадрат евклидова расстояния до запроса.
type Hit struct {
	Row      int
	Distance float32
}

// Index хранит векторы одной размерности. Поиск выполняет flat-индекс vecgo,
// построчная копия нужна для сериализации и Vector.
// После сборки индекс только читается, поэтому Search безопасен для конкурентного вызова.
type Index struct {
	dim     int
	rows    int
	data    []float32
	flat    *flat.Flat
	buildID uuid.UUID
}

// New создаёт пустой индекс заданной размерности.
func New(dim int) (*Index, error) {
	const op = "vectorindex.New"

	if dim <= 0 {
		return nil, fmt.Errorf("%s: dimension %d: %w", op, dim, e.ErrDimensionMismatch)
	}

	f, err := flat.New(func(o *flat.Options) {
		o.Dimension = dim
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &Index{dim: dim, flat: f}, nil
}

// Dimension возвращает размерность векторов.
func (idx *Index) Dimension() int {
	if idx == nil {
		return 0
	}
	return idx.dim
}

// RowCount возвращает число строк. Для nil-индекса: 0.
func (idx *Index) RowCount() int {
	if idx == nil {
		return 0
	}
	return idx.rows
}

// BuildID: идентификатор сборки, общий с таблицей соответствия.
func (idx *Index) BuildID() uuid.UUID {
	if idx == nil {
		return uuid.Nil
	}
	return idx.buildID
}

func (idx *Index) SetBuildID(id uuid.UUID) {
	idx.buildID = id
}

// Add добавляет вектор и возвращает номер его строки.
func (idx *Index) Add(vec []float32) (int, error) {
	const op = "Index.Add"

	if idx == nil {
		return 0, e.Wrap(op, e.ErrIndexNotLoaded)
	}

	if len(vec) != idx.dim {
		return 0, fmt.Errorf("%s: got %d, want %d: %w", op, len(vec), idx.dim, e.ErrDimensionMismatch)
	}

	id, err := idx.flat.Insert(context.Background(), vec)
	if err != nil {
		return 0, e.Wrap(op, err)
	}
	// Индекс только растёт, поэтому vecgo выдаёт ID подряд с нуля.
	if int(id) != idx.rows {
		return 0, fmt.Errorf("%s: flat index assigned id %d to row %d: %w", op, id, idx.rows, e.ErrCorruptedArtifact)
	}

	idx.data = append(idx.data, vec...)
	idx.rows++

	return idx.rows - 1, nil
}

// Vector возвращает копию вектора строки row.
func (idx *Index) Vector(row int) ([]float32, error) {
	const op = "Index.Vector"

	if idx == nil {
		return nil, e.Wrap(op, e.ErrIndexNotLoaded)
	}

	if row < 0 || row >= idx.rows {
		return nil, fmt.Errorf("%s: row %d of %d: %w", op, row, idx.rows, e.ErrOutOfRange)
	}

	return slices.Clone(idx.row(row)), nil
}

// Search возвращает min(k, RowCount) ближайших строк по возрастанию расстояния.
// При равных расстояниях первой идёт строка с меньшим номером.
// k <= 0 и пустой индекс дают пустой результат без ошибки.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	const op = "Index.Search"

	if idx == nil {
		return nil, e.Wrap(op, e.ErrIndexNotLoaded)
	}

	if len(query) != idx.dim {
		return nil, fmt.Errorf("%s: got %d, want %d: %w", op, len(query), idx.dim, e.ErrDimensionMismatch)
	}

	if k <= 0 || idx.rows == 0 {
		return []Hit{}, nil
	}
	k = min(k, idx.rows)

	// Один лишний кандидат показывает, нет ли ничьей на границе выдачи.
	res, err := idx.flat.KNNSearch(context.Background(), query, min(k+1, idx.rows), nil)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	hits := make([]Hit, len(res))
	for i, r := range res {
		hits[i] = Hit{Row: int(r.ID), Distance: r.Distance}
	}
	slices.SortFunc(hits, compareHits)

	if len(hits) > k && hits[k].Distance == hits[k-1].Distance {
		return idx.resolveTie(query, k), nil
	}
	if len(hits) > k {
		hits = hits[:k]
	}

	return hits, nil
}

// resolveTie пересчитывает выдачу полным перебором, когда на границе k несколько строк
// с одинаковым расстоянием: порядок среди них vecgo не определяет.
func (idx *Index) resolveTie(query []float32, k int) []Hit {
	hits := make([]Hit, idx.rows)
	for i := range hits {
		hits[i] = Hit{Row: i, Distance: squaredL2(query, idx.row(i))}
	}
	slices.SortFunc(hits, compareHits)

	return hits[:k]
}

func (idx *Index) row(i int) []float32 {
	return idx.data[i*idx.dim : (i+1)*idx.dim]
}

// squaredL2: квадрат евклидова расстояния. Длины векторов должны совпадать.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func compareHits(a, b Hit) int {
	switch {
	case a.Distance < b.Distance:
		return -1
	case a.Distance > b.Distance:
		return 1
	default:
		return a.Row - b.Row
	}
}
