package insights

import (
	"math"
	"sort"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

const (
	similarUsers = 2
	likedScore   = 3
)

// Recommender: user-based коллаборативная фильтрация по косинусному расстоянию.
type Recommender struct {
	neighbours int
}

func NewRecommender() *Recommender {
	return &Recommender{neighbours: similarUsers}
}

// Recommend возвращает отсортированные по возрастанию ID товаров, которые высоко оценили ближайшие
// пользователи и с которыми userID ещё не взаимодействовал.
func (r *Recommender) Recommend(interactions []domain.Interaction, userID int64) ([]int64, error) {
	const op = "Recommender.Recommend"

	matrix := buildMatrix(interactions)
	own, ok := matrix.rows[userID]
	if !ok {
		return nil, e.Wrap(op, e.ErrNoInteractions)
	}

	type candidate struct {
		userID int64
		dist   float64
	}
	candidates := make([]candidate, 0, len(matrix.rows)-1)
	for uid, row := range matrix.rows {
		if uid == userID {
			continue
		}
		candidates = append(candidates, candidate{userID: uid, dist: cosineDistance(own, row)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].userID < candidates[j].userID
	})
	if len(candidates) > r.neighbours {
		candidates = candidates[:r.neighbours]
	}

	recs := roaring64.New()
	for _, c := range candidates {
		recs.Or(matrix.liked(c.userID))
	}
	recs.AndNot(matrix.seen(userID))

	out := make([]int64, 0, recs.GetCardinality())
	for _, id := range recs.ToArray() {
		out = append(out, int64(id))
	}

	return out, nil
}

type userItemMatrix struct {
	products []int64
	rows     map[int64][]float64
}

// liked: товары, которые пользователь оценил выше likedScore.
func (m userItemMatrix) liked(userID int64) *roaring64.Bitmap {
	return m.filter(userID, func(score float64) bool { return score > likedScore })
}

// seen: товары, с которыми пользователь уже взаимодействовал.
func (m userItemMatrix) seen(userID int64) *roaring64.Bitmap {
	return m.filter(userID, func(score float64) bool { return score > 0 })
}

func (m userItemMatrix) filter(userID int64, keep func(float64) bool) *roaring64.Bitmap {
	bm := roaring64.New()
	for i, score := range m.rows[userID] {
		if keep(score) {
			bm.Add(uint64(m.products[i]))
		}
	}
	return bm
}

// buildMatrix сворачивает взаимодействия в матрицу «пользователь × товар».
// Для повторяющейся пары берётся максимальная оценка.
func buildMatrix(interactions []domain.Interaction) userItemMatrix {
	col := make(map[int64]int)
	var products []int64
	for _, it := range interactions {
		if _, ok := col[it.ProductID]; !ok {
			col[it.ProductID] = 0
			products = append(products, it.ProductID)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })
	for i, id := range products {
		col[id] = i
	}

	rows := make(map[int64][]float64)
	for _, it := range interactions {
		row, ok := rows[it.UserID]
		if !ok {
			row = make([]float64, len(products))
			rows[it.UserID] = row
		}
		if c := col[it.ProductID]; it.Score > row[c] {
			row[c] = it.Score
		}
	}

	return userItemMatrix{products: products, rows: rows}
}

// cosineDistance = 1 - cos. Для нулевого вектора расстояние 1.
func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
