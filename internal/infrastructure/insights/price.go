package insights

import (
	"math"
	"sort"
	"strings"
)

// pricePoint: обучающая строка: код категории, код состояния, цена.
type pricePoint struct {
	category  float64
	condition float64
	price     float64
}

var defaultPriceTable = []pricePoint{
	{1, 3, 50},
	{2, 2, 200},
	{1, 3, 65},
	{3, 1, 15},
	{2, 2, 150},
}

var (
	categoryCodes = map[string]float64{
		"electronics": 1,
		"fashion":     2,
		"home":        3,
	}
	conditionCodes = map[string]float64{
		ConditionExcellent:   3,
		ConditionGood:        2,
		ConditionNeedsRepair: 1,
	}
)

const (
	defaultCategoryCode  = 1
	defaultConditionCode = 2
	priceNeighbours      = 3
)

// PriceSuggester: регрессия k ближайших соседей по (категория, состояние).
type PriceSuggester struct {
	points []pricePoint
	k      int
}

func NewPriceSuggester() *PriceSuggester {
	points := make([]pricePoint, len(defaultPriceTable))
	copy(points, defaultPriceTable)
	return &PriceSuggester{points: points, k: priceNeighbours}
}

// Suggest возвращает цену, округлённую до центов.
// Неизвестная категория считается electronics, неизвестное состояние: Good.
func (p *PriceSuggester) Suggest(category, condition string) float64 {
	cat, ok := categoryCodes[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		cat = defaultCategoryCode
	}
	cond, ok := conditionCodes[strings.TrimSpace(condition)]
	if !ok {
		cond = defaultConditionCode
	}

	return math.Round(p.predict(cat, cond)*100) / 100
}

// predict: точные совпадения усредняются, иначе соседи взвешиваются обратным расстоянием.
func (p *PriceSuggester) predict(cat, cond float64) float64 {
	type neighbour struct {
		dist  float64
		price float64
	}

	neighbours := make([]neighbour, 0, len(p.points))
	var exactSum float64
	var exact int
	for _, pt := range p.points {
		d := math.Hypot(pt.category-cat, pt.condition-cond)
		if d == 0 {
			exactSum += pt.price
			exact++
			continue
		}
		neighbours = append(neighbours, neighbour{dist: d, price: pt.price})
	}
	if exact > 0 {
		return exactSum / float64(exact)
	}

	sort.SliceStable(neighbours, func(i, j int) bool { return neighbours[i].dist < neighbours[j].dist })
	if len(neighbours) > p.k {
		neighbours = neighbours[:p.k]
	}

	var num, den float64
	for _, n := range neighbours {
		w := 1 / n.dist
		num += w * n.price
		den += w
	}
	if den == 0 {
		return 0
	}
	return num / den
}
