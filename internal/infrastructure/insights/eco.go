package insights

import (
	"strings"

	"github.com/DRSN-tech/ecofinds/internal/usecase"
)

type ecoEntry struct {
	co2   float64
	water *float64
	waste *float64
}

func ptr(v float64) *float64 { return &v }

var ecoTable = map[string]ecoEntry{
	"t-shirt":    {co2: 6, water: ptr(2700)},
	"smartphone": {co2: 80, waste: ptr(0.5)},
	"jeans":      {co2: 33, water: ptr(3781)},
	"laptop":     {co2: 250, water: ptr(190000)},
}

// EcoCatalog: справочник экологического следа по категориям.
type EcoCatalog struct{}

func NewEcoCatalog() *EcoCatalog {
	return &EcoCatalog{}
}

// Lookup ищет категорию без учёта регистра.
func (c *EcoCatalog) Lookup(category string) (*usecase.EcoImpact, bool) {
	entry, ok := ecoTable[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return nil, false
	}

	impact := &usecase.EcoImpact{CO2Kg: ptr(entry.co2)}
	if entry.water != nil {
		impact.WaterLiters = ptr(*entry.water)
	}
	if entry.waste != nil {
		impact.WasteKg = ptr(*entry.waste)
	}
	return impact, true
}
