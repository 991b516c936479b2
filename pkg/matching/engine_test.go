package matching

import (
	"testing"

	"mercagasto/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func product(name string, unit string) Product {
	cat := uuid.New()
	sub := uuid.New()
	p := Product{
		ID:            uuid.New(),
		ExternalID:    name,
		DisplayName:   name,
		CategoryID:    &cat,
		SubcategoryID: &sub,
	}
	if unit != "" {
		p.UnitPrice = price(unit)
	}
	return p
}

func item(desc string, qty int, total string) Item {
	return Item{Description: desc, Quantity: qty, TotalPrice: decimal.RequireFromString(total)}
}

func TestEngine_ExactMatch(t *testing.T) {
	catalog := NewCatalog([]Product{
		product("Leche entera sin lactosa", "1.15"),
		product("Leche entera", "0.95"),
	})
	engine := NewEngine(DefaultConfig())

	m := engine.Match(item("LECHE ENTERA", 1, "0.95"), catalog)

	require.True(t, m.Matched())
	assert.Equal(t, "Leche entera", m.ProductName)
	assert.Equal(t, 1.0, *m.Confidence)
	assert.Equal(t, domain.MethodExact, *m.Method)
	assert.Equal(t, catalog.Lookup("leche entera")[0].CategoryID, m.CategoryID)
}

func TestEngine_FuzzyMatchPicksClosestName(t *testing.T) {
	catalog := NewCatalog([]Product{
		product("Pan molde blanco", "1.20"),
		product("Pan de molde integral", "1.45"),
	})
	cfg := DefaultConfig()
	cfg.FuzzyMinRatio = 0.85
	engine := NewEngine(cfg)

	m := engine.Match(item("PAN MOLDE INTEGRAL", 1, "1.45"), catalog)

	require.True(t, m.Matched())
	assert.Equal(t, "Pan de molde integral", m.ProductName)
	assert.Equal(t, domain.MethodFuzzy, *m.Method)
	assert.InDelta(t, 0.923, *m.Confidence, 0.01)
	assert.Less(t, Ratio("pan molde integral", "pan molde blanco"), 0.85)
}

func TestEngine_KeywordTieResolvedByPrice(t *testing.T) {
	catalog := NewCatalog([]Product{
		product("Yogur natural desnatado", "1.50"),
		product("Yogur natural azucarado", "1.00"),
	})
	engine := NewEngine(DefaultConfig())

	m := engine.Match(item("YOGUR NATURAL", 1, "1.05"), catalog)

	require.True(t, m.Matched())
	assert.Equal(t, "Yogur natural azucarado", m.ProductName)
	assert.Equal(t, domain.MethodPrice, *m.Method)
	assert.InDelta(t, 2.0/3.0, *m.Confidence, 1e-9)
}

func TestEngine_ExactBeatsFuzzy(t *testing.T) {
	catalog := NewCatalog([]Product{
		product("Tomate frito", "0.85"),
		product("Tomate frito casero", "1.10"),
		product("Tomates fritos", "0.90"),
	})
	engine := NewEngine(DefaultConfig())

	m := engine.Match(item("TOMATE FRITO", 2, "1.70"), catalog)

	require.True(t, m.Matched())
	assert.Equal(t, domain.MethodExact, *m.Method)
	assert.Equal(t, "Tomate frito", m.ProductName)
}

func TestEngine_Unmatched(t *testing.T) {
	catalog := NewCatalog([]Product{product("Leche entera", "0.95")})
	engine := NewEngine(DefaultConfig())

	m := engine.Match(item("BOLSA PLASTICO", 1, "0.15"), catalog)

	assert.False(t, m.Matched())
	assert.Nil(t, m.Confidence)
	assert.Nil(t, m.Method)
	assert.Nil(t, m.CategoryID)
	assert.Nil(t, m.SubcategoryID)
}

func TestEngine_EmptyCatalogLeavesItemsUnmatched(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	out := engine.MatchAll([]Item{item("LECHE ENTERA", 1, "0.95")}, NewCatalog(nil))

	require.Len(t, out, 1)
	assert.False(t, out[0].Matched())
}

func TestEngine_ConfidenceBounded(t *testing.T) {
	catalog := NewCatalog([]Product{
		product("Queso fresco batido", "1.60"),
		product("Queso curado", "6.10"),
		product("Aceite de oliva virgen extra", "4.95"),
		product("Agua mineral", "0.25"),
	})
	engine := NewEngine(DefaultConfig())

	for _, desc := range []string{"QUESO FRESCO", "ACEITE OLIVA", "AGUA", "Q CURADO", "PIZZA", ""} {
		m := engine.Match(item(desc, 1, "1.00"), catalog)
		if !m.Matched() {
			assert.Nil(t, m.Confidence, desc)
			continue
		}
		require.NotNil(t, m.Confidence, desc)
		assert.GreaterOrEqual(t, *m.Confidence, 0.0, desc)
		assert.LessOrEqual(t, *m.Confidence, 1.0, desc)
	}
}

func TestEngine_Band(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	assert.Equal(t, domain.BandAuto, engine.Band(1.0))
	assert.Equal(t, domain.BandAuto, engine.Band(0.9))
	assert.Equal(t, domain.BandReview, engine.Band(0.75))
	assert.Equal(t, domain.BandReview, engine.Band(0.7))
	assert.Equal(t, domain.BandWeak, engine.Band(0.69))
}
