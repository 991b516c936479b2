package matching

import (
	"mercagasto/domain"

	"github.com/shopspring/decimal"
)

// scoreEpsilon is the distance under which two scores count as tied.
const scoreEpsilon = 1e-9

type Item struct {
	Description string
	Quantity    int
	UnitPrice   decimal.NullDecimal
	TotalPrice  decimal.Decimal
}

func ItemFromRaw(raw domain.RawLineItem) Item {
	return Item{
		Description: raw.Description,
		Quantity:    raw.Quantity,
		UnitPrice:   raw.UnitPrice,
		TotalPrice:  raw.TotalPrice,
	}
}

// ReferencePrice is the unit price, or total/quantity when none was printed.
func (it Item) ReferencePrice() (decimal.Decimal, bool) {
	if it.UnitPrice.Valid {
		return it.UnitPrice.Decimal, true
	}
	if it.TotalPrice.IsZero() {
		return decimal.Zero, false
	}
	q := it.Quantity
	if q <= 0 {
		q = 1
	}
	return it.TotalPrice.Div(decimal.NewFromInt(int64(q))), true
}

type Result struct {
	Product    *Product
	Confidence float64
	Method     domain.MatchMethod
}

// Strategy is one step of the matching cascade.
type Strategy interface {
	Method() domain.MatchMethod
	Attempt(item Item, catalog *Catalog) (Result, bool)
}
