package matching

import (
	"github.com/shopspring/decimal"
)

// closestPrice picks the candidate whose unit price is nearest to the item's
// reference price. It fails when the item has no usable price, when no
// candidate carries a price, or when the nearest distance is itself tied.
func closestPrice(item Item, candidates []*Product) (*Product, bool) {
	ref, ok := item.ReferencePrice()
	if !ok {
		return nil, false
	}

	var best *Product
	var bestDist decimal.Decimal
	tied := false
	for _, p := range candidates {
		if !p.UnitPrice.Valid {
			continue
		}
		dist := p.UnitPrice.Decimal.Sub(ref).Abs()
		switch {
		case best == nil || dist.LessThan(bestDist):
			best, bestDist, tied = p, dist, false
		case dist.Equal(bestDist):
			tied = true
		}
	}
	if best == nil || tied {
		return nil, false
	}
	return best, true
}
