package matching

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uuid.UUID
	ExternalID    string
	DisplayName   string
	UnitPrice     decimal.NullDecimal
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID

	normalized string
	runes      []string
	tokens     map[string]struct{}
}

// Catalog is an immutable snapshot shared by every worker of a batch.
type Catalog struct {
	products []*Product
	byName   map[string][]*Product
}

func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		products: make([]*Product, 0, len(products)),
		byName:   make(map[string][]*Product, len(products)),
	}
	for i := range products {
		p := products[i]
		p.normalized = Normalize(p.DisplayName)
		if p.normalized == "" {
			continue
		}
		p.runes = splitRunes(p.normalized)
		p.tokens = Tokens(p.normalized)
		c.products = append(c.products, &p)
		c.byName[p.normalized] = append(c.byName[p.normalized], &p)
	}
	return c
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

func (c *Catalog) Products() []*Product {
	return c.products
}

// Lookup returns the products whose normalized name equals name.
func (c *Catalog) Lookup(name string) []*Product {
	return c.byName[Normalize(name)]
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
