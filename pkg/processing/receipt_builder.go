package processing

import (
	"strings"

	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/pkg/matching"
)

// BuildReceipt turns a parsed receipt and the per-item match results into
// the rows written by CommitReceipt. matches must be aligned with p.Items.
func BuildReceipt(p *domain.ParsedReceipt, matches []matching.Match) (*entities.Store, *entities.Receipt) {
	store := &entities.Store{
		Name:       p.StoreName,
		TaxID:      p.TaxID,
		Address:    p.Address,
		PostalCode: p.PostalCode,
		City:       p.City,
		Phone:      p.Phone,
	}

	receipt := &entities.Receipt{
		InvoiceNumber: p.InvoiceNumber,
		OrderNumber:   p.OrderNumber,
		PurchasedAt:   p.PurchasedAt,
		Total:         p.Total,
		PaymentMethod: p.PaymentMethod,
		Items:         make([]*entities.LineItem, 0, len(p.Items)),
		TaxLines:      make([]*entities.TaxLine, 0, len(p.Taxes)),
	}

	for i, raw := range p.Items {
		item := &entities.LineItem{
			Position:    i + 1,
			Quantity:    raw.Quantity,
			Description: strings.TrimSpace(raw.Description),
			UnitPrice:   raw.UnitPrice,
			TotalPrice:  raw.TotalPrice,
		}
		if raw.Weight != "" {
			w := raw.Weight
			item.Weight = &w
		}
		if i < len(matches) {
			ApplyMatch(item, matches[i])
		}
		receipt.Items = append(receipt.Items, item)
	}

	for _, t := range p.Taxes {
		receipt.TaxLines = append(receipt.TaxLines, &entities.TaxLine{
			Rate:  t.Rate,
			Base:  t.Base,
			Quota: t.Quota,
		})
	}
	return store, receipt
}

// ApplyMatch copies a match onto a line item. An unmatched result clears
// every matching column.
func ApplyMatch(item *entities.LineItem, m matching.Match) {
	item.CatalogProductID = m.CatalogProductID
	item.CategoryID = m.CategoryID
	item.SubcategoryID = m.SubcategoryID
	item.Confidence = m.Confidence
	item.MatchMethod = nil
	if m.Method != nil {
		method := string(*m.Method)
		item.MatchMethod = &method
	}
}
