package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")

	// TotalsTolerance is the allowed gap between the item sum and the printed total.
	TotalsTolerance = decimal.RequireFromString("0.50")
)

const (
	FieldStoreHeader   = "store header"
	FieldInvoiceNumber = "invoice number"
	FieldTotals        = "totals block"
	FieldTaxTable      = "tax table"
)

// ParseError names the receipt field the parser could not find.
type ParseError struct {
	Field  string
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("parse receipt: missing %s", e.Field)
	}
	return fmt.Sprintf("parse receipt: missing %s: %s", e.Field, e.Detail)
}

// ValidationError collects every rule a parsed receipt broke.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid receipt: " + strings.Join(e.Problems, "; ")
}

type (
	RawLineItem struct {
		Quantity    int                 `json:"quantity" validate:"required,min=1"`
		Description string              `json:"description" validate:"required"`
		UnitPrice   decimal.NullDecimal `json:"unit_price"`
		TotalPrice  decimal.Decimal     `json:"total_price"`
		Weight      string              `json:"weight,omitempty"`
	}

	TaxBreakdown struct {
		Rate  int             `json:"rate"`
		Base  decimal.Decimal `json:"base"`
		Quota decimal.Decimal `json:"quota"`
	}

	ParsedReceipt struct {
		StoreName     string          `json:"store_name" validate:"required"`
		TaxID         string          `json:"tax_id" validate:"required"`
		Address       string          `json:"address"`
		PostalCode    string          `json:"postal_code" validate:"omitempty,len=5,numeric"`
		City          string          `json:"city"`
		Phone         string          `json:"phone"`
		InvoiceNumber string          `json:"invoice_number" validate:"required"`
		OrderNumber   string          `json:"order_number"`
		PurchasedAt   time.Time       `json:"purchased_at"`
		Total         decimal.Decimal `json:"total"`
		PaymentMethod string          `json:"payment_method"`
		Taxes         []TaxBreakdown  `json:"taxes" validate:"required,min=1"`
		Items         []RawLineItem   `json:"items" validate:"required,min=1,dive"`
	}
)

// ItemsTotal sums the total price of every line.
func (p *ParsedReceipt) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range p.Items {
		sum = sum.Add(it.TotalPrice)
	}
	return sum
}
