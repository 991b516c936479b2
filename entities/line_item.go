package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineItem struct {
	ID          uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptID   uuid.UUID           `gorm:"type:uuid;index;not null" json:"receipt_id"`
	Position    int                 `json:"position"`
	Quantity    int                 `gorm:"not null" json:"quantity"`
	Description string              `gorm:"size:200;index;not null" json:"description"`
	UnitPrice   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"unit_price"` // null for weight-priced items
	TotalPrice  decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Weight      *string             `gorm:"size:50" json:"weight,omitempty"`

	CatalogProductID *uuid.UUID `gorm:"type:uuid;index" json:"catalog_product_id,omitempty"`
	CategoryID       *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	SubcategoryID    *uuid.UUID `gorm:"type:uuid" json:"subcategory_id,omitempty"`
	Confidence       *float64   `json:"confidence,omitempty"`
	MatchMethod      *string    `gorm:"size:20;index" json:"match_method,omitempty"` // exact, fuzzy, keyword, price

	Receipt        *Receipt        `gorm:"foreignKey:ReceiptID"`
	CatalogProduct *CatalogProduct `gorm:"foreignKey:CatalogProductID"`
	Category       *Category       `gorm:"foreignKey:CategoryID"`
	Subcategory    *Subcategory    `gorm:"foreignKey:SubcategoryID"`
	Timestamp
}
