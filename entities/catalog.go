package entities

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ExternalID string    `gorm:"size:50;uniqueIndex;not null" json:"external_id"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	Position   int       `json:"position"`

	Subcategories []*Subcategory `gorm:"foreignKey:CategoryID"`
	Timestamp
}

type Subcategory struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ExternalID string    `gorm:"size:50;uniqueIndex;not null" json:"external_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;index;not null" json:"category_id"`
	Name       string    `gorm:"size:200;not null" json:"name"`

	Category *Category `gorm:"foreignKey:CategoryID"`
	Timestamp
}

type CatalogProduct struct {
	ID              uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	ExternalID      string              `gorm:"size:50;uniqueIndex;not null" json:"external_id"`
	DisplayName     string              `gorm:"size:300;not null" json:"display_name"`
	NormalizedName  string              `gorm:"size:300;index" json:"normalized_name"`
	Packaging       string              `gorm:"size:100" json:"packaging"`
	UnitPrice       decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"unit_price"`
	BulkPrice       decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"bulk_price"`
	ReferencePrice  decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"reference_price"`
	ReferenceFormat string              `gorm:"size:20" json:"reference_format"`
	CategoryID      *uuid.UUID          `gorm:"type:uuid;index" json:"category_id,omitempty"`
	SubcategoryID   *uuid.UUID          `gorm:"type:uuid;index" json:"subcategory_id,omitempty"`
	Published       bool                `json:"published"`

	Category    *Category    `gorm:"foreignKey:CategoryID"`
	Subcategory *Subcategory `gorm:"foreignKey:SubcategoryID"`
	Timestamp
}
