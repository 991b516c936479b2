package entities

import (
	"github.com/google/uuid"
)

type Store struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	TaxID      string    `gorm:"size:20;uniqueIndex;not null" json:"tax_id"` // CIF printed on the receipt header
	Address    string    `json:"address"`
	PostalCode string    `gorm:"size:10" json:"postal_code"`
	City       string    `gorm:"size:100" json:"city"`
	Phone      string    `gorm:"size:20" json:"phone"`

	Receipts []*Receipt `gorm:"foreignKey:StoreID"`
	Timestamp
}
