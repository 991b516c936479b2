package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Receipt struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	StoreID       uuid.UUID       `gorm:"type:uuid;not null" json:"store_id"`
	InvoiceNumber string          `gorm:"size:50;uniqueIndex;not null" json:"invoice_number"`
	OrderNumber   string          `gorm:"size:50" json:"order_number"`
	PurchasedAt   time.Time       `gorm:"index;not null" json:"purchased_at"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	PaymentMethod string          `gorm:"size:50" json:"payment_method"` // TARJETA BANCARIA, EFECTIVO

	Store    *Store      `gorm:"foreignKey:StoreID"`
	Items    []*LineItem `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE"`
	TaxLines []*TaxLine  `gorm:"foreignKey:ReceiptID;constraint:OnDelete:CASCADE"`
	Timestamp
}

type TaxLine struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptID uuid.UUID       `gorm:"type:uuid;index;not null" json:"receipt_id"`
	Rate      int             `gorm:"not null" json:"rate"` // percent: 4, 10, 21
	Base      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base"`
	Quota     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quota"`

	Receipt *Receipt `gorm:"foreignKey:ReceiptID"`
}
