package entities

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	MessageID      string     `gorm:"size:200;uniqueIndex;not null" json:"message_id"`
	AttachmentName string     `gorm:"size:500" json:"attachment_name"`
	Status         string     `gorm:"size:20;index;not null" json:"status"` // see domain.ProcessingStatus
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	ErrorStage     *string    `gorm:"size:20" json:"error_stage,omitempty"`
	ErrorMessage   *string    `gorm:"type:text" json:"error_message,omitempty"`
	ReceiptID      *uuid.UUID `gorm:"type:uuid" json:"receipt_id,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	Receipt *Receipt `gorm:"foreignKey:ReceiptID"`
	Timestamp
}
