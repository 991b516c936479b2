package processing

import (
	"context"
	"errors"
	"time"

	"mercagasto/domain"
	"mercagasto/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	ProcessingRepository interface {
		FindOrCreateLog(ctx context.Context, messageID, attachmentName string) (*entities.ProcessingLog, error)
		GetLog(ctx context.Context, messageID string) (*entities.ProcessingLog, error)
		ClaimLog(ctx context.Context, messageID string, at time.Time) (*entities.ProcessingLog, error)
		UpdateLog(ctx context.Context, messageID string, from domain.ProcessingStatus, update LogUpdate) error
		CommitReceipt(ctx context.Context, messageID string, store *entities.Store, receipt *entities.Receipt, at time.Time) (CommitResult, error)
		ListLogs(ctx context.Context, status string, offset, limit int) ([]*entities.ProcessingLog, int64, error)
		ListMessageIDs(ctx context.Context, status domain.ProcessingStatus) ([]string, error)
		CountByStatus(ctx context.Context) (map[string]int64, error)
	}

	// LogUpdate is the full state written by a stage transition. Nil error
	// fields clear the stored values.
	LogUpdate struct {
		Status        domain.ProcessingStatus
		Attempts      int
		ErrorStage    *string
		ErrorMessage  *string
		LastAttemptAt *time.Time
	}

	CommitResult struct {
		ReceiptID uuid.UUID
		Duplicate bool
	}

	processingRepository struct {
		db *gorm.DB
	}
)

func NewProcessingRepository(db *gorm.DB) ProcessingRepository {
	return &processingRepository{db: db}
}

func (r *processingRepository) FindOrCreateLog(ctx context.Context, messageID, attachmentName string) (*entities.ProcessingLog, error) {
	entry := entities.ProcessingLog{
		MessageID:      messageID,
		AttachmentName: attachmentName,
		Status:         string(domain.StatusPending),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(&entry).Error
	if err != nil {
		return nil, err
	}
	return r.GetLog(ctx, messageID)
}

func (r *processingRepository) GetLog(ctx context.Context, messageID string) (*entities.ProcessingLog, error) {
	var entry entities.ProcessingLog
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLogNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// ClaimLog moves a pending or retry entry to downloading. Exactly one caller
// wins; the others get ErrLogNotClaimable.
func (r *processingRepository) ClaimLog(ctx context.Context, messageID string, at time.Time) (*entities.ProcessingLog, error) {
	res := r.db.WithContext(ctx).Model(&entities.ProcessingLog{}).
		Where("message_id = ? AND status IN ?", messageID, []string{string(domain.StatusPending), string(domain.StatusRetry)}).
		Updates(map[string]any{
			"status":          string(domain.StatusDownloading),
			"last_attempt_at": at,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected != 1 {
		return nil, domain.ErrLogNotClaimable
	}
	return r.GetLog(ctx, messageID)
}

func (r *processingRepository) UpdateLog(ctx context.Context, messageID string, from domain.ProcessingStatus, update LogUpdate) error {
	if err := domain.ValidateTransition(from, update.Status); err != nil {
		return err
	}
	values := map[string]any{
		"status":        string(update.Status),
		"attempts":      update.Attempts,
		"error_stage":   nullable(update.ErrorStage),
		"error_message": nullable(update.ErrorMessage),
	}
	if update.LastAttemptAt != nil {
		values["last_attempt_at"] = *update.LastAttemptAt
	}
	res := r.db.WithContext(ctx).Model(&entities.ProcessingLog{}).
		Where("message_id = ? AND status = ?", messageID, string(from)).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return domain.ErrStaleTransition
	}
	return nil
}

// CommitReceipt writes the store, the receipt with its items and tax lines,
// and the completed log entry in one transaction. A receipt whose invoice
// number is already stored is not written again; the log entry is linked to
// the stored one instead.
func (r *processingRepository) CommitReceipt(ctx context.Context, messageID string, store *entities.Store, receipt *entities.Receipt, at time.Time) (CommitResult, error) {
	var out CommitResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		storeID, err := upsertStore(tx, store)
		if err != nil {
			return err
		}
		receipt.StoreID = storeID

		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "invoice_number"}}, DoNothing: true}).
			Create(receipt)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			var existing entities.Receipt
			if err := tx.Select("id").Where("invoice_number = ?", receipt.InvoiceNumber).First(&existing).Error; err != nil {
				return err
			}
			out = CommitResult{ReceiptID: existing.ID, Duplicate: true}
		} else {
			for _, it := range receipt.Items {
				it.ReceiptID = receipt.ID
			}
			for _, tl := range receipt.TaxLines {
				tl.ReceiptID = receipt.ID
			}
			if len(receipt.Items) > 0 {
				if err := tx.Omit(clause.Associations).CreateInBatches(receipt.Items, 100).Error; err != nil {
					return err
				}
			}
			if len(receipt.TaxLines) > 0 {
				if err := tx.Omit(clause.Associations).Create(receipt.TaxLines).Error; err != nil {
					return err
				}
			}
			out = CommitResult{ReceiptID: receipt.ID}
		}

		note := gorm.Expr("NULL")
		if out.Duplicate {
			note = gorm.Expr("?", domain.DuplicateNote)
		}
		res = tx.Model(&entities.ProcessingLog{}).
			Where("message_id = ? AND status = ?", messageID, string(domain.StatusSaving)).
			Updates(map[string]any{
				"status":        string(domain.StatusCompleted),
				"receipt_id":    out.ReceiptID,
				"completed_at":  at,
				"error_stage":   gorm.Expr("NULL"),
				"error_message": note,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domain.ErrStaleTransition
		}
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}
	return out, nil
}

func upsertStore(tx *gorm.DB, store *entities.Store) (uuid.UUID, error) {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tax_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "address", "postal_code", "city", "phone", "updated_at"}),
	}).Omit(clause.Associations).Create(store).Error
	if err != nil {
		return uuid.Nil, err
	}
	var saved entities.Store
	if err := tx.Select("id").Where("tax_id = ?", store.TaxID).First(&saved).Error; err != nil {
		return uuid.Nil, err
	}
	return saved.ID, nil
}

func (r *processingRepository) ListLogs(ctx context.Context, status string, offset, limit int) ([]*entities.ProcessingLog, int64, error) {
	var logs []*entities.ProcessingLog
	var count int64

	query := r.db.WithContext(ctx).Model(&entities.ProcessingLog{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("updated_at desc").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, count, nil
}

func (r *processingRepository) ListMessageIDs(ctx context.Context, status domain.ProcessingStatus) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entities.ProcessingLog{}).
		Where("status = ?", string(status)).
		Order("created_at asc").
		Pluck("message_id", &ids).Error
	return ids, err
}

func (r *processingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&entities.ProcessingLog{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func nullable(s *string) any {
	if s == nil {
		return gorm.Expr("NULL")
	}
	return *s
}
