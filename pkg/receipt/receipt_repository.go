package receipt

import (
	"context"
	"errors"
	"time"

	"mercagasto/domain"
	"mercagasto/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type (
	ReceiptRepository interface {
		GetReceiptByID(ctx context.Context, id uuid.UUID) (*entities.Receipt, error)
		MatchingStats(ctx context.Context, autoAccept, review float64) (domain.MatchingStats, error)
		RematchCandidates(ctx context.Context, below float64) ([]*entities.LineItem, error)
		UpdateItemMatches(ctx context.Context, items []*entities.LineItem) error
		CategoryTotals(ctx context.Context, from, to time.Time, minConfidence float64) ([]domain.CategoryTotal, error)
		PeriodTotals(ctx context.Context, from, to time.Time) (int64, decimal.Decimal, error)
		TopProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.ProductTotal, error)
	}

	receiptRepository struct {
		db *gorm.DB
	}
)

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) GetReceiptByID(ctx context.Context, id uuid.UUID) (*entities.Receipt, error) {
	var receipt entities.Receipt
	err := r.db.WithContext(ctx).
		Preload("Store").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("TaxLines").
		Where("id = ?", id).
		First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) MatchingStats(ctx context.Context, autoAccept, review float64) (domain.MatchingStats, error) {
	var out domain.MatchingStats
	db := r.db.WithContext(ctx)

	var bands struct {
		Total  int64
		Auto   int64
		Review int64
		Weak   int64
	}
	err := db.Model(&entities.LineItem{}).Select(
		"count(*) as total, "+
			"coalesce(sum(case when catalog_product_id is not null and confidence >= ? then 1 else 0 end), 0) as auto, "+
			"coalesce(sum(case when catalog_product_id is not null and confidence >= ? and confidence < ? then 1 else 0 end), 0) as review, "+
			"coalesce(sum(case when catalog_product_id is not null and confidence < ? then 1 else 0 end), 0) as weak",
		autoAccept, review, autoAccept, review,
	).Scan(&bands).Error
	if err != nil {
		return out, err
	}

	var methods []domain.MethodStats
	err = db.Model(&entities.LineItem{}).
		Select("match_method as method, count(*) as count, avg(confidence) as avg_confidence, min(confidence) as min_confidence, max(confidence) as max_confidence").
		Where("catalog_product_id IS NOT NULL").
		Group("match_method").
		Order("match_method asc").
		Scan(&methods).Error
	if err != nil {
		return out, err
	}

	out.TotalItems = bands.Total
	out.AutoAccepted = bands.Auto
	out.NeedsReview = bands.Review
	out.Weak = bands.Weak
	out.Categorized = bands.Auto + bands.Review
	out.Uncategorized = bands.Total - out.Categorized
	if bands.Total > 0 {
		out.CoverageRate = float64(out.Categorized) / float64(bands.Total)
	}
	out.ByMethod = methods
	return out, nil
}

// RematchCandidates returns items with no catalog reference or a confidence
// under the given cutoff.
func (r *receiptRepository) RematchCandidates(ctx context.Context, below float64) ([]*entities.LineItem, error) {
	var items []*entities.LineItem
	err := r.db.WithContext(ctx).
		Where("catalog_product_id IS NULL OR confidence < ?", below).
		Order("created_at asc").
		Find(&items).Error
	return items, err
}

func (r *receiptRepository) UpdateItemMatches(ctx context.Context, items []*entities.LineItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			err := tx.Model(&entities.LineItem{}).Where("id = ?", it.ID).Updates(map[string]any{
				"catalog_product_id": it.CatalogProductID,
				"category_id":        it.CategoryID,
				"subcategory_id":     it.SubcategoryID,
				"confidence":         it.Confidence,
				"match_method":       it.MatchMethod,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CategoryTotals groups spending in [from, to) by category. Items under
// minConfidence count as uncategorized.
func (r *receiptRepository) CategoryTotals(ctx context.Context, from, to time.Time, minConfidence float64) ([]domain.CategoryTotal, error) {
	var rows []struct {
		CategoryID *string
		Name       *string
		Items      int64
		Amount     decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Table("line_items AS li").
		Select("c.id AS category_id, c.name AS name, count(li.id) AS items, coalesce(sum(li.total_price), 0) AS amount").
		Joins("JOIN receipts r ON r.id = li.receipt_id").
		Joins("LEFT JOIN categories c ON c.id = li.category_id AND li.confidence >= ?", minConfidence).
		Where("r.purchased_at >= ? AND r.purchased_at < ?", from, to).
		Group("c.id, c.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.CategoryTotal, 0, len(rows))
	for _, row := range rows {
		ct := domain.CategoryTotal{
			Name:   domain.UncategorizedName,
			Items:  row.Items,
			Amount: row.Amount.Round(2),
		}
		if row.CategoryID != nil && row.Name != nil {
			ct.CategoryID = *row.CategoryID
			ct.Name = *row.Name
		}
		out = append(out, ct)
	}
	return out, nil
}

func (r *receiptRepository) PeriodTotals(ctx context.Context, from, to time.Time) (int64, decimal.Decimal, error) {
	var row struct {
		Receipts int64
		Total    decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&entities.Receipt{}).
		Select("count(*) AS receipts, coalesce(sum(total), 0) AS total").
		Where("purchased_at >= ? AND purchased_at < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	return row.Receipts, row.Total.Round(2), nil
}

// TopProducts ranks printed descriptions by amount spent in [from, to).
func (r *receiptRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]domain.ProductTotal, error) {
	var rows []domain.ProductTotal
	err := r.db.WithContext(ctx).
		Table("line_items AS li").
		Select("li.description AS description, coalesce(sum(li.quantity), 0) AS quantity, count(DISTINCT li.receipt_id) AS purchases, coalesce(sum(li.total_price), 0) AS amount").
		Joins("JOIN receipts r ON r.id = li.receipt_id").
		Where("r.purchased_at >= ? AND r.purchased_at < ?", from, to).
		Group("li.description").
		Order("amount DESC, description ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Amount = rows[i].Amount.Round(2)
	}
	return rows, nil
}
