package processing

import (
	"context"
	"testing"
	"time"

	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/internal/utils/testdb"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReceipt(invoice string) (*entities.Store, *entities.Receipt) {
	store := &entities.Store{Name: "MERCADONA, S.A.", TaxID: "A-46103834", City: "MADRID"}
	weight := "0,856 kg"
	receipt := &entities.Receipt{
		InvoiceNumber: invoice,
		PurchasedAt:   time.Date(2025, 12, 1, 14, 30, 0, 0, time.UTC),
		Total:         decimal.RequireFromString("4.30"),
		PaymentMethod: "TARJETA BANCARIA",
		Items: []*entities.LineItem{
			{Position: 1, Quantity: 1, Description: "PAN DE MOLDE", TotalPrice: decimal.RequireFromString("2.50")},
			{Position: 2, Quantity: 1, Description: "PLATANO", TotalPrice: decimal.RequireFromString("1.80"), Weight: &weight},
		},
		TaxLines: []*entities.TaxLine{
			{Rate: 4, Base: decimal.RequireFromString("4.13"), Quota: decimal.RequireFromString("0.17")},
		},
	}
	return store, receipt
}

func toSaving(t *testing.T, repo ProcessingRepository, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := repo.FindOrCreateLog(ctx, id, id+".pdf")
	require.NoError(t, err)
	_, err = repo.ClaimLog(ctx, id, time.Now())
	require.NoError(t, err)
	for _, from := range []domain.ProcessingStatus{domain.StatusDownloading, domain.StatusExtracting, domain.StatusParsing, domain.StatusValidating} {
		next, _ := from.Next()
		require.NoError(t, repo.UpdateLog(ctx, id, from, LogUpdate{Status: next}))
	}
}

func TestProcessingRepository_FindOrCreateIsKeyedByMessage(t *testing.T) {
	repo := NewProcessingRepository(testdb.Open(t))
	ctx := context.Background()

	a, err := repo.FindOrCreateLog(ctx, "m1", "a.pdf")
	require.NoError(t, err)
	b, err := repo.FindOrCreateLog(ctx, "m1", "other.pdf")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "a.pdf", b.AttachmentName)
	assert.Equal(t, string(domain.StatusPending), b.Status)
}

func TestProcessingRepository_ClaimIsExclusive(t *testing.T) {
	repo := NewProcessingRepository(testdb.Open(t))
	ctx := context.Background()
	_, err := repo.FindOrCreateLog(ctx, "m1", "a.pdf")
	require.NoError(t, err)

	claimed, err := repo.ClaimLog(ctx, "m1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusDownloading), claimed.Status)
	assert.NotNil(t, claimed.LastAttemptAt)

	_, err = repo.ClaimLog(ctx, "m1", time.Now())
	assert.ErrorIs(t, err, domain.ErrLogNotClaimable)
}

func TestProcessingRepository_UpdateLogChecksCurrentStatus(t *testing.T) {
	repo := NewProcessingRepository(testdb.Open(t))
	ctx := context.Background()
	_, err := repo.FindOrCreateLog(ctx, "m1", "a.pdf")
	require.NoError(t, err)
	_, err = repo.ClaimLog(ctx, "m1", time.Now())
	require.NoError(t, err)

	err = repo.UpdateLog(ctx, "m1", domain.StatusParsing, LogUpdate{Status: domain.StatusValidating})
	assert.ErrorIs(t, err, domain.ErrStaleTransition)

	err = repo.UpdateLog(ctx, "m1", domain.StatusDownloading, LogUpdate{Status: domain.StatusCompleted})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stage, msg := "downloading", "timeout"
	require.NoError(t, repo.UpdateLog(ctx, "m1", domain.StatusDownloading, LogUpdate{
		Status: domain.StatusRetry, Attempts: 1, ErrorStage: &stage, ErrorMessage: &msg,
	}))
	entry, err := repo.GetLog(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "retry", entry.Status)
	assert.Equal(t, 1, entry.Attempts)
	assert.Equal(t, "downloading", *entry.ErrorStage)

	_, err = repo.ClaimLog(ctx, "m1", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLog(ctx, "m1", domain.StatusDownloading, LogUpdate{Status: domain.StatusExtracting, Attempts: 1}))
	entry, err = repo.GetLog(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, entry.ErrorStage)
	assert.Nil(t, entry.ErrorMessage)
}

func TestProcessingRepository_CommitReceipt(t *testing.T) {
	db := testdb.Open(t)
	repo := NewProcessingRepository(db)
	ctx := context.Background()
	toSaving(t, repo, "m1")

	store, receipt := sampleReceipt("001-001-000001")
	res, err := repo.CommitReceipt(ctx, "m1", store, receipt, time.Now())
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	var items []entities.LineItem
	require.NoError(t, db.Where("receipt_id = ?", res.ReceiptID).Order("position").Find(&items).Error)
	require.Len(t, items, 2)
	assert.Equal(t, "0,856 kg", *items[1].Weight)
	assert.False(t, items[1].UnitPrice.Valid)

	var taxes int64
	require.NoError(t, db.Model(&entities.TaxLine{}).Where("receipt_id = ?", res.ReceiptID).Count(&taxes).Error)
	assert.Equal(t, int64(1), taxes)

	entry, err := repo.GetLog(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "completed", entry.Status)
	assert.Equal(t, res.ReceiptID, *entry.ReceiptID)
	assert.NotNil(t, entry.CompletedAt)
}

func TestProcessingRepository_CommitDuplicateInvoiceLinksExisting(t *testing.T) {
	db := testdb.Open(t)
	repo := NewProcessingRepository(db)
	ctx := context.Background()
	toSaving(t, repo, "m1")
	toSaving(t, repo, "m2")

	store, receipt := sampleReceipt("001-001-000001")
	first, err := repo.CommitReceipt(ctx, "m1", store, receipt, time.Now())
	require.NoError(t, err)

	store, receipt = sampleReceipt("001-001-000001")
	second, err := repo.CommitReceipt(ctx, "m2", store, receipt, time.Now())
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.ReceiptID, second.ReceiptID)

	var receipts, items, stores int64
	db.Model(&entities.Receipt{}).Count(&receipts)
	db.Model(&entities.LineItem{}).Count(&items)
	db.Model(&entities.Store{}).Count(&stores)
	assert.Equal(t, int64(1), receipts)
	assert.Equal(t, int64(2), items)
	assert.Equal(t, int64(1), stores)

	entry, err := repo.GetLog(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "completed", entry.Status)
	assert.Equal(t, domain.DuplicateNote, *entry.ErrorMessage)
}

func TestProcessingRepository_CommitRollsBackOnStaleLog(t *testing.T) {
	db := testdb.Open(t)
	repo := NewProcessingRepository(db)
	ctx := context.Background()
	_, err := repo.FindOrCreateLog(ctx, "m1", "a.pdf")
	require.NoError(t, err)

	store, receipt := sampleReceipt("001-001-000001")
	_, err = repo.CommitReceipt(ctx, "m1", store, receipt, time.Now())
	assert.ErrorIs(t, err, domain.ErrStaleTransition)

	var receipts, items int64
	db.Model(&entities.Receipt{}).Count(&receipts)
	db.Model(&entities.LineItem{}).Count(&items)
	assert.Zero(t, receipts)
	assert.Zero(t, items)
}

func TestProcessingRepository_ListAndCount(t *testing.T) {
	repo := NewProcessingRepository(testdb.Open(t))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_, err := repo.FindOrCreateLog(ctx, id, id+".pdf")
		require.NoError(t, err)
	}
	_, err := repo.ClaimLog(ctx, "a", time.Now())
	require.NoError(t, err)
	stage := "downloading"
	require.NoError(t, repo.UpdateLog(ctx, "a", domain.StatusDownloading, LogUpdate{Status: domain.StatusRetry, Attempts: 1, ErrorStage: &stage}))

	logs, total, err := repo.ListLogs(ctx, "pending", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)

	ids, err := repo.ListMessageIDs(ctx, domain.StatusRetry)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"pending": 2, "retry": 1}, counts)
}
