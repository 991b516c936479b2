package receipt

import (
	"context"
	"testing"
	"time"

	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/internal/utils/testdb"
	"mercagasto/pkg/catalog"
	"mercagasto/pkg/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	service ReceiptService
	dairy   *entities.Category
	bakery  *entities.Category
	milk    *entities.CatalogProduct
	bread   *entities.CatalogProduct
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)

	dairy := &entities.Category{ExternalID: "1", Name: "Lácteos"}
	bakery := &entities.Category{ExternalID: "2", Name: "Panadería"}
	require.NoError(t, db.Create(dairy).Error)
	require.NoError(t, db.Create(bakery).Error)

	milk := &entities.CatalogProduct{
		ExternalID: "10", DisplayName: "Leche entera", NormalizedName: "leche entera",
		UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("0.95")), CategoryID: &dairy.ID, Published: true,
	}
	bread := &entities.CatalogProduct{
		ExternalID: "20", DisplayName: "Pan de molde", NormalizedName: "pan de molde",
		UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("1.45")), CategoryID: &bakery.ID, Published: true,
	}
	require.NoError(t, db.Create(milk).Error)
	require.NoError(t, db.Create(bread).Error)

	engine := matching.NewEngine(matching.DefaultConfig())
	catalogs := catalog.NewCatalogService(catalog.NewCatalogRepository(db))
	return &fixture{
		db:      db,
		service: NewReceiptService(NewReceiptRepository(db), engine, catalogs),
		dairy:   dairy,
		bakery:  bakery,
		milk:    milk,
		bread:   bread,
	}
}

func matched(p *entities.CatalogProduct, conf float64, method domain.MatchMethod) func(*entities.LineItem) {
	return func(it *entities.LineItem) {
		id := p.ID
		m := string(method)
		it.CatalogProductID = &id
		it.CategoryID = p.CategoryID
		it.Confidence = &conf
		it.MatchMethod = &m
	}
}

func item(desc, total string, opts ...func(*entities.LineItem)) *entities.LineItem {
	it := &entities.LineItem{Quantity: 1, Description: desc, TotalPrice: decimal.RequireFromString(total)}
	for _, o := range opts {
		o(it)
	}
	return it
}

func (f *fixture) addReceipt(t *testing.T, invoice string, at time.Time, total string, items ...*entities.LineItem) *entities.Receipt {
	t.Helper()
	store := &entities.Store{Name: "MERCADONA, S.A.", TaxID: "A-" + invoice}
	require.NoError(t, f.db.Create(store).Error)
	for i, it := range items {
		it.Position = i + 1
	}
	r := &entities.Receipt{
		StoreID:       store.ID,
		InvoiceNumber: invoice,
		PurchasedAt:   at,
		Total:         decimal.RequireFromString(total),
		Items:         items,
	}
	require.NoError(t, f.db.Create(r).Error)
	return r
}

func TestReceiptService_MatchingStatsCountsBands(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	f.addReceipt(t, "1", at, "6.00",
		item("LECHE ENTERA", "0.95", matched(f.milk, 1.0, domain.MethodExact)),
		item("PAN MOLDE", "1.45", matched(f.bread, 0.8, domain.MethodFuzzy)),
		item("PAN RALLADO", "1.10", matched(f.bread, 0.6, domain.MethodKeyword)),
		item("FREGONA", "2.50"),
	)

	stats, err := f.service.GetMatchingStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalItems)
	assert.Equal(t, int64(2), stats.Categorized)
	assert.Equal(t, int64(2), stats.Uncategorized)
	assert.InDelta(t, 0.5, stats.CoverageRate, 1e-9)
	assert.Equal(t, int64(1), stats.AutoAccepted)
	assert.Equal(t, int64(1), stats.NeedsReview)
	assert.Equal(t, int64(1), stats.Weak)
	require.Len(t, stats.ByMethod, 3)
	assert.Equal(t, "exact", stats.ByMethod[0].Method)
	assert.Equal(t, int64(1), stats.ByMethod[0].Count)
}

func TestReceiptService_MatchingStatsEmpty(t *testing.T) {
	f := newFixture(t)
	stats, err := f.service.GetMatchingStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
	assert.Zero(t, stats.CoverageRate)
}

func TestReceiptService_RematchOnlyWritesImprovements(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	r := f.addReceipt(t, "1", at, "6.00",
		item("LECHE ENTERA", "0.95"),
		item("PAN DE MOLDE", "1.45", matched(f.bread, 1.0, domain.MethodExact)),
		item("FREGONA", "2.50"),
	)

	summary, err := f.service.Rematch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Examined)
	assert.Equal(t, 1, summary.Improved)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Equal(t, int64(2), summary.Matches.TotalItems)
	assert.Equal(t, int64(1), summary.Matches.AutoAccepted)

	got, err := f.service.GetReceipt(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 3)

	milk := got.Items[0]
	require.NotNil(t, milk.CatalogProductID)
	assert.Equal(t, f.milk.ID, *milk.CatalogProductID)
	assert.Equal(t, f.dairy.ID, *milk.CategoryID)
	assert.Equal(t, "exact", *milk.MatchMethod)
	assert.Nil(t, got.Items[2].CatalogProductID)

	again, err := f.service.Rematch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Improved)
}

func TestReceiptService_RematchNeedsCatalog(t *testing.T) {
	db := testdb.Open(t)
	svc := NewReceiptService(NewReceiptRepository(db), matching.NewEngine(matching.DefaultConfig()),
		catalog.NewCatalogService(catalog.NewCatalogRepository(db)))
	_, err := svc.Rematch(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyCatalog)
}

func TestReceiptService_CategoryTotals(t *testing.T) {
	f := newFixture(t)
	f.addReceipt(t, "1", time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC), "5.85",
		item("LECHE ENTERA", "1.90", matched(f.milk, 1.0, domain.MethodExact)),
		item("PAN DE MOLDE", "1.45", matched(f.bread, 1.0, domain.MethodExact)),
		item("PAN RARO", "1.00", matched(f.bread, 0.5, domain.MethodKeyword)),
		item("FREGONA", "1.50"),
	)
	f.addReceipt(t, "2", time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC), "0.95",
		item("LECHE ENTERA", "0.95", matched(f.milk, 1.0, domain.MethodExact)),
	)

	totals, err := f.service.CategoryTotals(context.Background(), domain.CategoryTotalsRequest{From: "2025-12-01", To: "2025-12-01"})
	require.NoError(t, err)
	require.Len(t, totals, 3)

	assert.Equal(t, domain.UncategorizedName, totals[0].Name)
	assert.Equal(t, int64(2), totals[0].Items)
	assert.True(t, decimal.RequireFromString("2.50").Equal(totals[0].Amount), totals[0].Amount.String())
	assert.Equal(t, "Lácteos", totals[1].Name)
	assert.True(t, decimal.RequireFromString("1.90").Equal(totals[1].Amount))
	assert.Equal(t, f.dairy.ID.String(), totals[1].CategoryID)
	assert.Equal(t, "Panadería", totals[2].Name)
}

func TestReceiptService_CategoryTotalsUseStoreDays(t *testing.T) {
	f := newFixture(t)
	madrid := time.FixedZone("CET", 3600)
	f.service.(*receiptService).loc = madrid

	// 00:30 on 2 December in the store is still 1 December in UTC.
	at := time.Date(2025, 12, 2, 0, 30, 0, 0, madrid)
	f.addReceipt(t, "1", at.UTC(), "0.95", item("LECHE ENTERA", "0.95", matched(f.milk, 1.0, domain.MethodExact)))

	totals, err := f.service.CategoryTotals(context.Background(), domain.CategoryTotalsRequest{From: "2025-12-02", To: "2025-12-02"})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "Lácteos", totals[0].Name)

	totals, err = f.service.CategoryTotals(context.Background(), domain.CategoryTotalsRequest{From: "2025-12-01", To: "2025-12-01"})
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestReceiptService_CategoryTotalsRejectsBadRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CategoryTotals(ctx, domain.CategoryTotalsRequest{From: "2025-12-10", To: "2025-12-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = f.service.CategoryTotals(ctx, domain.CategoryTotalsRequest{From: "01/12/2025", To: "2025-12-01"})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestReceiptService_PeriodSummary(t *testing.T) {
	f := newFixture(t)
	f.addReceipt(t, "1", time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC), "3.00", item("FREGONA", "3.00"))
	f.addReceipt(t, "2", time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC), "4.00", item("FREGONA", "2.50"), item("LEJIA", "1.50"))
	f.addReceipt(t, "3", time.Date(2025, 12, 9, 10, 0, 0, 0, time.UTC), "9.00", item("FREGONA", "9.00"))

	from := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	sum, err := f.service.PeriodSummary(context.Background(), from, from.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.Receipts)
	assert.True(t, decimal.RequireFromString("7").Equal(sum.Total))
	assert.True(t, decimal.RequireFromString("3.5").Equal(sum.AverageReceipt))
	require.Len(t, sum.Categories, 1)
	assert.Equal(t, domain.UncategorizedName, sum.Categories[0].Name)
	require.Len(t, sum.TopProducts, 2)
	assert.Equal(t, "FREGONA", sum.TopProducts[0].Description)
	assert.Equal(t, int64(2), sum.TopProducts[0].Purchases)
	assert.Equal(t, int64(2), sum.TopProducts[0].Quantity)
	assert.True(t, decimal.RequireFromString("5.5").Equal(sum.TopProducts[0].Amount))

	_, err = f.service.PeriodSummary(context.Background(), from, from)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestReceiptService_GetReceiptNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.GetReceipt(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrReceiptNotFound)
}
