package receipt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/internal/utils"
	"mercagasto/pkg/matching"
	"mercagasto/pkg/parser"
	"mercagasto/pkg/processing"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	dateLayout       = "2006-01-02"
	topProductsLimit = 10
)

type (
	ReceiptService interface {
		GetReceipt(ctx context.Context, id uuid.UUID) (*entities.Receipt, error)
		GetMatchingStats(ctx context.Context) (domain.MatchingStats, error)
		Rematch(ctx context.Context) (domain.RematchSummary, error)
		CategoryTotals(ctx context.Context, req domain.CategoryTotalsRequest) ([]domain.CategoryTotal, error)
		PeriodSummary(ctx context.Context, from, to time.Time) (domain.PeriodSummary, error)
	}

	receiptService struct {
		repo    ReceiptRepository
		engine  *matching.Engine
		catalog processing.CatalogProvider
		loc     *time.Location
	}
)

func NewReceiptService(repo ReceiptRepository, engine *matching.Engine, catalog processing.CatalogProvider) ReceiptService {
	utils.InitValidator()
	return &receiptService{repo: repo, engine: engine, catalog: catalog, loc: parser.StoreLocation()}
}

func (s *receiptService) GetReceipt(ctx context.Context, id uuid.UUID) (*entities.Receipt, error) {
	return s.repo.GetReceiptByID(ctx, id)
}

func (s *receiptService) GetMatchingStats(ctx context.Context) (domain.MatchingStats, error) {
	cfg := s.engine.Config()
	return s.repo.MatchingStats(ctx, cfg.AutoAcceptConfidence, cfg.ReviewConfidence)
}

// Rematch runs the engine again over unmatched and weak items against the
// current catalog. Rows are only rewritten when the new match is better.
func (s *receiptService) Rematch(ctx context.Context) (domain.RematchSummary, error) {
	var summary domain.RematchSummary

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return summary, fmt.Errorf("load catalog: %w", err)
	}
	if snapshot.Len() == 0 {
		return summary, domain.ErrEmptyCatalog
	}

	items, err := s.repo.RematchCandidates(ctx, s.engine.Config().ReviewConfidence)
	if err != nil {
		return summary, err
	}

	stats := matching.NewStats(s.engine)
	var improved []*entities.LineItem
	for _, it := range items {
		summary.Examined++
		m := s.engine.Match(matching.Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}, snapshot)
		stats.Add(m)
		if !isImprovement(it, m) {
			summary.Unchanged++
			continue
		}
		processing.ApplyMatch(it, m)
		improved = append(improved, it)
	}

	if len(improved) > 0 {
		if err := s.repo.UpdateItemMatches(ctx, improved); err != nil {
			return domain.RematchSummary{}, err
		}
	}
	summary.Improved = len(improved)
	summary.Matches = stats.Summary()

	log.Infow("rematch finished", "examined", summary.Examined, "improved", summary.Improved, "coverage", summary.Matches.CoverageRate)
	return summary, nil
}

func isImprovement(current *entities.LineItem, m matching.Match) bool {
	if !m.Matched() {
		return false
	}
	if current.CatalogProductID == nil || current.Confidence == nil {
		return true
	}
	return *m.Confidence > *current.Confidence
}

func (s *receiptService) CategoryTotals(ctx context.Context, req domain.CategoryTotalsRequest) ([]domain.CategoryTotal, error) {
	from, to, err := parseRange(req.From, req.To, s.loc)
	if err != nil {
		return nil, err
	}
	return s.categoryTotals(ctx, from, to)
}

func (s *receiptService) categoryTotals(ctx context.Context, from, to time.Time) ([]domain.CategoryTotal, error) {
	totals, err := s.repo.CategoryTotals(ctx, from, to, s.engine.Config().ReviewConfidence)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if !totals[i].Amount.Equal(totals[j].Amount) {
			return totals[i].Amount.GreaterThan(totals[j].Amount)
		}
		return totals[i].Name < totals[j].Name
	})
	return totals, nil
}

// PeriodSummary aggregates receipts purchased in [from, to).
func (s *receiptService) PeriodSummary(ctx context.Context, from, to time.Time) (domain.PeriodSummary, error) {
	out := domain.PeriodSummary{From: from, To: to}
	if !to.After(from) {
		return out, domain.ErrInvalidPeriod
	}

	count, total, err := s.repo.PeriodTotals(ctx, from, to)
	if err != nil {
		return out, err
	}
	categories, err := s.categoryTotals(ctx, from, to)
	if err != nil {
		return out, err
	}
	top, err := s.repo.TopProducts(ctx, from, to, topProductsLimit)
	if err != nil {
		return out, err
	}

	out.Receipts = count
	out.Total = total
	out.AverageReceipt = decimal.Zero
	if count > 0 {
		out.AverageReceipt = total.Div(decimal.NewFromInt(count)).Round(2)
	}
	out.Categories = categories
	out.TopProducts = top
	return out, nil
}

// parseRange reads two calendar dates as local days in loc. The end date is
// inclusive. Bounds are returned in UTC.
func parseRange(fromStr, toStr string, loc *time.Location) (time.Time, time.Time, error) {
	if err := utils.Validate.Struct(domain.CategoryTotalsRequest{From: fromStr, To: toStr}); err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidDate
	}
	from, err := time.ParseInLocation(dateLayout, fromStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidDate
	}
	to, err := time.ParseInLocation(dateLayout, toStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, domain.ErrInvalidDate
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, domain.ErrInvalidPeriod
	}
	return from.UTC(), to.AddDate(0, 0, 1).UTC(), nil
}
