package report

import (
	"context"
	"fmt"
	"time"

	"mercagasto/domain"
	"mercagasto/internal/utils"
	"mercagasto/pkg/receipt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
)

type (
	// Mailer is the delivery sink for rendered reports.
	Mailer interface {
		Send(to, subject, html string) error
	}

	ReportService interface {
		Build(ctx context.Context, period domain.ReportPeriod) (domain.PeriodReport, error)
		Send(ctx context.Context, req domain.SendReportRequest) (domain.PeriodReport, error)
	}

	reportService struct {
		receipts  receipt.ReceiptService
		mailer    Mailer
		recipient string
		now       func() time.Time
	}
)

func NewReportService(receipts receipt.ReceiptService, mailer Mailer, recipient string) ReportService {
	utils.InitValidator()
	return &reportService{
		receipts:  receipts,
		mailer:    mailer,
		recipient: recipient,
		now:       time.Now,
	}
}

func (s *reportService) Build(ctx context.Context, period domain.ReportPeriod) (domain.PeriodReport, error) {
	current, previous, err := Windows(period, s.now())
	if err != nil {
		return domain.PeriodReport{}, err
	}

	cur, err := s.receipts.PeriodSummary(ctx, current.From, current.To)
	if err != nil {
		return domain.PeriodReport{}, fmt.Errorf("current period: %w", err)
	}
	prev, err := s.receipts.PeriodSummary(ctx, previous.From, previous.To)
	if err != nil {
		return domain.PeriodReport{}, fmt.Errorf("previous period: %w", err)
	}

	report := domain.PeriodReport{
		Period:   period,
		Current:  cur,
		Previous: prev,
		Change:   cur.Total.Sub(prev.Total),
	}
	if prev.Total.IsPositive() {
		pct := report.Change.Div(prev.Total).Mul(decimal.NewFromInt(100)).Round(1)
		report.ChangePercent = &pct
	}
	return report, nil
}

func (s *reportService) Send(ctx context.Context, req domain.SendReportRequest) (domain.PeriodReport, error) {
	if err := utils.Validate.Struct(req); err != nil {
		return domain.PeriodReport{}, domain.ErrInvalidPeriod
	}
	to := req.To
	if to == "" {
		to = s.recipient
	}
	if to == "" {
		return domain.PeriodReport{}, domain.ErrNoRecipient
	}

	report, err := s.Build(ctx, domain.ReportPeriod(req.Period))
	if err != nil {
		return domain.PeriodReport{}, err
	}

	html, err := RenderHTML(RenderMarkdown(report))
	if err != nil {
		return domain.PeriodReport{}, err
	}
	if err := s.mailer.Send(to, Subject(report), html); err != nil {
		log.Errorw("failed to send report", "period", report.Period, "to", to, "error", err)
		return domain.PeriodReport{}, fmt.Errorf("send report: %w", err)
	}

	log.Infow("report sent", "period", report.Period, "to", to, "total", report.Current.Total.StringFixed(2))
	return report, nil
}

type Window struct {
	From time.Time
	To   time.Time
}

// Windows returns the half-open current and previous windows for a period.
// Weekly covers the last seven days including today. Monthly covers the
// calendar month of now.
func Windows(period domain.ReportPeriod, now time.Time) (Window, Window, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case domain.PeriodWeekly:
		end := today.AddDate(0, 0, 1)
		start := end.AddDate(0, 0, -7)
		return Window{From: start, To: end}, Window{From: start.AddDate(0, 0, -7), To: start}, nil
	case domain.PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Window{From: start, To: start.AddDate(0, 1, 0)}, Window{From: start.AddDate(0, -1, 0), To: start}, nil
	default:
		return Window{}, Window{}, domain.ErrInvalidPeriod
	}
}
