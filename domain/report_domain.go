package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type ReportPeriod string

const (
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"

	UncategorizedName = "Sin categoría"
)

var (
	MessageSuccessGetCategoryTotals = "category totals retrieved successfully"
	MessageSuccessSendReport        = "report sent successfully"
	MessageFailedGetCategoryTotals  = "failed to retrieve category totals"
	MessageFailedSendReport         = "failed to send report"

	ErrNoRecipient = errors.New("no report recipient configured")
)

type (
	CategoryTotal struct {
		CategoryID string          `json:"category_id,omitempty"`
		Name       string          `json:"name"`
		Items      int64           `json:"items"`
		Amount     decimal.Decimal `json:"amount"`
	}

	ProductTotal struct {
		Description string          `json:"description"`
		Quantity    int64           `json:"quantity"`
		Purchases   int64           `json:"purchases"`
		Amount      decimal.Decimal `json:"amount"`
	}

	PeriodSummary struct {
		From           time.Time       `json:"from"`
		To             time.Time       `json:"to"`
		Receipts       int64           `json:"receipts"`
		Total          decimal.Decimal `json:"total"`
		AverageReceipt decimal.Decimal `json:"average_receipt"`
		Categories     []CategoryTotal `json:"categories"`
		TopProducts    []ProductTotal  `json:"top_products"`
	}

	PeriodReport struct {
		Period   ReportPeriod    `json:"period"`
		Current  PeriodSummary   `json:"current"`
		Previous PeriodSummary   `json:"previous"`
		Change   decimal.Decimal `json:"change"`
		// ChangePercent is nil when the previous period had no spending.
		ChangePercent *decimal.Decimal `json:"change_percent,omitempty"`
	}

	CategoryTotalsRequest struct {
		From string `query:"from" validate:"required,datetime=2006-01-02"`
		To   string `query:"to" validate:"required,datetime=2006-01-02"`
	}

	SendReportRequest struct {
		Period string `json:"period" validate:"required,oneof=weekly monthly"`
		To     string `json:"to" validate:"omitempty,email"`
	}
)
