package handlers

import (
	"errors"

	"mercagasto/domain"
	"mercagasto/internal/api/presenters"
	"mercagasto/pkg/receipt"
	"mercagasto/pkg/report"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ReportHandler interface {
		GetCategoryTotals(c *fiber.Ctx) error
		SendReport(c *fiber.Ctx) error
	}

	reportHandler struct {
		receiptService receipt.ReceiptService
		reportService  report.ReportService
		validator      *validator.Validate
	}
)

func NewReportHandler(receiptService receipt.ReceiptService, reportService report.ReportService, validator *validator.Validate) ReportHandler {
	return &reportHandler{
		receiptService: receiptService,
		reportService:  reportService,
		validator:      validator,
	}
}

func (h *reportHandler) GetCategoryTotals(c *fiber.Ctx) error {
	req := new(domain.CategoryTotalsRequest)
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetCategoryTotals, err)
	}

	res, err := h.receiptService.CategoryTotals(c.Context(), *req)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidPeriod) || errors.Is(err, domain.ErrInvalidDate) {
			status = fiber.StatusBadRequest
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedGetCategoryTotals, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetCategoryTotals)
}

func (h *reportHandler) SendReport(c *fiber.Ctx) error {
	req := new(domain.SendReportRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSendReport, err)
	}

	res, err := h.reportService.Send(c.UserContext(), *req)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrNoRecipient) {
			status = fiber.StatusBadRequest
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedSendReport, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessSendReport)
}
