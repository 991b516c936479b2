package handlers

import (
	"mercagasto/domain"
	"mercagasto/internal/api/presenters"
	"mercagasto/pkg/processing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ProcessingHandler interface {
		ListLogs(c *fiber.Ctx) error
		RetryBatch(c *fiber.Ctx) error
	}

	processingHandler struct {
		processingService processing.ProcessingService
		source            processing.MessageSource
		validator         *validator.Validate
	}
)

func NewProcessingHandler(processingService processing.ProcessingService, source processing.MessageSource, validator *validator.Validate) ProcessingHandler {
	return &processingHandler{
		processingService: processingService,
		source:            source,
		validator:         validator,
	}
}

func (h *processingHandler) ListLogs(c *fiber.Ctx) error {
	req := new(domain.ListProcessingLogsRequest)
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetProcessingLogs, err)
	}

	res, err := h.processingService.ListLogs(c.Context(), *req)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetProcessingLogs, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetProcessingLogs)
}

func (h *processingHandler) RetryBatch(c *fiber.Ctx) error {
	if h.source == nil {
		return presenters.ErrorResponse(c, fiber.StatusServiceUnavailable, domain.MessageFailedRetryBatch, domain.ErrNoSource)
	}
	res, err := h.processingService.RetryBatch(c.UserContext(), h.source)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedRetryBatch, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessRetryBatch)
}
