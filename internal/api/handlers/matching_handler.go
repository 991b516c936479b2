package handlers

import (
	"errors"

	"mercagasto/domain"
	"mercagasto/internal/api/presenters"
	"mercagasto/pkg/receipt"

	"github.com/gofiber/fiber/v2"
)

type (
	MatchingHandler interface {
		GetStats(c *fiber.Ctx) error
		Rematch(c *fiber.Ctx) error
	}

	matchingHandler struct {
		receiptService receipt.ReceiptService
	}
)

func NewMatchingHandler(receiptService receipt.ReceiptService) MatchingHandler {
	return &matchingHandler{receiptService: receiptService}
}

func (h *matchingHandler) GetStats(c *fiber.Ctx) error {
	res, err := h.receiptService.GetMatchingStats(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedGetMatchingStats, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetMatchingStats)
}

func (h *matchingHandler) Rematch(c *fiber.Ctx) error {
	res, err := h.receiptService.Rematch(c.UserContext())
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, domain.ErrEmptyCatalog) {
			status = fiber.StatusConflict
		}
		return presenters.ErrorResponse(c, status, domain.MessageFailedRematch, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessRematch)
}
