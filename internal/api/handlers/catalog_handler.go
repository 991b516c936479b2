package handlers

import (
	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/internal/api/presenters"
	"mercagasto/pkg/catalog"

	"github.com/gofiber/fiber/v2"
)

type (
	CatalogHandler interface {
		ListCategories(c *fiber.Ctx) error
	}

	catalogHandler struct {
		catalogService catalog.CatalogService
	}
)

func NewCatalogHandler(catalogService catalog.CatalogService) CatalogHandler {
	return &catalogHandler{catalogService: catalogService}
}

// ListCategories returns the taxonomy with each category's subcategories.
func (h *catalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalogService.ListCategories(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusInternalServerError, domain.MessageFailedListCategories, err)
	}

	res := make([]domain.CategoryResponse, 0, len(categories))
	for _, cat := range categories {
		res = append(res, toCategoryResponse(cat))
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessListCategories)
}

func toCategoryResponse(cat *entities.Category) domain.CategoryResponse {
	out := domain.CategoryResponse{
		ID:            cat.ID.String(),
		ExternalID:    cat.ExternalID,
		Name:          cat.Name,
		Subcategories: make([]domain.SubcategoryResponse, 0, len(cat.Subcategories)),
	}
	for _, sub := range cat.Subcategories {
		out.Subcategories = append(out.Subcategories, domain.SubcategoryResponse{
			ID:         sub.ID.String(),
			ExternalID: sub.ExternalID,
			Name:       sub.Name,
		})
	}
	return out
}
