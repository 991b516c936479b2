package domain

import (
	"errors"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("catalog product not found")
	ErrInvalidSeed      = errors.New("invalid catalog seed")

	MessageSuccessListCategories = "categories retrieved successfully"
	MessageFailedListCategories  = "failed to retrieve categories"
)

// CatalogSeed is the YAML layout of a catalog file: categories holding
// subcategories holding products.
type (
	CatalogSeed struct {
		Categories []CategorySeed `yaml:"categories" validate:"required,min=1,dive"`
	}

	CategorySeed struct {
		ID            string            `yaml:"id" validate:"required"`
		Name          string            `yaml:"name" validate:"required"`
		Subcategories []SubcategorySeed `yaml:"subcategories" validate:"dive"`
	}

	SubcategorySeed struct {
		ID       string        `yaml:"id" validate:"required"`
		Name     string        `yaml:"name" validate:"required"`
		Products []ProductSeed `yaml:"products" validate:"dive"`
	}

	ProductSeed struct {
		ID              string `yaml:"id" validate:"required"`
		DisplayName     string `yaml:"display_name" validate:"required"`
		Packaging       string `yaml:"packaging"`
		UnitPrice       string `yaml:"unit_price" validate:"omitempty,numeric"`
		BulkPrice       string `yaml:"bulk_price" validate:"omitempty,numeric"`
		ReferencePrice  string `yaml:"reference_price" validate:"omitempty,numeric"`
		ReferenceFormat string `yaml:"reference_format"`
		Unpublished     bool   `yaml:"unpublished"`
	}

	LoadCatalogSummary struct {
		Categories    int `json:"categories"`
		Subcategories int `json:"subcategories"`
		Products      int `json:"products"`
	}

	SubcategoryResponse struct {
		ID         string `json:"id"`
		ExternalID string `json:"external_id"`
		Name       string `json:"name"`
	}

	CategoryResponse struct {
		ID            string                `json:"id"`
		ExternalID    string                `json:"external_id"`
		Name          string                `json:"name"`
		Subcategories []SubcategoryResponse `json:"subcategories"`
	}
)
