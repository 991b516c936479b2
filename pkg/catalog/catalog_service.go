package catalog

import (
	"context"
	"fmt"
	"os"

	"mercagasto/domain"
	"mercagasto/entities"
	"mercagasto/internal/utils"
	"mercagasto/pkg/matching"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type (
	CatalogService interface {
		LoadSeedFile(ctx context.Context, path string) (domain.LoadCatalogSummary, error)
		LoadSeed(ctx context.Context, seed domain.CatalogSeed) (domain.LoadCatalogSummary, error)
		Snapshot(ctx context.Context) (*matching.Catalog, error)
		LookupByName(ctx context.Context, name string) ([]*entities.CatalogProduct, error)
		ListCategories(ctx context.Context) ([]*entities.Category, error)
	}

	catalogService struct {
		repo CatalogRepository
	}
)

func NewCatalogService(repo CatalogRepository) CatalogService {
	utils.InitValidator()
	return &catalogService{repo: repo}
}

func (s *catalogService) LoadSeedFile(ctx context.Context, path string) (domain.LoadCatalogSummary, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return domain.LoadCatalogSummary{}, fmt.Errorf("read catalog file: %w", err)
	}
	var seed domain.CatalogSeed
	if err := yaml.Unmarshal(file, &seed); err != nil {
		return domain.LoadCatalogSummary{}, fmt.Errorf("%w: %v", domain.ErrInvalidSeed, err)
	}
	return s.LoadSeed(ctx, seed)
}

func (s *catalogService) LoadSeed(ctx context.Context, seed domain.CatalogSeed) (domain.LoadCatalogSummary, error) {
	if err := utils.Validate.Struct(seed); err != nil {
		return domain.LoadCatalogSummary{}, fmt.Errorf("%w: %v", domain.ErrInvalidSeed, utils.ValidationMessages(err))
	}

	imports := make([]CategoryImport, 0, len(seed.Categories))
	for pos, c := range seed.Categories {
		ci := CategoryImport{
			Category: &entities.Category{ExternalID: c.ID, Name: c.Name, Position: pos},
		}
		for _, sc := range c.Subcategories {
			si := SubcategoryImport{
				Subcategory: &entities.Subcategory{ExternalID: sc.ID, Name: sc.Name},
			}
			for _, p := range sc.Products {
				product, err := toProduct(p)
				if err != nil {
					return domain.LoadCatalogSummary{}, err
				}
				si.Products = append(si.Products, product)
			}
			ci.Subcategories = append(ci.Subcategories, si)
		}
		imports = append(imports, ci)
	}

	summary, err := s.repo.Import(ctx, imports)
	if err != nil {
		return domain.LoadCatalogSummary{}, err
	}
	log.Infow("catalog loaded", "categories", summary.Categories, "subcategories", summary.Subcategories, "products", summary.Products)
	return summary, nil
}

func toProduct(p domain.ProductSeed) (*entities.CatalogProduct, error) {
	unit, err := optionalPrice(p.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s unit price: %v", domain.ErrInvalidSeed, p.ID, err)
	}
	bulk, err := optionalPrice(p.BulkPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s bulk price: %v", domain.ErrInvalidSeed, p.ID, err)
	}
	ref, err := optionalPrice(p.ReferencePrice)
	if err != nil {
		return nil, fmt.Errorf("%w: product %s reference price: %v", domain.ErrInvalidSeed, p.ID, err)
	}
	return &entities.CatalogProduct{
		ExternalID:      p.ID,
		DisplayName:     p.DisplayName,
		NormalizedName:  matching.Normalize(p.DisplayName),
		Packaging:       p.Packaging,
		UnitPrice:       unit,
		BulkPrice:       bulk,
		ReferencePrice:  ref,
		ReferenceFormat: p.ReferenceFormat,
		Published:       !p.Unpublished,
	}, nil
}

func optionalPrice(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// Snapshot reads every published product into an immutable matching catalog.
func (s *catalogService) Snapshot(ctx context.Context) (*matching.Catalog, error) {
	rows, err := s.repo.ListPublishedProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	products := make([]matching.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, matching.Product{
			ID:            r.ID,
			ExternalID:    r.ExternalID,
			DisplayName:   r.DisplayName,
			UnitPrice:     r.UnitPrice,
			CategoryID:    r.CategoryID,
			SubcategoryID: r.SubcategoryID,
		})
	}
	return matching.NewCatalog(products), nil
}

func (s *catalogService) LookupByName(ctx context.Context, name string) ([]*entities.CatalogProduct, error) {
	return s.repo.FindProductsByNormalizedName(ctx, matching.Normalize(name))
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	return s.repo.ListCategories(ctx)
}
