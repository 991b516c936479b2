package catalog

import (
	"context"
	"errors"

	"mercagasto/domain"
	"mercagasto/entities"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type (
	CatalogRepository interface {
		Import(ctx context.Context, categories []CategoryImport) (domain.LoadCatalogSummary, error)
		ListPublishedProducts(ctx context.Context) ([]*entities.CatalogProduct, error)
		GetProductByExternalID(ctx context.Context, externalID string) (*entities.CatalogProduct, error)
		FindProductsByNormalizedName(ctx context.Context, normalized string) ([]*entities.CatalogProduct, error)
		GetCategoryByID(ctx context.Context, id uuid.UUID) (*entities.Category, error)
		ListCategories(ctx context.Context) ([]*entities.Category, error)
	}

	CategoryImport struct {
		Category      *entities.Category
		Subcategories []SubcategoryImport
	}

	SubcategoryImport struct {
		Subcategory *entities.Subcategory
		Products    []*entities.CatalogProduct
	}

	catalogRepository struct {
		db *gorm.DB
	}
)

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// Import upserts the whole taxonomy by external id in one transaction.
func (r *catalogRepository) Import(ctx context.Context, categories []CategoryImport) (domain.LoadCatalogSummary, error) {
	var summary domain.LoadCatalogSummary
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ci := range categories {
			catID, err := upsertByExternalID(tx, ci.Category, ci.Category.ExternalID, []string{"name", "position", "updated_at"})
			if err != nil {
				return err
			}
			summary.Categories++

			for _, si := range ci.Subcategories {
				si.Subcategory.CategoryID = catID
				subID, err := upsertByExternalID(tx, si.Subcategory, si.Subcategory.ExternalID, []string{"name", "category_id", "updated_at"})
				if err != nil {
					return err
				}
				summary.Subcategories++

				for _, p := range si.Products {
					p.CategoryID = &catID
					p.SubcategoryID = &subID
					if _, err := upsertByExternalID(tx, p, p.ExternalID, []string{
						"display_name", "normalized_name", "packaging", "unit_price", "bulk_price",
						"reference_price", "reference_format", "category_id", "subcategory_id", "published", "updated_at",
					}); err != nil {
						return err
					}
					summary.Products++
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.LoadCatalogSummary{}, err
	}
	return summary, nil
}

func upsertByExternalID(tx *gorm.DB, model any, externalID string, columns []string) (uuid.UUID, error) {
	err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(model).Error
	if err != nil {
		return uuid.Nil, err
	}
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(model); err != nil {
		return uuid.Nil, err
	}
	var row struct{ ID uuid.UUID }
	if err := tx.Table(stmt.Schema.Table).Select("id").Where("external_id = ?", externalID).Take(&row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (r *catalogRepository) ListPublishedProducts(ctx context.Context) ([]*entities.CatalogProduct, error) {
	var products []*entities.CatalogProduct
	err := r.db.WithContext(ctx).
		Where("published = ?", true).
		Order("external_id asc").
		Find(&products).Error
	return products, err
}

func (r *catalogRepository) GetProductByExternalID(ctx context.Context, externalID string) (*entities.CatalogProduct, error) {
	var product entities.CatalogProduct
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *catalogRepository) FindProductsByNormalizedName(ctx context.Context, normalized string) ([]*entities.CatalogProduct, error) {
	var products []*entities.CatalogProduct
	err := r.db.WithContext(ctx).
		Where("normalized_name = ? AND published = ?", normalized, true).
		Find(&products).Error
	return products, err
}

func (r *catalogRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*entities.Category, error) {
	var category entities.Category
	if err := r.db.WithContext(ctx).Preload("Subcategories").Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	var categories []*entities.Category
	err := r.db.WithContext(ctx).
		Preload("Subcategories", func(db *gorm.DB) *gorm.DB { return db.Order("name asc") }).
		Order("position asc, name asc").
		Find(&categories).Error
	return categories, err
}
