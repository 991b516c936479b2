package migration

import (
	"fmt"
	"log"

	"mercagasto/entities"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")
	}

	models := []struct {
		name  string
		model any
	}{
		{"category", &entities.Category{}},
		{"subcategory", &entities.Subcategory{}},
		{"catalog product", &entities.CatalogProduct{}},
		{"store", &entities.Store{}},
		{"receipt", &entities.Receipt{}},
		{"tax line", &entities.TaxLine{}},
		{"line item", &entities.LineItem{}},
		{"processing log", &entities.ProcessingLog{}},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("migrating %s table: %w", m.name, err)
		}
	}

	log.Println("Database migration complete")
	return nil
}
