package entities

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (s *Store) BeforeCreate(*gorm.DB) error          { ensureID(&s.ID); return nil }
func (r *Receipt) BeforeCreate(*gorm.DB) error        { ensureID(&r.ID); return nil }
func (t *TaxLine) BeforeCreate(*gorm.DB) error        { ensureID(&t.ID); return nil }
func (i *LineItem) BeforeCreate(*gorm.DB) error       { ensureID(&i.ID); return nil }
func (c *Category) BeforeCreate(*gorm.DB) error       { ensureID(&c.ID); return nil }
func (s *Subcategory) BeforeCreate(*gorm.DB) error    { ensureID(&s.ID); return nil }
func (p *CatalogProduct) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }
func (l *ProcessingLog) BeforeCreate(*gorm.DB) error  { ensureID(&l.ID); return nil }
