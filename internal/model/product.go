package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductCategory enum constants — closed retail set
const (
	CategoryMaquillaje  = "MAQUILLAJE"
	CategoryFragancias  = "FRAGANCIAS"
	CategoryCuidadoPiel = "CUIDADO_PIEL"
	CategoryAccesorios  = "ACCESORIOS"
	CategoryOtros       = "OTROS"
)

// DefaultCategory is assigned to products created automatically during
// purchase-invoice ingestion.
const DefaultCategory = CategoryAccesorios

// AutoCodePrefix marks product codes generated by invoice ingestion when the
// invoice line carried no reference. Such codes are replaced once a real
// reference shows up.
const AutoCodePrefix = "AUTO-"

// Product is a catalog entry. CurrentStock is mutated exclusively through the
// stock ledger; products referenced by sales or movements are only ever
// deactivated, never hard-deleted.
type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Category      string    `gorm:"type:varchar(50);not null;index" json:"category"`
	Brand         string    `gorm:"type:varchar(100)" json:"brand"`
	PurchasePrice float64   `gorm:"type:decimal(12,2);not null" json:"purchase_price"`
	SalePrice     float64   `gorm:"type:decimal(12,2);not null" json:"sale_price"`
	CurrentStock  int       `gorm:"type:int;default:0;not null;check:current_stock >= 0" json:"current_stock"`
	MinStock      int       `gorm:"type:int;default:5;not null" json:"min_stock"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ValidCategory reports whether c belongs to the closed category set.
func ValidCategory(c string) bool {
	switch c {
	case CategoryMaquillaje, CategoryFragancias, CategoryCuidadoPiel, CategoryAccesorios, CategoryOtros:
		return true
	}
	return false
}
