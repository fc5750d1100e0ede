package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supplier represents a vendor, keyed by tax identifier (NIT). Suppliers are
// created or updated in place during purchase-invoice ingestion and
// reactivated if previously deactivated.
type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaxID     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"tax_id"`
	LegalName string    `gorm:"type:varchar(255);not null" json:"legal_name"`
	TradeName string    `gorm:"type:varchar(255)" json:"trade_name"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone"`
	Address   string    `gorm:"type:varchar(255)" json:"address"`
	City      string    `gorm:"type:varchar(100)" json:"city"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
