package database

import (
	"log"

	"pos-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM.
// TranslateError maps driver-specific unique violations to
// gorm.ErrDuplicatedKey, which the sale-number retry depends on.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Product{},
		&model.Client{},
		&model.Supplier{},
		&model.Sale{},
		&model.SaleItem{},
		&model.PurchaseInvoice{},
		&model.PurchaseInvoiceItem{},
		&model.InventoryMovement{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
