package repository

import (
	"context"

	"pos-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseInvoiceRepository interface {
	Create(ctx context.Context, invoice *model.PurchaseInvoice) error
	CreateItem(ctx context.Context, item *model.PurchaseInvoiceItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseInvoice, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseInvoice, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	List(ctx context.Context, page, limit int) ([]model.PurchaseInvoice, int64, error)
}

type purchaseInvoiceRepository struct {
	db *gorm.DB
}

func NewPurchaseInvoiceRepository(db *gorm.DB) PurchaseInvoiceRepository {
	return &purchaseInvoiceRepository{db: db}
}

func (r *purchaseInvoiceRepository) Create(ctx context.Context, invoice *model.PurchaseInvoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *purchaseInvoiceRepository) CreateItem(ctx context.Context, item *model.PurchaseInvoiceItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *purchaseInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseInvoice, error) {
	var invoice model.PurchaseInvoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *purchaseInvoiceRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseInvoice, error) {
	var invoice model.PurchaseInvoice
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		Preload("Supplier").
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ExistsByNumber is the fast, friendly duplicate pre-check; the unique index
// on invoice_number remains the source of truth under concurrency.
func (r *purchaseInvoiceRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.PurchaseInvoice{}).
		Where("invoice_number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *purchaseInvoiceRepository) List(ctx context.Context, page, limit int) ([]model.PurchaseInvoice, int64, error) {
	var invoices []model.PurchaseInvoice
	var total int64

	if err := GetDB(ctx, r.db).Model(&model.PurchaseInvoice{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Preload("Supplier").Preload("Items").
		Order("created_at desc").Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}
