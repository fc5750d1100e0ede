package repository

import (
	"context"

	"pos-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementRepository is append-only by design: movements are never updated or
// deleted once written.
type MovementRepository interface {
	Create(ctx context.Context, movement *model.InventoryMovement) error
	List(ctx context.Context, page, limit int, productID *uuid.UUID, movementType string) ([]model.InventoryMovement, int64, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.InventoryMovement, error)
}

type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, movement *model.InventoryMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *movementRepository) List(ctx context.Context, page, limit int, productID *uuid.UUID, movementType string) ([]model.InventoryMovement, int64, error) {
	var movements []model.InventoryMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryMovement{})
	if productID != nil {
		db = db.Where("product_id = ?", *productID)
	}
	if movementType != "" {
		db = db.Where("type = ?", movementType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Product").Order("id desc").
		Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

// ListByProduct returns the full movement history of one product in creation
// order, the order in which the replay invariant is checked.
func (r *movementRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	if err := GetDB(ctx, r.db).Where("product_id = ?", productID).
		Order("id asc").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
