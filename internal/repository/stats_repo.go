package repository

import (
	"context"
	"time"

	"pos-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatsRepository backs the dashboard summary with aggregate queries.
type StatsRepository interface {
	SalesSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error)
	CountActiveProducts(ctx context.Context) (int64, error)
	CountBelowMinStock(ctx context.Context) (int64, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

// SalesSince returns the number and total value of COMPLETED sales created at
// or after the given instant.
func (r *statsRepository) SalesSince(ctx context.Context, since time.Time) (int64, decimal.Decimal, error) {
	var count int64
	db := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("status = ? AND created_at >= ?", model.SaleStatusCompleted, since)
	if err := db.Count(&count).Error; err != nil {
		return 0, decimal.Zero, err
	}

	var total decimal.NullDecimal
	if err := db.Select("SUM(total)").Scan(&total).Error; err != nil {
		return 0, decimal.Zero, err
	}
	if !total.Valid {
		return count, decimal.Zero, nil
	}
	return count, total.Decimal, nil
}

func (r *statsRepository) CountActiveProducts(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *statsRepository) CountBelowMinStock(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).
		Where("is_active = ? AND current_stock <= min_stock", true).Count(&count).Error
	return count, err
}
