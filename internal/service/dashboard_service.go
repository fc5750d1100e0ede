package service

import (
	"context"
	"fmt"
	"time"

	"pos-backend/internal/repository"
)

type DashboardSummary struct {
	SalesToday      int64  `json:"sales_today"`
	SalesTodayTotal string `json:"sales_today_total"`
	SalesMonth      int64  `json:"sales_month"`
	SalesMonthTotal string `json:"sales_month_total"`
	ActiveProducts  int64  `json:"active_products"`
	LowStockCount   int64  `json:"low_stock_count"`
}

type DashboardService interface {
	GetSummary(ctx context.Context) (DashboardSummary, error)
}

type dashboardService struct {
	statsRepo repository.StatsRepository
}

func NewDashboardService(statsRepo repository.StatsRepository) DashboardService {
	return &dashboardService{statsRepo: statsRepo}
}

func (s *dashboardService) GetSummary(ctx context.Context) (DashboardSummary, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	todayCount, todayTotal, err := s.statsRepo.SalesSince(ctx, startOfDay)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("failed to compute daily sales: %w", err)
	}
	monthCount, monthTotal, err := s.statsRepo.SalesSince(ctx, startOfMonth)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("failed to compute monthly sales: %w", err)
	}

	activeProducts, err := s.statsRepo.CountActiveProducts(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("failed to count products: %w", err)
	}
	lowStock, err := s.statsRepo.CountBelowMinStock(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("failed to count low-stock products: %w", err)
	}

	return DashboardSummary{
		SalesToday:      todayCount,
		SalesTodayTotal: todayTotal.StringFixed(2),
		SalesMonth:      monthCount,
		SalesMonthTotal: monthTotal.StringFixed(2),
		ActiveProducts:  activeProducts,
		LowStockCount:   lowStock,
	}, nil
}
