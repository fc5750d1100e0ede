package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UpdateSupplierRequest struct {
	LegalName *string `json:"legal_name"`
	TradeName *string `json:"trade_name"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	City      *string `json:"city"`
	IsActive  *bool   `json:"is_active"`
}

// SupplierService covers the read and maintenance side of suppliers.
// Creation happens implicitly through purchase-invoice ingestion.
type SupplierService interface {
	UpdateSupplier(ctx context.Context, id string, req UpdateSupplierRequest) (*model.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*model.Supplier, error)
	GetSupplierByTaxID(ctx context.Context, taxID string) (*model.Supplier, error)
	ListSuppliers(ctx context.Context, page, limit int, search string) ([]model.Supplier, int64, error)
}

type supplierService struct {
	repo repository.SupplierRepository
}

func NewSupplierService(repo repository.SupplierRepository) SupplierService {
	return &supplierService{repo: repo}
}

func (s *supplierService) UpdateSupplier(ctx context.Context, id string, req UpdateSupplierRequest) (*model.Supplier, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid supplier id"}
	}

	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "supplier", Ref: id}
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}

	if req.LegalName != nil {
		supplier.LegalName = strings.TrimSpace(*req.LegalName)
	}
	if req.TradeName != nil {
		supplier.TradeName = strings.TrimSpace(*req.TradeName)
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.City != nil {
		supplier.City = *req.City
	}
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) GetSupplier(ctx context.Context, id string) (*model.Supplier, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid supplier id"}
	}

	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "supplier", Ref: id}
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) GetSupplierByTaxID(ctx context.Context, taxID string) (*model.Supplier, error) {
	supplier, err := s.repo.FindByTaxID(ctx, strings.TrimSpace(taxID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "supplier", Ref: taxID}
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	return supplier, nil
}

func (s *supplierService) ListSuppliers(ctx context.Context, page, limit int, search string) ([]model.Supplier, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.List(ctx, page, limit, search)
}
