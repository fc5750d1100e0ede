package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductRequest struct {
	Code          string  `json:"code" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	Category      string  `json:"category" binding:"required"`
	Brand         string  `json:"brand"`
	PurchasePrice float64 `json:"purchase_price" binding:"gte=0"`
	SalePrice     float64 `json:"sale_price" binding:"gte=0"`
	MinStock      *int    `json:"min_stock"`
	// InitialStock, when positive, is recorded as an ADJUSTMENT movement so
	// the ledger covers the product from its first unit.
	InitialStock int `json:"initial_stock" binding:"gte=0"`
}

type UpdateProductRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category"`
	Brand         *string  `json:"brand"`
	PurchasePrice *float64 `json:"purchase_price"`
	SalePrice     *float64 `json:"sale_price"`
	MinStock      *int     `json:"min_stock"`
}

type AdjustStockRequest struct {
	// Quantity is a signed delta applied to current stock.
	Quantity int    `json:"quantity" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

type MovementResponse struct {
	ID          int64  `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	StockBefore int    `json:"stock_before"`
	StockAfter  int    `json:"stock_after"`
	Reason      string `json:"reason"`
	Reference   string `json:"reference"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

type ProductService interface {
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*model.Product, error)
	DeactivateProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, page, limit int, search, category string) ([]model.Product, int64, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)

	AdjustStock(ctx context.Context, userID, productID string, req AdjustStockRequest) (*model.Product, error)
	ListMovements(ctx context.Context, page, limit int, productID, movementType string) ([]MovementResponse, int64, error)
	ListProductMovements(ctx context.Context, productID string) ([]MovementResponse, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	ledger       *StockLedger
	txManager    repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	ledger *StockLedger,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		ledger:       ledger,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *productService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (*model.Product, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid user id"}
	}

	if !model.ValidCategory(req.Category) {
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown category %q", req.Category)}
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, &ValidationError{Msg: "product code is required"}
	}

	minStock := 5
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return nil, &ValidationError{Msg: "min_stock cannot be negative"}
		}
		minStock = *req.MinStock
	}

	product := &model.Product{
		Code:          code,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Category:      req.Category,
		Brand:         req.Brand,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		CurrentStock:  0,
		MinStock:      minStock,
		IsActive:      true,
	}

	txErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, product); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &ValidationError{Msg: fmt.Sprintf("product code %q already exists", code)}
			}
			return fmt.Errorf("failed to create product: %w", err)
		}
		if req.InitialStock > 0 {
			if _, err := s.ledger.ApplyStockChange(txCtx, product, req.InitialStock,
				model.MovementAdjustment, "Initial stock", "", uid); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid product id"}
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "product", Ref: id}
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		if !model.ValidCategory(*req.Category) {
			return nil, &ValidationError{Msg: fmt.Sprintf("unknown category %q", *req.Category)}
		}
		product.Category = *req.Category
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	if req.PurchasePrice != nil {
		if *req.PurchasePrice < 0 {
			return nil, &ValidationError{Msg: "purchase_price cannot be negative"}
		}
		product.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		if *req.SalePrice < 0 {
			return nil, &ValidationError{Msg: "sale_price cannot be negative"}
		}
		product.SalePrice = *req.SalePrice
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return nil, &ValidationError{Msg: "min_stock cannot be negative"}
		}
		product.MinStock = *req.MinStock
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// DeactivateProduct hides the product from the catalog without breaking the
// sale lines and movements that reference it.
func (s *productService) DeactivateProduct(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return &ValidationError{Msg: "invalid product id"}
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "product", Ref: id}
		}
		return fmt.Errorf("failed to load product: %w", err)
	}

	return s.productRepo.Deactivate(ctx, productID)
}

func (s *productService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid product id"}
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "product", Ref: id}
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, search, category string) ([]model.Product, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if category != "" && !model.ValidCategory(category) {
		return nil, 0, &ValidationError{Msg: fmt.Sprintf("unknown category %q", category)}
	}
	return s.productRepo.List(ctx, page, limit, search, category)
}

func (s *productService) ListLowStock(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.ListBelowMinStock(ctx)
}

// AdjustStock applies a manual signed correction through the ledger so the
// movement history stays complete even for physical-count fixes.
func (s *productService) AdjustStock(ctx context.Context, userID, productID string, req AdjustStockRequest) (*model.Product, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid user id"}
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid product id"}
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, &ValidationError{Msg: "adjustment reason is required"}
	}

	var product *model.Product
	txErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.productRepo.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "product", Ref: productID}
			}
			return fmt.Errorf("failed to load product: %w", err)
		}
		if _, err := s.ledger.ApplyStockChange(txCtx, p, req.Quantity,
			model.MovementAdjustment, req.Reason, "", uid); err != nil {
			return err
		}
		product = p
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return product, nil
}

func (s *productService) ListMovements(ctx context.Context, page, limit int, productID, movementType string) ([]MovementResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var pid *uuid.UUID
	if productID != "" {
		parsed, err := uuid.Parse(productID)
		if err != nil {
			return nil, 0, &ValidationError{Msg: "invalid product_id filter"}
		}
		pid = &parsed
	}

	switch movementType {
	case "", model.MovementIn, model.MovementOut, model.MovementAdjustment:
	default:
		return nil, 0, &ValidationError{Msg: fmt.Sprintf("unknown movement type %q", movementType)}
	}

	movements, total, err := s.movementRepo.List(ctx, page, limit, pid, movementType)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch movements: %w", err)
	}

	result := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		result = append(result, toMovementResponse(m))
	}
	return result, total, nil
}

func (s *productService) ListProductMovements(ctx context.Context, productID string) ([]MovementResponse, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid product id"}
	}

	if _, err := s.productRepo.FindByID(ctx, pid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "product", Ref: productID}
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	movements, err := s.movementRepo.ListByProduct(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movements: %w", err)
	}

	result := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		result = append(result, toMovementResponse(m))
	}
	return result, nil
}

func toMovementResponse(m model.InventoryMovement) MovementResponse {
	resp := MovementResponse{
		ID:          m.ID,
		ProductID:   m.ProductID.String(),
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		Reference:   m.Reference,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.Product != nil {
		resp.ProductName = m.Product.Name
	}
	return resp
}
