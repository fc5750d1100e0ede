package service

import (
	"context"
	"fmt"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"

	"github.com/google/uuid"
)

// StockLedger is the single path through which product stock is ever mutated.
// Every change records a before/after snapshot in an InventoryMovement so
// that replaying a product's movements from zero reproduces its live stock.
// The ledger never commits on its own: it writes through the repositories
// bound to the caller's transaction context, so the movement and the stock
// mutation live or die with the caller's other writes.
type StockLedger struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
}

func NewStockLedger(productRepo repository.ProductRepository, movementRepo repository.MovementRepository) *StockLedger {
	return &StockLedger{productRepo: productRepo, movementRepo: movementRepo}
}

// ApplyStockChange applies a signed stock delta to an already-loaded product
// and appends the matching movement. delta is negative for OUT movements and
// positive for IN; ADJUSTMENT may go either way. Stock sufficiency for sales
// is the caller's responsibility (checked earlier in the same transaction for
// correct error ordering); the ledger only refuses changes that would leave
// stock negative outright.
func (l *StockLedger) ApplyStockChange(ctx context.Context, product *model.Product, delta int, movementType, reason, reference string, userID uuid.UUID) (*model.InventoryMovement, error) {
	if delta == 0 {
		return nil, &ValidationError{Msg: "stock change must have a non-zero quantity"}
	}
	switch movementType {
	case model.MovementIn:
		if delta < 0 {
			return nil, &ValidationError{Msg: "IN movement requires a positive quantity"}
		}
	case model.MovementOut:
		if delta > 0 {
			return nil, &ValidationError{Msg: "OUT movement requires a negative quantity"}
		}
	case model.MovementAdjustment:
		// either direction
	default:
		return nil, &ValidationError{Msg: fmt.Sprintf("unknown movement type %q", movementType)}
	}

	stockBefore := product.CurrentStock
	stockAfter := stockBefore + delta
	if stockAfter < 0 {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -delta,
			Available:   stockBefore,
		}
	}

	product.CurrentStock = stockAfter
	if err := l.productRepo.UpdateStock(ctx, product.ID, stockAfter); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	quantity := delta
	if quantity < 0 {
		quantity = -quantity
	}
	movement := &model.InventoryMovement{
		ProductID:   product.ID,
		UserID:      userID,
		Type:        movementType,
		Quantity:    quantity,
		StockBefore: stockBefore,
		StockAfter:  stockAfter,
		Reason:      reason,
		Reference:   reference,
	}
	if err := l.movementRepo.Create(ctx, movement); err != nil {
		return nil, fmt.Errorf("failed to record inventory movement: %w", err)
	}

	return movement, nil
}
