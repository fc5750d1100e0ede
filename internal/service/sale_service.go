package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"
	ws "pos-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type SaleItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
	Discount  float64 `json:"discount" binding:"gte=0"`
}

type CreateSaleRequest struct {
	ClientID      string            `json:"client_id" binding:"required"`
	Subtotal      string            `json:"subtotal" binding:"required"`
	Discount      string            `json:"discount"`
	Tax           string            `json:"tax"`
	Total         string            `json:"total" binding:"required"`
	PaymentMethod string            `json:"payment_method" binding:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA"`
	Notes         string            `json:"notes"`
	Items         []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type SaleItemResponse struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Subtotal    float64 `json:"subtotal"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	SaleNumber    string             `json:"sale_number"`
	ClientID      *string            `json:"client_id"`
	ClientName    string             `json:"client_name,omitempty"`
	UserID        string             `json:"user_id"`
	Subtotal      string             `json:"subtotal"`
	Discount      string             `json:"discount"`
	Tax           string             `json:"tax"`
	Total         string             `json:"total"`
	PaymentMethod string             `json:"payment_method"`
	Status        string             `json:"status"`
	Notes         string             `json:"notes"`
	Items         []SaleItemResponse `json:"items"`
	CreatedAt     string             `json:"created_at"`
}

// --- Interface ---

type SaleService interface {
	CreateSale(ctx context.Context, userID string, req CreateSaleRequest) (SaleResponse, error)
	GetSale(ctx context.Context, id string) (SaleResponse, error)
	ListSales(ctx context.Context, page, limit int, status string) ([]SaleResponse, int64, error)
}

type saleService struct {
	saleRepo    repository.SaleRepository
	productRepo repository.ProductRepository
	clientRepo  repository.ClientRepository
	ledger      *StockLedger
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	clientRepo repository.ClientRepository,
	ledger *StockLedger,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) SaleService {
	return &saleService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
		ledger:      ledger,
		txManager:   txManager,
		hub:         hub,
	}
}

// The max-suffix read and the insert race under concurrent sales; the unique
// index on sale_number turns the race into a duplicate-key error and the
// whole transaction is retried with a fresh number.
const maxSaleNumberAttempts = 3

// --- Implementation ---

func (s *saleService) CreateSale(ctx context.Context, userID string, req CreateSaleRequest) (SaleResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return SaleResponse{}, &ValidationError{Msg: "invalid user id"}
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return SaleResponse{}, &ValidationError{Msg: "invalid client_id"}
	}

	subtotal, err := decimal.NewFromString(req.Subtotal)
	if err != nil {
		return SaleResponse{}, &ValidationError{Msg: "invalid subtotal: " + req.Subtotal}
	}
	discount, err := parseOptionalDecimal(req.Discount)
	if err != nil {
		return SaleResponse{}, &ValidationError{Msg: "invalid discount: " + req.Discount}
	}
	tax, err := parseOptionalDecimal(req.Tax)
	if err != nil {
		return SaleResponse{}, &ValidationError{Msg: "invalid tax: " + req.Tax}
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		return SaleResponse{}, &ValidationError{Msg: "invalid total: " + req.Total}
	}

	// Binding already rejects qty <= 0; re-checked here because the stock
	// invariant must not depend on the transport layer.
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return SaleResponse{}, &ValidationError{Msg: fmt.Sprintf("quantity must be positive for product %s", line.ProductID)}
		}
	}

	if _, err := s.clientRepo.FindByID(ctx, clientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SaleResponse{}, &NotFoundError{Entity: "client", Ref: req.ClientID}
		}
		return SaleResponse{}, fmt.Errorf("failed to load client: %w", err)
	}

	var sale *model.Sale
	var lowStock []model.Product

	for attempt := 1; ; attempt++ {
		sale = nil
		lowStock = lowStock[:0]

		txErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			seq, err := s.saleRepo.MaxSaleSequence(txCtx)
			if err != nil {
				return fmt.Errorf("failed to allocate sale number: %w", err)
			}
			saleNumber := fmt.Sprintf("%s%06d", model.SaleNumberPrefix, seq+1)

			items := make([]model.SaleItem, 0, len(req.Items))
			for _, line := range req.Items {
				pid, parseErr := uuid.Parse(line.ProductID)
				if parseErr != nil {
					return &ValidationError{Msg: "invalid product_id: " + line.ProductID}
				}

				product, findErr := s.productRepo.FindByIDForUpdate(txCtx, pid)
				if findErr != nil {
					if errors.Is(findErr, gorm.ErrRecordNotFound) {
						return &NotFoundError{Entity: "product", Ref: line.ProductID}
					}
					return fmt.Errorf("failed to load product %s: %w", line.ProductID, findErr)
				}

				if product.CurrentStock < line.Quantity {
					return &InsufficientStockError{
						ProductID:   product.ID,
						ProductName: product.Name,
						Requested:   line.Quantity,
						Available:   product.CurrentStock,
					}
				}

				if _, err := s.ledger.ApplyStockChange(txCtx, product, -line.Quantity, model.MovementOut,
					"Sale "+saleNumber, saleNumber, uid); err != nil {
					return err
				}

				items = append(items, model.SaleItem{
					ProductID: pid,
					Quantity:  line.Quantity,
					UnitPrice: line.UnitPrice,
					Discount:  line.Discount,
					Subtotal:  float64(line.Quantity)*line.UnitPrice - line.Discount,
				})

				if product.CurrentStock <= product.MinStock {
					lowStock = append(lowStock, *product)
				}
			}

			sale = &model.Sale{
				SaleNumber:    saleNumber,
				ClientID:      &clientID,
				UserID:        uid,
				Subtotal:      subtotal,
				Discount:      discount,
				Tax:           tax,
				Total:         total,
				PaymentMethod: req.PaymentMethod,
				Status:        model.SaleStatusCompleted,
				Notes:         req.Notes,
				Items:         items,
			}
			if err := s.saleRepo.Create(txCtx, sale); err != nil {
				return fmt.Errorf("failed to create sale: %w", err)
			}
			return nil
		})

		if txErr == nil {
			break
		}
		if errors.Is(txErr, gorm.ErrDuplicatedKey) && attempt < maxSaleNumberAttempts {
			continue
		}
		return SaleResponse{}, txErr
	}

	reloaded, err := s.saleRepo.FindByIDWithItems(ctx, sale.ID)
	if err != nil {
		return SaleResponse{}, fmt.Errorf("failed to reload sale: %w", err)
	}

	s.notifyLowStock(lowStock, sale.SaleNumber)

	return toSaleResponse(*reloaded), nil
}

func (s *saleService) GetSale(ctx context.Context, id string) (SaleResponse, error) {
	saleID, err := uuid.Parse(id)
	if err != nil {
		return SaleResponse{}, &ValidationError{Msg: "invalid sale id"}
	}

	sale, err := s.saleRepo.FindByIDWithItems(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SaleResponse{}, &NotFoundError{Entity: "sale", Ref: id}
		}
		return SaleResponse{}, fmt.Errorf("failed to load sale: %w", err)
	}

	return toSaleResponse(*sale), nil
}

func (s *saleService) ListSales(ctx context.Context, page, limit int, status string) ([]SaleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	sales, total, err := s.saleRepo.List(ctx, page, limit, status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch sales: %w", err)
	}

	result := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		result = append(result, toSaleResponse(sale))
	}
	return result, total, nil
}

// --- Helpers ---

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func (s *saleService) notifyLowStock(products []model.Product, reference string) {
	if s.hub == nil {
		return
	}
	for _, p := range products {
		payload, err := json.Marshal(ws.Event{
			Event: ws.EventLowStock,
			Data: map[string]interface{}{
				"product_id":    p.ID.String(),
				"code":          p.Code,
				"name":          p.Name,
				"current_stock": p.CurrentStock,
				"min_stock":     p.MinStock,
				"reference":     reference,
			},
		})
		if err != nil {
			continue
		}
		s.hub.Broadcast <- payload
	}
}

func toSaleResponse(sale model.Sale) SaleResponse {
	resp := SaleResponse{
		ID:            sale.ID.String(),
		SaleNumber:    sale.SaleNumber,
		UserID:        sale.UserID.String(),
		Subtotal:      sale.Subtotal.StringFixed(2),
		Discount:      sale.Discount.StringFixed(2),
		Tax:           sale.Tax.StringFixed(2),
		Total:         sale.Total.StringFixed(2),
		PaymentMethod: sale.PaymentMethod,
		Status:        sale.Status,
		Notes:         sale.Notes,
		CreatedAt:     sale.CreatedAt.Format(time.RFC3339),
	}

	if sale.ClientID != nil {
		id := sale.ClientID.String()
		resp.ClientID = &id
	}
	if sale.Client != nil {
		resp.ClientName = sale.Client.FullName
	}

	resp.Items = make([]SaleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		ir := SaleItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			Subtotal:  item.Subtotal,
		}
		if item.Product != nil {
			ir.ProductName = item.Product.Name
		}
		resp.Items = append(resp.Items, ir)
	}

	return resp
}
