package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"
	"pos-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// defaultMarkup derives a sale price from a purchase price for products
	// the system has no pricing information for.
	defaultMarkup = 1.5

	// priceEpsilon filters float noise when deciding whether a purchase
	// price actually changed.
	priceEpsilon = 0.01

	// nameFragmentLen caps the substring used for the last-resort name match.
	nameFragmentLen = 30

	// nameFragmentMinLen is the minimum name length before fragment matching
	// is attempted; short names produce too many false positives.
	nameFragmentMinLen = 10
)

// --- DTOs ---

type SupplierPayload struct {
	TaxID     string `json:"tax_id" binding:"required"`
	LegalName string `json:"legal_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
}

type InvoiceHeaderPayload struct {
	Number           string `json:"number" binding:"required"`
	IssueDate        string `json:"issue_date" binding:"required"`
	AcceptanceDate   string `json:"acceptance_date"`
	Cufe             string `json:"cufe"`
	DigitalSignature string `json:"digital_signature"`
}

type InvoiceItemPayload struct {
	Reference string  `json:"reference"`
	Name      string  `json:"name" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"`
	Total     float64 `json:"total" binding:"gte=0"`
}

type InvoiceTotalsPayload struct {
	Subtotal string `json:"subtotal" binding:"required"`
	Tax      string `json:"tax"`
	Total    string `json:"total" binding:"required"`
}

type ProcessInvoiceRequest struct {
	Supplier SupplierPayload      `json:"supplier" binding:"required"`
	Invoice  InvoiceHeaderPayload `json:"invoice" binding:"required"`
	Items    []InvoiceItemPayload `json:"items" binding:"required,min=1,dive"`
	Totals   InvoiceTotalsPayload `json:"totals" binding:"required"`
	// UpdatePrices defaults to true when absent.
	UpdatePrices *bool `json:"update_prices"`
}

type InvoiceItemResponse struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductCode string  `json:"product_code"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type PurchaseInvoiceResponse struct {
	ID              string                `json:"id"`
	InvoiceNumber   string                `json:"invoice_number"`
	SupplierID      string                `json:"supplier_id"`
	SupplierTaxID   string                `json:"supplier_tax_id,omitempty"`
	SupplierName    string                `json:"supplier_name,omitempty"`
	IssueDate       string                `json:"issue_date"`
	AcceptanceDate  *string               `json:"acceptance_date,omitempty"`
	Cufe            string                `json:"cufe,omitempty"`
	Subtotal        string                `json:"subtotal"`
	Tax             string                `json:"tax"`
	Total           string                `json:"total"`
	DocumentPath    string                `json:"document_path,omitempty"`
	Status          string                `json:"status"`
	Items           []InvoiceItemResponse `json:"items"`
	ProductsCreated int                   `json:"products_created"`
	ProductsMatched int                   `json:"products_matched"`
	SupplierCreated bool                  `json:"supplier_created"`
	CreatedAt       string                `json:"created_at"`
}

// --- Interface ---

type PurchaseService interface {
	ProcessInvoice(ctx context.Context, userID string, req ProcessInvoiceRequest, document io.Reader) (PurchaseInvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (PurchaseInvoiceResponse, error)
	ListInvoices(ctx context.Context, page, limit int) ([]PurchaseInvoiceResponse, int64, error)
}

type purchaseService struct {
	invoiceRepo  repository.PurchaseInvoiceRepository
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	ledger       *StockLedger
	txManager    repository.TransactionManager
	documents    storage.DocumentStore
}

func NewPurchaseService(
	invoiceRepo repository.PurchaseInvoiceRepository,
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	ledger *StockLedger,
	txManager repository.TransactionManager,
	documents storage.DocumentStore,
) PurchaseService {
	return &purchaseService{
		invoiceRepo:  invoiceRepo,
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		ledger:       ledger,
		txManager:    txManager,
		documents:    documents,
	}
}

// --- Implementation ---

// ProcessInvoice ingests one supplier invoice: upserts the supplier, resolves
// or creates every product line, increments stock through the ledger and
// records the invoice. All database writes happen in one transaction; the
// optional document is stored on disk before the transaction starts so a
// rollback never references a missing file path that was about to be written.
func (s *purchaseService) ProcessInvoice(ctx context.Context, userID string, req ProcessInvoiceRequest, document io.Reader) (PurchaseInvoiceResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "invalid user id"}
	}

	number := strings.TrimSpace(req.Invoice.Number)
	if number == "" {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "invoice number is required"}
	}

	taxID := strings.TrimSpace(req.Supplier.TaxID)
	if taxID == "" {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "supplier tax id is required"}
	}

	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return PurchaseInvoiceResponse{}, &ValidationError{Msg: fmt.Sprintf("quantity must be positive for item %q", line.Name)}
		}
		if strings.TrimSpace(line.Name) == "" {
			return PurchaseInvoiceResponse{}, &ValidationError{Msg: "item name is required"}
		}
	}

	exists, err := s.invoiceRepo.ExistsByNumber(ctx, number)
	if err != nil {
		return PurchaseInvoiceResponse{}, fmt.Errorf("failed to check invoice number: %w", err)
	}
	if exists {
		return PurchaseInvoiceResponse{}, &DuplicateInvoiceError{InvoiceNumber: number}
	}

	issueDate, err := time.Parse("2006-01-02", req.Invoice.IssueDate)
	if err != nil {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "invalid issue_date, expected YYYY-MM-DD"}
	}
	acceptanceDate := parseOptionalDate(req.Invoice.AcceptanceDate)

	subtotal, err := decimal.NewFromString(req.Totals.Subtotal)
	if err != nil {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "invalid subtotal: " + req.Totals.Subtotal}
	}
	tax, err := parseOptionalDecimal(req.Totals.Tax)
	if err != nil {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "invalid tax: " + req.Totals.Tax}
	}
	total, err := decimal.NewFromString(req.Totals.Total)
	if err != nil {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "invalid total: " + req.Totals.Total}
	}

	updatePrices := true
	if req.UpdatePrices != nil {
		updatePrices = *req.UpdatePrices
	}

	docPath := ""
	if document != nil {
		if s.documents == nil {
			return PurchaseInvoiceResponse{}, errors.New("document storage is not configured")
		}
		docPath, err = s.documents.Save(number, document)
		if err != nil {
			return PurchaseInvoiceResponse{}, fmt.Errorf("failed to store invoice document: %w", err)
		}
	}

	var (
		invoice         *model.PurchaseInvoice
		supplierCreated bool
		productsCreated int
	)

	txErr := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		supplier, created, err := s.upsertSupplier(txCtx, taxID, req.Supplier)
		if err != nil {
			return err
		}
		supplierCreated = created

		invoice = &model.PurchaseInvoice{
			InvoiceNumber:    number,
			SupplierID:       supplier.ID,
			UserID:           uid,
			IssueDate:        issueDate,
			AcceptanceDate:   acceptanceDate,
			Cufe:             req.Invoice.Cufe,
			DigitalSignature: req.Invoice.DigitalSignature,
			Subtotal:         subtotal,
			Tax:              tax,
			Total:            total,
			DocumentPath:     docPath,
			Status:           model.InvoiceStatusProcessed,
		}
		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			// Concurrent ingestion of the same number loses the insert race.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &DuplicateInvoiceError{InvoiceNumber: number}
			}
			return fmt.Errorf("failed to create purchase invoice: %w", err)
		}

		for _, line := range req.Items {
			product, created, err := s.resolveProduct(txCtx, line, updatePrices)
			if err != nil {
				return err
			}
			if created {
				productsCreated++
			}

			lineSubtotal := line.Total
			if lineSubtotal == 0 {
				lineSubtotal = float64(line.Quantity) * line.UnitPrice
			}
			item := &model.PurchaseInvoiceItem{
				PurchaseInvoiceID: invoice.ID,
				ProductID:         product.ID,
				Quantity:          line.Quantity,
				UnitPrice:         line.UnitPrice,
				Subtotal:          lineSubtotal,
			}
			if err := s.invoiceRepo.CreateItem(txCtx, item); err != nil {
				return fmt.Errorf("failed to create invoice item: %w", err)
			}

			// Re-read under a row lock: a concurrent sale may be decrementing
			// the same product, and the increment must build on its result.
			locked, err := s.productRepo.FindByIDForUpdate(txCtx, product.ID)
			if err != nil {
				return fmt.Errorf("failed to lock product %q: %w", product.Name, err)
			}
			if _, err := s.ledger.ApplyStockChange(txCtx, locked, line.Quantity, model.MovementIn,
				"Purchase - Invoice "+number, number, uid); err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		return PurchaseInvoiceResponse{}, txErr
	}

	reloaded, err := s.invoiceRepo.FindByIDWithItems(ctx, invoice.ID)
	if err != nil {
		return PurchaseInvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}

	resp := toInvoiceResponse(*reloaded)
	resp.SupplierCreated = supplierCreated
	resp.ProductsCreated = productsCreated
	resp.ProductsMatched = len(req.Items) - productsCreated
	return resp, nil
}

func (s *purchaseService) GetInvoice(ctx context.Context, id string) (PurchaseInvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseInvoiceResponse{}, &ValidationError{Msg: "invalid invoice id"}
	}

	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PurchaseInvoiceResponse{}, &NotFoundError{Entity: "purchase invoice", Ref: id}
		}
		return PurchaseInvoiceResponse{}, fmt.Errorf("failed to load invoice: %w", err)
	}

	return toInvoiceResponse(*invoice), nil
}

func (s *purchaseService) ListInvoices(ctx context.Context, page, limit int) ([]PurchaseInvoiceResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]PurchaseInvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

// --- internals ---

// upsertSupplier finds the supplier by tax id, updating provided fields and
// reactivating it if it was deactivated, or creates a new one. Returns whether
// a new supplier was created.
func (s *purchaseService) upsertSupplier(ctx context.Context, taxID string, payload SupplierPayload) (*model.Supplier, bool, error) {
	supplier, err := s.supplierRepo.FindByTaxID(ctx, taxID)
	if err == nil {
		changed := false
		if v := strings.TrimSpace(payload.LegalName); v != "" && v != supplier.LegalName {
			supplier.LegalName = v
			changed = true
		}
		if v := strings.TrimSpace(payload.Email); v != "" && v != supplier.Email {
			supplier.Email = v
			changed = true
		}
		if v := strings.TrimSpace(payload.Phone); v != "" && v != supplier.Phone {
			supplier.Phone = v
			changed = true
		}
		if v := strings.TrimSpace(payload.Address); v != "" && v != supplier.Address {
			supplier.Address = v
			changed = true
		}
		if v := strings.TrimSpace(payload.City); v != "" && v != supplier.City {
			supplier.City = v
			changed = true
		}
		if !supplier.IsActive {
			supplier.IsActive = true
			changed = true
		}
		if changed {
			if err := s.supplierRepo.Update(ctx, supplier); err != nil {
				return nil, false, fmt.Errorf("failed to update supplier: %w", err)
			}
		}
		return supplier, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up supplier: %w", err)
	}

	legalName := strings.TrimSpace(payload.LegalName)
	if legalName == "" {
		legalName = "Supplier " + taxID
	}
	supplier = &model.Supplier{
		TaxID:     taxID,
		LegalName: legalName,
		TradeName: legalName,
		Email:     strings.TrimSpace(payload.Email),
		Phone:     strings.TrimSpace(payload.Phone),
		Address:   strings.TrimSpace(payload.Address),
		City:      strings.TrimSpace(payload.City),
		IsActive:  true,
	}
	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		return nil, false, fmt.Errorf("failed to create supplier: %w", err)
	}
	return supplier, true, nil
}

// resolveProduct maps an invoice line to a catalog product, trying in order:
// exact code, case-insensitive exact name, then a substring match on the first
// 30 characters of the name (names longer than 10 characters only). When
// nothing matches a new product is created with a 1.5x markup sale price.
// Returns whether the product was created.
func (s *purchaseService) resolveProduct(ctx context.Context, line InvoiceItemPayload, updatePrices bool) (*model.Product, bool, error) {
	ref := strings.TrimSpace(line.Reference)
	name := strings.TrimSpace(line.Name)

	var product *model.Product

	if ref != "" {
		p, err := s.productRepo.FindByCode(ctx, ref)
		if err == nil {
			product = p
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("failed to look up product by code: %w", err)
		}
	}

	if product == nil {
		p, err := s.productRepo.FindByNameExact(ctx, name)
		if err == nil {
			product = p
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("failed to look up product by name: %w", err)
		}
	}

	if product == nil && len(name) > nameFragmentMinLen {
		fragment := name
		if len(fragment) > nameFragmentLen {
			fragment = fragment[:nameFragmentLen]
		}
		p, err := s.productRepo.FindByNameFragment(ctx, fragment)
		if err == nil {
			product = p
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("failed to look up product by name fragment: %w", err)
		}
	}

	if product == nil {
		code := ref
		if code == "" {
			generated, err := s.nextAutoCode(ctx)
			if err != nil {
				return nil, false, err
			}
			code = generated
		}
		product = &model.Product{
			Code:          code,
			Name:          name,
			Description:   "Created automatically from purchase invoice",
			Category:      model.DefaultCategory,
			PurchasePrice: line.UnitPrice,
			SalePrice:     line.UnitPrice * defaultMarkup,
			CurrentStock:  0,
			MinStock:      5,
			IsActive:      true,
		}
		if err := s.productRepo.Create(ctx, product); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, false, &ValidationError{Msg: fmt.Sprintf("product code %q already exists", code)}
			}
			return nil, false, fmt.Errorf("failed to create product %q: %w", name, err)
		}
		return product, true, nil
	}

	changed := false

	if updatePrices && math.Abs(line.UnitPrice-product.PurchasePrice) > priceEpsilon {
		oldPurchase := product.PurchasePrice
		product.PurchasePrice = line.UnitPrice
		// Products still on the default margin follow the new purchase price;
		// a sale price above 2x purchase means someone priced it by hand and
		// that margin is preserved.
		if product.SalePrice <= oldPurchase*2 {
			product.SalePrice = line.UnitPrice * defaultMarkup
		}
		changed = true
	}

	// A real supplier reference replaces a generated placeholder code.
	if ref != "" && strings.HasPrefix(product.Code, model.AutoCodePrefix) {
		product.Code = ref
		changed = true
	}

	if changed {
		if err := s.productRepo.Update(ctx, product); err != nil {
			return nil, false, fmt.Errorf("failed to update product %q: %w", product.Name, err)
		}
	}

	return product, false, nil
}

// nextAutoCode returns an unused placeholder code for a product created from
// an invoice line without a supplier reference. The timestamp alone repeats
// when one invoice creates several such products within a second, so a numeric
// suffix bumps past any taken code.
func (s *purchaseService) nextAutoCode(ctx context.Context) (string, error) {
	base := model.AutoCodePrefix + time.Now().Format("20060102150405")
	code := base
	for i := 1; ; i++ {
		_, err := s.productRepo.FindByCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check product code: %w", err)
		}
		code = fmt.Sprintf("%s-%d", base, i)
	}
}

// parseOptionalDate accepts RFC 3339 or plain dates; anything else is treated
// as absent rather than rejecting the whole invoice.
func parseOptionalDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}

func toInvoiceResponse(invoice model.PurchaseInvoice) PurchaseInvoiceResponse {
	resp := PurchaseInvoiceResponse{
		ID:            invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		SupplierID:    invoice.SupplierID.String(),
		IssueDate:     invoice.IssueDate.Format("2006-01-02"),
		Cufe:          invoice.Cufe,
		Subtotal:      invoice.Subtotal.StringFixed(2),
		Tax:           invoice.Tax.StringFixed(2),
		Total:         invoice.Total.StringFixed(2),
		DocumentPath:  invoice.DocumentPath,
		Status:        invoice.Status,
		CreatedAt:     invoice.CreatedAt.Format(time.RFC3339),
	}

	if invoice.AcceptanceDate != nil {
		d := invoice.AcceptanceDate.Format("2006-01-02")
		resp.AcceptanceDate = &d
	}
	if invoice.Supplier != nil {
		resp.SupplierTaxID = invoice.Supplier.TaxID
		resp.SupplierName = invoice.Supplier.LegalName
	}

	resp.Items = make([]InvoiceItemResponse, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		ir := InvoiceItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
		if item.Product != nil {
			ir.ProductName = item.Product.Name
			ir.ProductCode = item.Product.Code
		}
		resp.Items = append(resp.Items, ir)
	}

	return resp
}
