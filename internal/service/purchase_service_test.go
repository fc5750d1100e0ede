package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceRequest(number string, items ...InvoiceItemPayload) ProcessInvoiceRequest {
	return ProcessInvoiceRequest{
		Supplier: SupplierPayload{
			TaxID:     "900555666-7",
			LegalName: "Distribuidora Belleza SAS",
			City:      "Bogota",
		},
		Invoice: InvoiceHeaderPayload{
			Number:    number,
			IssueDate: "2026-08-15",
		},
		Items: items,
		Totals: InvoiceTotalsPayload{
			Subtotal: "5000.00",
			Tax:      "950.00",
			Total:    "5950.00",
		},
	}
}

func TestProcessInvoice_CreatesSupplierAndProducts(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-1001",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 50, UnitPrice: 12},
		InvoiceItemPayload{Reference: "CRE-020", Name: "Crema Facial Noche", Quantity: 30, UnitPrice: 40},
	), nil)
	require.NoError(t, err)

	assert.Equal(t, "FAC-1001", resp.InvoiceNumber)
	assert.Equal(t, model.InvoiceStatusProcessed, resp.Status)
	assert.True(t, resp.SupplierCreated)
	assert.Equal(t, 2, resp.ProductsCreated)
	assert.Equal(t, 0, resp.ProductsMatched)
	assert.Equal(t, "5950.00", resp.Total)
	require.Len(t, resp.Items, 2)

	supplier, err := env.supplierRepo.FindByTaxID(testCtx(), "900555666-7")
	require.NoError(t, err)
	assert.Equal(t, "Distribuidora Belleza SAS", supplier.LegalName)
	assert.True(t, supplier.IsActive)

	labial, err := env.productRepo.FindByCode(testCtx(), "LAB-010")
	require.NoError(t, err)
	assert.Equal(t, 50, labial.CurrentStock)
	assert.Equal(t, 12.0, labial.PurchasePrice)
	assert.Equal(t, 18.0, labial.SalePrice) // 1.5x markup
	assert.Equal(t, model.DefaultCategory, labial.Category)

	crema, err := env.productRepo.FindByCode(testCtx(), "CRE-020")
	require.NoError(t, err)
	assert.Equal(t, 30, crema.CurrentStock)

	// New products enter at zero, so the IN movement snapshots 0 -> quantity.
	movements := movementsFor(t, env, labial.ID.String())
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementIn, movements[0].Type)
	assert.Equal(t, 0, movements[0].StockBefore)
	assert.Equal(t, 50, movements[0].StockAfter)
	assert.Equal(t, "Purchase - Invoice FAC-1001", movements[0].Reason)
	assert.Equal(t, "FAC-1001", movements[0].Reference)
}

func TestProcessInvoice_DuplicateNumberRejected(t *testing.T) {
	env := newTestEnv(t)

	req := invoiceRequest("FAC-2001",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 12})

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), req, nil)
	require.NoError(t, err)

	_, err = env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), req, nil)
	var duplicate *DuplicateInvoiceError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "FAC-2001", duplicate.InvoiceNumber)

	// Stock unchanged by the rejected re-ingestion.
	product, err := env.productRepo.FindByCode(testCtx(), "LAB-010")
	require.NoError(t, err)
	assert.Equal(t, 10, product.CurrentStock)
}

func TestProcessInvoice_UpdatesPricesWithMarkup(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-010", "Labial Mate Nude", 100, 150, 5)

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-3001",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 120}), nil)
	require.NoError(t, err)

	updated := reloadProduct(t, env, product.ID.String())
	assert.Equal(t, 120.0, updated.PurchasePrice)
	assert.Equal(t, 180.0, updated.SalePrice) // follows the 1.5x markup
	assert.Equal(t, 15, updated.CurrentStock)
}

// A sale price above twice the purchase price was set by hand; a new purchase
// price must not clobber that margin.
func TestProcessInvoice_PreservesCustomMargin(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-010", "Labial Mate Nude", 100, 300, 5)

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-3002",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 120}), nil)
	require.NoError(t, err)

	updated := reloadProduct(t, env, product.ID.String())
	assert.Equal(t, 120.0, updated.PurchasePrice)
	assert.Equal(t, 300.0, updated.SalePrice)
}

func TestProcessInvoice_UpdatePricesDisabled(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-010", "Labial Mate Nude", 100, 150, 5)

	req := invoiceRequest("FAC-3003",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 120})
	updatePrices := false
	req.UpdatePrices = &updatePrices

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), req, nil)
	require.NoError(t, err)

	updated := reloadProduct(t, env, product.ID.String())
	assert.Equal(t, 100.0, updated.PurchasePrice)
	assert.Equal(t, 150.0, updated.SalePrice)
	assert.Equal(t, 15, updated.CurrentStock)
}

func TestProcessInvoice_MatchesByExactNameWhenNoReference(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-010", "Labial Mate Nude", 10, 15, 5)

	resp, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-4001",
		InvoiceItemPayload{Name: "LABIAL MATE NUDE", Quantity: 10, UnitPrice: 10}), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.ProductsCreated)
	assert.Equal(t, 1, resp.ProductsMatched)
	assert.Equal(t, 15, reloadProduct(t, env, product.ID.String()).CurrentStock)
}

func TestProcessInvoice_MatchesByNameFragment(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "CRE-020", "Crema Hidratante Facial Noche 50ml Promo", 30, 45, 5)

	// No reference, no exact name; the first 30 characters of the line name
	// are contained in the catalog name.
	resp, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-4002",
		InvoiceItemPayload{Name: "Crema Hidratante Facial Noche 50ml", Quantity: 6, UnitPrice: 30}), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.ProductsCreated)
	assert.Equal(t, 11, reloadProduct(t, env, product.ID.String()).CurrentStock)
}

func TestProcessInvoice_ShortNamesSkipFragmentMatch(t *testing.T) {
	env := newTestEnv(t)
	seedProduct(t, env.db, "ESM-001", "Esmalte Azul", 5, 8, 5)

	// "Esmalte" is 7 chars: fragment matching is skipped and a new product is
	// created instead of guessing.
	resp, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-4003",
		InvoiceItemPayload{Name: "Esmalte", Quantity: 3, UnitPrice: 5}), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ProductsCreated)
}

func TestProcessInvoice_ReplacesGeneratedCode(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "AUTO-20260101120000", "Perfume Floral 100ml", 50, 75, 5)

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-5001",
		InvoiceItemPayload{Reference: "PER-100", Name: "Perfume Floral 100ml", Quantity: 4, UnitPrice: 50}), nil)
	require.NoError(t, err)

	updated := reloadProduct(t, env, product.ID.String())
	assert.Equal(t, "PER-100", updated.Code)
}

func TestProcessInvoice_GeneratesCodeWhenLineHasNoReference(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-5002",
		InvoiceItemPayload{Name: "Mascara Pestanas Volumen XL", Quantity: 12, UnitPrice: 25}), nil)
	require.NoError(t, err)

	var product model.Product
	require.NoError(t, env.db.First(&product, "name = ?", "Mascara Pestanas Volumen XL").Error)
	assert.True(t, strings.HasPrefix(product.Code, model.AutoCodePrefix))
}

// Two lines without references created in the same second must not fight over
// the timestamp-based placeholder code.
func TestProcessInvoice_DistinctGeneratedCodesPerLine(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-5003",
		InvoiceItemPayload{Name: "Brillo Labial Transparente", Quantity: 8, UnitPrice: 10},
		InvoiceItemPayload{Name: "Esmalte Rojo Intenso 12ml", Quantity: 6, UnitPrice: 7},
	), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.ProductsCreated)

	var products []model.Product
	require.NoError(t, env.db.Where("code LIKE ?", model.AutoCodePrefix+"%").Find(&products).Error)
	require.Len(t, products, 2)
	assert.NotEqual(t, products[0].Code, products[1].Code)
	for _, p := range products {
		require.Len(t, movementsFor(t, env, p.ID.String()), 1)
	}
}

var errItemWriteFailed = errors.New("item write failed")

// failingItemRepo fails CreateItem after a number of successful writes.
type failingItemRepo struct {
	repository.PurchaseInvoiceRepository
	allowed int
	calls   int
}

func (r *failingItemRepo) CreateItem(ctx context.Context, item *model.PurchaseInvoiceItem) error {
	r.calls++
	if r.calls > r.allowed {
		return errItemWriteFailed
	}
	return r.PurchaseInvoiceRepository.CreateItem(ctx, item)
}

// A failure on a later line rolls back everything the earlier lines wrote:
// the supplier, the invoice, the new products and the stock movements.
func TestProcessInvoice_MidTransactionFailureLeavesNoResidue(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-010", "Labial Mate Nude", 10, 15, 5)

	flaky := &failingItemRepo{PurchaseInvoiceRepository: env.invoiceRepo, allowed: 1}
	svc := NewPurchaseService(flaky, env.supplierRepo, env.productRepo, env.ledger, env.txManager, nil)

	_, err := svc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-9001",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 12},
		InvoiceItemPayload{Reference: "CRE-030", Name: "Crema Nueva Corporal", Quantity: 5, UnitPrice: 20},
	), nil)
	require.ErrorIs(t, err, errItemWriteFailed)

	var supplierCount, invoiceCount, itemCount, movementCount, productCount int64
	require.NoError(t, env.db.Model(&model.Supplier{}).Count(&supplierCount).Error)
	require.NoError(t, env.db.Model(&model.PurchaseInvoice{}).Count(&invoiceCount).Error)
	require.NoError(t, env.db.Model(&model.PurchaseInvoiceItem{}).Count(&itemCount).Error)
	require.NoError(t, env.db.Model(&model.InventoryMovement{}).Count(&movementCount).Error)
	require.NoError(t, env.db.Model(&model.Product{}).Count(&productCount).Error)
	assert.Zero(t, supplierCount)
	assert.Zero(t, invoiceCount)
	assert.Zero(t, itemCount)
	assert.Zero(t, movementCount)
	assert.EqualValues(t, 1, productCount)

	// The matched product's stock and the price update rolled back too.
	reloaded := reloadProduct(t, env, product.ID.String())
	assert.Equal(t, 5, reloaded.CurrentStock)
	assert.Equal(t, 10.0, reloaded.PurchasePrice)
}

// The same product twice on one invoice: each increment reads the row again,
// so the snapshots chain instead of both starting from the pre-invoice stock.
func TestProcessInvoice_RepeatedLineChainsIncrements(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-010", "Labial Mate Nude", 10, 15, 0)

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-9002",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 10},
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 5, UnitPrice: 10},
	), nil)
	require.NoError(t, err)

	movements := movementsFor(t, env, product.ID.String())
	require.Len(t, movements, 2)
	assert.Equal(t, 0, movements[0].StockBefore)
	assert.Equal(t, 10, movements[0].StockAfter)
	assert.Equal(t, 10, movements[1].StockBefore)
	assert.Equal(t, 15, movements[1].StockAfter)
	assert.Equal(t, 15, reloadProduct(t, env, product.ID.String()).CurrentStock)
}

func TestProcessInvoice_EmptyTaxIDRejectedBeforeWrites(t *testing.T) {
	env := newTestEnv(t)

	req := invoiceRequest("FAC-6001",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 12})
	req.Supplier.TaxID = "   "

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), req, nil)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	var invoiceCount, productCount int64
	require.NoError(t, env.db.Model(&model.PurchaseInvoice{}).Count(&invoiceCount).Error)
	require.NoError(t, env.db.Model(&model.Product{}).Count(&productCount).Error)
	assert.Zero(t, invoiceCount)
	assert.Zero(t, productCount)
}

func TestProcessInvoice_UpsertsAndReactivatesSupplier(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&model.Supplier{
		TaxID:     "900555666-7",
		LegalName: "Nombre Antiguo SAS",
		IsActive:  false,
	}).Error)

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), invoiceRequest("FAC-7001",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 12}), nil)
	require.NoError(t, err)

	supplier, err := env.supplierRepo.FindByTaxID(testCtx(), "900555666-7")
	require.NoError(t, err)
	assert.Equal(t, "Distribuidora Belleza SAS", supplier.LegalName)
	assert.Equal(t, "Bogota", supplier.City)
	assert.True(t, supplier.IsActive)

	// Still a single supplier row for the tax id.
	var count int64
	require.NoError(t, env.db.Model(&model.Supplier{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestProcessInvoice_InvalidIssueDate(t *testing.T) {
	env := newTestEnv(t)

	req := invoiceRequest("FAC-8001",
		InvoiceItemPayload{Reference: "LAB-010", Name: "Labial Mate Nude", Quantity: 10, UnitPrice: 12})
	req.Invoice.IssueDate = "15/08/2026"

	_, err := env.purchaseSvc.ProcessInvoice(testCtx(), env.user.ID.String(), req, nil)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}
