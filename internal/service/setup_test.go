package service

import (
	"context"
	"testing"

	"pos-backend/internal/model"
	"pos-backend/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database per test. MaxOpenConns(1)
// keeps every connection on the same memory instance.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Product{},
		&model.Client{},
		&model.Supplier{},
		&model.Sale{},
		&model.SaleItem{},
		&model.PurchaseInvoice{},
		&model.PurchaseInvoiceItem{},
		&model.InventoryMovement{},
	))

	return db
}

type testEnv struct {
	db *gorm.DB

	txManager    repository.TransactionManager
	productRepo  repository.ProductRepository
	clientRepo   repository.ClientRepository
	supplierRepo repository.SupplierRepository
	saleRepo     repository.SaleRepository
	invoiceRepo  repository.PurchaseInvoiceRepository
	movementRepo repository.MovementRepository

	ledger *StockLedger

	saleSvc     SaleService
	purchaseSvc PurchaseService
	productSvc  ProductService

	user   *model.User
	client *model.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)

	env := &testEnv{
		db:           db,
		txManager:    repository.NewTransactionManager(db),
		productRepo:  repository.NewProductRepository(db),
		clientRepo:   repository.NewClientRepository(db),
		supplierRepo: repository.NewSupplierRepository(db),
		saleRepo:     repository.NewSaleRepository(db),
		invoiceRepo:  repository.NewPurchaseInvoiceRepository(db),
		movementRepo: repository.NewMovementRepository(db),
	}
	env.ledger = NewStockLedger(env.productRepo, env.movementRepo)
	env.saleSvc = NewSaleService(env.saleRepo, env.productRepo, env.clientRepo, env.ledger, env.txManager, nil)
	env.purchaseSvc = NewPurchaseService(env.invoiceRepo, env.supplierRepo, env.productRepo, env.ledger, env.txManager, nil)
	env.productSvc = NewProductService(env.productRepo, env.movementRepo, env.ledger, env.txManager)

	env.user = seedUser(t, db)
	env.client = seedClient(t, db)

	return env
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{
		Username: "cajera1",
		Email:    "cajera1@example.com",
		FullName: "Cajera Uno",
		Password: "not-a-real-hash",
		Role:     model.RoleVendedor,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedClient(t *testing.T, db *gorm.DB) *model.Client {
	t.Helper()
	client := &model.Client{
		Document:     "1020304050",
		DocumentType: "CC",
		FullName:     "Maria Gomez",
		IsActive:     true,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

func seedProduct(t *testing.T, db *gorm.DB, code, name string, purchase, sale float64, stock int) *model.Product {
	t.Helper()
	product := &model.Product{
		Code:          code,
		Name:          name,
		Category:      model.CategoryMaquillaje,
		PurchasePrice: purchase,
		SalePrice:     sale,
		CurrentStock:  stock,
		MinStock:      5,
		IsActive:      true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func movementsFor(t *testing.T, env *testEnv, productID string) []model.InventoryMovement {
	t.Helper()
	var movements []model.InventoryMovement
	require.NoError(t, env.db.Where("product_id = ?", productID).Order("id asc").Find(&movements).Error)
	return movements
}

func reloadProduct(t *testing.T, env *testEnv, id string) *model.Product {
	t.Helper()
	var product model.Product
	require.NoError(t, env.db.First(&product, "id = ?", id).Error)
	return &product
}

func testCtx() context.Context {
	return context.Background()
}
