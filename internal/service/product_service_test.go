package service

import (
	"testing"

	"pos-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProduct_InitialStockGoesThroughLedger(t *testing.T) {
	env := newTestEnv(t)

	product, err := env.productSvc.CreateProduct(testCtx(), env.user.ID.String(), CreateProductRequest{
		Code:         "LAB-001",
		Name:         "Labial Mate Rojo",
		Category:     model.CategoryMaquillaje,
		SalePrice:    20,
		InitialStock: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, product.CurrentStock)

	movements := movementsFor(t, env, product.ID.String())
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementAdjustment, movements[0].Type)
	assert.Equal(t, 0, movements[0].StockBefore)
	assert.Equal(t, 25, movements[0].StockAfter)
	assert.Equal(t, "Initial stock", movements[0].Reason)
}

func TestCreateProduct_RejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.productSvc.CreateProduct(testCtx(), env.user.ID.String(), CreateProductRequest{
		Code:     "LAB-001",
		Name:     "Labial Mate Rojo",
		Category: "PERFUMES",
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestCreateProduct_RejectsDuplicateCode(t *testing.T) {
	env := newTestEnv(t)
	seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 5)

	_, err := env.productSvc.CreateProduct(testCtx(), env.user.ID.String(), CreateProductRequest{
		Code:     "LAB-001",
		Name:     "Otro Labial",
		Category: model.CategoryMaquillaje,
	})

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestAdjustStock_SignedDeltas(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 10)

	updated, err := env.productSvc.AdjustStock(testCtx(), env.user.ID.String(), product.ID.String(), AdjustStockRequest{
		Quantity: -4,
		Reason:   "Physical count",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, updated.CurrentStock)

	updated, err = env.productSvc.AdjustStock(testCtx(), env.user.ID.String(), product.ID.String(), AdjustStockRequest{
		Quantity: 2,
		Reason:   "Found in storage",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, updated.CurrentStock)

	movements := movementsFor(t, env, product.ID.String())
	require.Len(t, movements, 2)
	assert.Equal(t, model.MovementAdjustment, movements[0].Type)
	assert.Equal(t, 4, movements[0].Quantity)
	assert.Equal(t, "Physical count", movements[0].Reason)
}

func TestAdjustStock_CannotGoNegative(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 3)

	_, err := env.productSvc.AdjustStock(testCtx(), env.user.ID.String(), product.ID.String(), AdjustStockRequest{
		Quantity: -5,
		Reason:   "Oops",
	})

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, reloadProduct(t, env, product.ID.String()).CurrentStock)
	assert.Empty(t, movementsFor(t, env, product.ID.String()))
}

func TestListMovements_Filters(t *testing.T) {
	env := newTestEnv(t)
	labial := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 0)
	crema := seedProduct(t, env.db, "CRE-001", "Crema Hidratante", 15, 30, 0)

	_, err := env.ledger.ApplyStockChange(testCtx(), labial, 10, model.MovementIn, "Purchase - Invoice F1", "F1", env.user.ID)
	require.NoError(t, err)
	_, err = env.ledger.ApplyStockChange(testCtx(), labial, -2, model.MovementOut, "Sale VTA-000001", "VTA-000001", env.user.ID)
	require.NoError(t, err)
	_, err = env.ledger.ApplyStockChange(testCtx(), crema, 5, model.MovementIn, "Purchase - Invoice F1", "F1", env.user.ID)
	require.NoError(t, err)

	all, total, err := env.productSvc.ListMovements(testCtx(), 1, 20, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, crema.ID.String(), all[0].ProductID)

	ins, total, err := env.productSvc.ListMovements(testCtx(), 1, 20, "", model.MovementIn)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, ins, 2)

	byProduct, total, err := env.productSvc.ListMovements(testCtx(), 1, 20, labial.ID.String(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, byProduct, 2)

	_, _, err = env.productSvc.ListMovements(testCtx(), 1, 20, "", "TRANSFER")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestListProductMovements_CreationOrder(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 0)

	_, err := env.ledger.ApplyStockChange(testCtx(), product, 10, model.MovementIn, "first", "", env.user.ID)
	require.NoError(t, err)
	_, err = env.ledger.ApplyStockChange(testCtx(), product, -3, model.MovementOut, "second", "", env.user.ID)
	require.NoError(t, err)

	movements, err := env.productSvc.ListProductMovements(testCtx(), product.ID.String())
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, "first", movements[0].Reason)
	assert.Equal(t, "second", movements[1].Reason)
}
