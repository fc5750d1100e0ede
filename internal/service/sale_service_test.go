package service

import (
	"testing"

	"pos-backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleRequest(env *testEnv, items ...SaleItemRequest) CreateSaleRequest {
	return CreateSaleRequest{
		ClientID:      env.client.ID.String(),
		Subtotal:      "100.00",
		Discount:      "0",
		Tax:           "19.00",
		Total:         "119.00",
		PaymentMethod: model.PaymentCash,
		Items:         items,
	}
}

func TestCreateSale_DecrementsStockAndRecordsMovement(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 50)

	resp, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env, SaleItemRequest{
		ProductID: product.ID.String(),
		Quantity:  5,
		UnitPrice: 20,
	}))
	require.NoError(t, err)

	assert.Equal(t, "VTA-000001", resp.SaleNumber)
	assert.Equal(t, model.SaleStatusCompleted, resp.Status)
	assert.Equal(t, "100.00", resp.Subtotal)
	assert.Equal(t, "119.00", resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
	assert.Equal(t, 100.0, resp.Items[0].Subtotal)

	assert.Equal(t, 45, reloadProduct(t, env, product.ID.String()).CurrentStock)

	movements := movementsFor(t, env, product.ID.String())
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementOut, movements[0].Type)
	assert.Equal(t, 5, movements[0].Quantity)
	assert.Equal(t, 50, movements[0].StockBefore)
	assert.Equal(t, 45, movements[0].StockAfter)
	assert.Equal(t, "Sale VTA-000001", movements[0].Reason)
	assert.Equal(t, "VTA-000001", movements[0].Reference)
	assert.Equal(t, env.user.ID, movements[0].UserID)
}

func TestCreateSale_SequentialNumbers(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 50)

	first, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env, SaleItemRequest{
		ProductID: product.ID.String(), Quantity: 1, UnitPrice: 20,
	}))
	require.NoError(t, err)
	second, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env, SaleItemRequest{
		ProductID: product.ID.String(), Quantity: 1, UnitPrice: 20,
	}))
	require.NoError(t, err)

	assert.Equal(t, "VTA-000001", first.SaleNumber)
	assert.Equal(t, "VTA-000002", second.SaleNumber)
}

func TestCreateSale_InsufficientStockLeavesNoResidue(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 3)

	_, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env, SaleItemRequest{
		ProductID: product.ID.String(), Quantity: 5, UnitPrice: 20,
	}))

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Equal(t, 3, insufficient.Available)

	assert.Equal(t, 3, reloadProduct(t, env, product.ID.String()).CurrentStock)
	assert.Empty(t, movementsFor(t, env, product.ID.String()))

	var saleCount int64
	require.NoError(t, env.db.Model(&model.Sale{}).Count(&saleCount).Error)
	assert.Zero(t, saleCount)
}

// A failing line must roll back the whole sale, including lines already
// processed in the same transaction.
func TestCreateSale_MultiLineAtomicity(t *testing.T) {
	env := newTestEnv(t)
	ok := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 10)
	short := seedProduct(t, env.db, "CRE-001", "Crema Hidratante", 15, 30, 5)

	_, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env,
		SaleItemRequest{ProductID: ok.ID.String(), Quantity: 2, UnitPrice: 20},
		SaleItemRequest{ProductID: short.ID.String(), Quantity: 20, UnitPrice: 30},
	))

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	assert.Equal(t, 10, reloadProduct(t, env, ok.ID.String()).CurrentStock)
	assert.Equal(t, 5, reloadProduct(t, env, short.ID.String()).CurrentStock)
	assert.Empty(t, movementsFor(t, env, ok.ID.String()))

	var movementCount int64
	require.NoError(t, env.db.Model(&model.InventoryMovement{}).Count(&movementCount).Error)
	assert.Zero(t, movementCount)
}

func TestCreateSale_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env, SaleItemRequest{
		ProductID: uuid.NewString(), Quantity: 1, UnitPrice: 20,
	}))

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "product", notFound.Entity)
}

func TestCreateSale_UnknownClient(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 50)

	req := saleRequest(env, SaleItemRequest{ProductID: product.ID.String(), Quantity: 1, UnitPrice: 20})
	req.ClientID = uuid.NewString()

	_, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), req)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "client", notFound.Entity)
}

// Service-level guard for non-positive quantities, independent of request
// binding.
func TestCreateSale_NonPositiveQuantity(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 50)

	for _, qty := range []int{0, -3} {
		_, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env, SaleItemRequest{
			ProductID: product.ID.String(), Quantity: qty, UnitPrice: 20,
		}))

		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
	}

	assert.Equal(t, 50, reloadProduct(t, env, product.ID.String()).CurrentStock)
}

func TestCreateSale_LinesKeepInputOrder(t *testing.T) {
	env := newTestEnv(t)
	first := seedProduct(t, env.db, "LAB-001", "Labial Mate Rojo", 10, 20, 50)
	second := seedProduct(t, env.db, "CRE-001", "Crema Hidratante", 15, 30, 50)

	resp, err := env.saleSvc.CreateSale(testCtx(), env.user.ID.String(), saleRequest(env,
		SaleItemRequest{ProductID: first.ID.String(), Quantity: 2, UnitPrice: 20},
		SaleItemRequest{ProductID: second.ID.String(), Quantity: 3, UnitPrice: 30, Discount: 5},
	))
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, first.ID.String(), resp.Items[0].ProductID)
	assert.Equal(t, second.ID.String(), resp.Items[1].ProductID)
	assert.Equal(t, 85.0, resp.Items[1].Subtotal) // 3*30 - 5
}

func TestGetSale_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.saleSvc.GetSale(testCtx(), uuid.NewString())

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
