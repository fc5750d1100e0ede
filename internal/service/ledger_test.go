package service

import (
	"testing"

	"pos-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStockChange_RejectsZeroDelta(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "P-001", "Labial Rojo", 10, 15, 20)

	_, err := env.ledger.ApplyStockChange(testCtx(), product, 0, model.MovementAdjustment, "count", "", env.user.ID)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestApplyStockChange_RejectsSignTypeMismatch(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "P-001", "Labial Rojo", 10, 15, 20)

	var validation *ValidationError

	_, err := env.ledger.ApplyStockChange(testCtx(), product, -3, model.MovementIn, "x", "", env.user.ID)
	require.ErrorAs(t, err, &validation)

	_, err = env.ledger.ApplyStockChange(testCtx(), product, 3, model.MovementOut, "x", "", env.user.ID)
	require.ErrorAs(t, err, &validation)

	_, err = env.ledger.ApplyStockChange(testCtx(), product, 3, "TRANSFER", "x", "", env.user.ID)
	require.ErrorAs(t, err, &validation)
}

func TestApplyStockChange_RefusesNegativeResult(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "P-001", "Labial Rojo", 10, 15, 4)

	_, err := env.ledger.ApplyStockChange(testCtx(), product, -5, model.MovementOut, "Sale VTA-000001", "VTA-000001", env.user.ID)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Equal(t, 4, insufficient.Available)

	// Nothing written.
	assert.Empty(t, movementsFor(t, env, product.ID.String()))
	assert.Equal(t, 4, reloadProduct(t, env, product.ID.String()).CurrentStock)
}

func TestApplyStockChange_RecordsSnapshots(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "P-001", "Labial Rojo", 10, 15, 0)

	_, err := env.ledger.ApplyStockChange(testCtx(), product, 50, model.MovementIn, "Purchase - Invoice FAC-1", "FAC-1", env.user.ID)
	require.NoError(t, err)
	_, err = env.ledger.ApplyStockChange(testCtx(), product, -8, model.MovementOut, "Sale VTA-000001", "VTA-000001", env.user.ID)
	require.NoError(t, err)
	_, err = env.ledger.ApplyStockChange(testCtx(), product, -2, model.MovementAdjustment, "Broken units", "", env.user.ID)
	require.NoError(t, err)

	movements := movementsFor(t, env, product.ID.String())
	require.Len(t, movements, 3)

	assert.Equal(t, model.MovementIn, movements[0].Type)
	assert.Equal(t, 50, movements[0].Quantity)
	assert.Equal(t, 0, movements[0].StockBefore)
	assert.Equal(t, 50, movements[0].StockAfter)

	assert.Equal(t, model.MovementOut, movements[1].Type)
	assert.Equal(t, 8, movements[1].Quantity)
	assert.Equal(t, 50, movements[1].StockBefore)
	assert.Equal(t, 42, movements[1].StockAfter)

	assert.Equal(t, model.MovementAdjustment, movements[2].Type)
	assert.Equal(t, 2, movements[2].Quantity)
	assert.Equal(t, 42, movements[2].StockBefore)
	assert.Equal(t, 40, movements[2].StockAfter)

	assert.Equal(t, 40, reloadProduct(t, env, product.ID.String()).CurrentStock)
}

// Replaying the movement history from zero must land on the live stock, with
// each snapshot chaining onto the previous one.
func TestApplyStockChange_ReplayMatchesLiveStock(t *testing.T) {
	env := newTestEnv(t)
	product := seedProduct(t, env.db, "P-001", "Labial Rojo", 10, 15, 0)

	deltas := []struct {
		delta int
		typ   string
	}{
		{30, model.MovementIn},
		{-5, model.MovementOut},
		{12, model.MovementIn},
		{-7, model.MovementOut},
		{4, model.MovementAdjustment},
		{-1, model.MovementAdjustment},
	}
	for _, d := range deltas {
		_, err := env.ledger.ApplyStockChange(testCtx(), product, d.delta, d.typ, "test", "", env.user.ID)
		require.NoError(t, err)
	}

	movements := movementsFor(t, env, product.ID.String())
	require.Len(t, movements, len(deltas))

	replayed := 0
	for i, m := range movements {
		assert.Equal(t, replayed, m.StockBefore)
		switch m.Type {
		case model.MovementIn:
			replayed += m.Quantity
		case model.MovementOut:
			replayed -= m.Quantity
		case model.MovementAdjustment:
			replayed = m.StockAfter
		}
		assert.Equal(t, replayed, m.StockAfter, "movement %d", i)
	}

	assert.Equal(t, replayed, reloadProduct(t, env, product.ID.String()).CurrentStock)
}
