package purchasing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/backend/internal/application/fulfillment"
	"github.com/stockops/backend/internal/application/ledger"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
	"github.com/stockops/backend/internal/domain/shared"
)

type receivingFixture struct {
	repos      *scope.InMemoryRepositories
	service    *ReceivingService
	ctx        context.Context
	productID  uuid.UUID
	storeID    uuid.UUID
	operatorID uuid.UUID
}

func newReceivingFixture(t *testing.T) *receivingFixture {
	t.Helper()
	repos := scope.NewInMemoryRepositories()
	txScope := scope.NewNoOpTransactionScope(repos)
	f := &receivingFixture{
		repos:      repos,
		service:    NewReceivingService(txScope, fulfillment.NewCoordinator()),
		ctx:        context.Background(),
		storeID:    uuid.New(),
		operatorID: uuid.New(),
	}
	product, err := catalog.NewProduct("Paracetamol 500mg", "PARA-500")
	require.NoError(t, err)
	require.NoError(t, repos.Products().Save(f.ctx, product))
	f.productID = product.ID
	return f
}

// seedOpenBackorder oversells the product by qty: demand line, backorder
// and a placeholder at -qty.
func (f *receivingFixture) seedOpenBackorder(t *testing.T, qty int64) *sales.Backorder {
	t.Helper()
	amount := decimal.NewFromInt(qty)
	item, err := sales.NewSaleItem(uuid.New(), f.productID, f.storeID, amount)
	require.NoError(t, err)
	require.NoError(t, item.AddBackorderQuantity(amount))
	require.NoError(t, f.repos.SaleItems().Save(f.ctx, item))

	backorder, err := sales.NewBackorder(f.productID, f.storeID, item.ID, amount)
	require.NoError(t, err)
	require.NoError(t, f.repos.Backorders().Save(f.ctx, backorder))

	placeholder, err := ledger.EnsurePlaceholder(f.ctx, f.repos, f.productID, f.storeID)
	require.NoError(t, err)
	require.NoError(t, ledger.DecrementLot(f.ctx, f.repos, placeholder, amount, ledger.Movement{
		Type:       inventory.TransactionTypeSale,
		OperatorID: f.operatorID,
	}))
	return backorder
}

func TestReceivingService_ReceiveStock(t *testing.T) {
	t.Run("creates a lot and records a purchase", func(t *testing.T) {
		f := newReceivingFixture(t)

		result, err := f.service.ReceiveStock(f.ctx, ReceiveStockRequest{
			StoreID: f.storeID,
			Lines: []ReceiptLineInput{{
				ProductID: f.productID,
				LotNumber: "LOT-2026-01",
				Quantity:  decimal.NewFromInt(50),
				CostPrice: decimal.NewFromInt(2),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		assert.True(t, result.Lines[0].Provisioned.IsZero())

		lot, err := f.repos.Lots().FindByID(f.ctx, result.Lines[0].LotID)
		require.NoError(t, err)
		assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(50)))

		records, err := f.repos.InventoryTransactions().FindByLot(f.ctx, lot.ID, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, inventory.TransactionTypePurchase, records[0].TransactionType)
		assert.True(t, records[0].QuantityBefore.IsZero())
		assert.True(t, records[0].QuantityAfter.Equal(decimal.NewFromInt(50)))
	})

	t.Run("increments an existing lot with the same natural key", func(t *testing.T) {
		f := newReceivingFixture(t)

		first, err := f.service.ReceiveStock(f.ctx, ReceiveStockRequest{
			StoreID: f.storeID,
			Lines: []ReceiptLineInput{{
				ProductID: f.productID,
				LotNumber: "LOT-2026-01",
				Quantity:  decimal.NewFromInt(20),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		second, err := f.service.ReceiveStock(f.ctx, ReceiveStockRequest{
			StoreID: f.storeID,
			Lines: []ReceiptLineInput{{
				ProductID: f.productID,
				LotNumber: "LOT-2026-01",
				Quantity:  decimal.NewFromInt(30),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.Equal(t, first.Lines[0].LotID, second.Lines[0].LotID)

		lot, err := f.repos.Lots().FindByID(f.ctx, first.Lines[0].LotID)
		require.NoError(t, err)
		assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(50)))
	})

	t.Run("drains open backorders in the same transaction", func(t *testing.T) {
		f := newReceivingFixture(t)
		backorder := f.seedOpenBackorder(t, 6)

		result, err := f.service.ReceiveStock(f.ctx, ReceiveStockRequest{
			StoreID: f.storeID,
			Lines: []ReceiptLineInput{{
				ProductID: f.productID,
				LotNumber: "LOT-2026-02",
				Quantity:  decimal.NewFromInt(10),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.True(t, result.Lines[0].Provisioned.Equal(decimal.NewFromInt(6)))

		drained, err := f.repos.Backorders().FindByID(f.ctx, backorder.ID)
		require.NoError(t, err)
		assert.False(t, drained.IsActive)

		lot, err := f.repos.Lots().FindByID(f.ctx, result.Lines[0].LotID)
		require.NoError(t, err)
		assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(4)))

		placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		assert.True(t, placeholder.Quantity.IsZero())

		// 10 received minus 6 already sold
		product, err := f.repos.Products().FindByID(f.ctx, f.productID)
		require.NoError(t, err)
		assert.True(t, product.QuantityOnHand.Equal(decimal.NewFromInt(4)))
	})

	t.Run("rejects the reserved placeholder lot number", func(t *testing.T) {
		f := newReceivingFixture(t)
		_, err := f.service.ReceiveStock(f.ctx, ReceiveStockRequest{
			StoreID: f.storeID,
			Lines: []ReceiptLineInput{{
				ProductID: f.productID,
				LotNumber: ledger.PlaceholderLotNumber,
				Quantity:  decimal.NewFromInt(10),
			}},
			OperatorID: f.operatorID,
		})
		assert.Error(t, err)
	})
}
