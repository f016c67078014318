package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/backend/internal/application/ledger"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
)

type fixture struct {
	repos      *scope.InMemoryRepositories
	ctx        context.Context
	productID  uuid.UUID
	storeID    uuid.UUID
	operatorID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repos:      scope.NewInMemoryRepositories(),
		ctx:        context.Background(),
		storeID:    uuid.New(),
		operatorID: uuid.New(),
	}
	product, err := catalog.NewProduct("Amoxicillin 500mg", "AMX-500")
	require.NoError(t, err)
	require.NoError(t, f.repos.Products().Save(f.ctx, product))
	f.productID = product.ID
	return f
}

// seedBackorder creates an oversold demand line: a sale item whose whole
// quantity is deferred, an open backorder, and the placeholder lot driven
// negative by the same amount.
func (f *fixture) seedBackorder(t *testing.T, qty decimal.Decimal, createdAt time.Time) (*sales.SaleItem, *sales.Backorder) {
	t.Helper()
	item, err := sales.NewSaleItem(uuid.New(), f.productID, f.storeID, qty)
	require.NoError(t, err)
	require.NoError(t, item.AddBackorderQuantity(qty))
	require.NoError(t, f.repos.SaleItems().Save(f.ctx, item))

	backorder, err := sales.NewBackorder(f.productID, f.storeID, item.ID, qty)
	require.NoError(t, err)
	backorder.CreatedAt = createdAt
	require.NoError(t, f.repos.Backorders().Save(f.ctx, backorder))

	placeholder, err := ledger.EnsurePlaceholder(f.ctx, f.repos, f.productID, f.storeID)
	require.NoError(t, err)
	require.NoError(t, ledger.DecrementLot(f.ctx, f.repos, placeholder, qty, ledger.Movement{
		Type:       inventory.TransactionTypeSale,
		OperatorID: f.operatorID,
	}))
	item.SetPrimaryLot(placeholder.ID)
	require.NoError(t, f.repos.SaleItems().Save(f.ctx, item))
	return item, backorder
}

func (f *fixture) seedLot(t *testing.T, lotNumber string, qty decimal.Decimal) *inventory.InventoryLot {
	t.Helper()
	lot, err := ledger.CreateOrIncrementLot(f.ctx, f.repos, ledger.ReceiptInput{
		ProductID: f.productID,
		StoreID:   f.storeID,
		LotNumber: lotNumber,
		Quantity:  qty,
		Movement: ledger.Movement{
			Type:       inventory.TransactionTypePurchase,
			OperatorID: f.operatorID,
		},
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) placeholderQty(t *testing.T) decimal.Decimal {
	t.Helper()
	placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
	require.NoError(t, err)
	return placeholder.Quantity
}

func TestCoordinator_FulfillBackorders(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("drains oldest backorder first when stock cannot cover both", func(t *testing.T) {
		f := newFixture(t)
		_, first := f.seedBackorder(t, decimal.NewFromInt(5), base)
		_, second := f.seedBackorder(t, decimal.NewFromInt(5), base.Add(time.Minute))
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(7))

		coordinator := NewCoordinator()
		provisioned, err := coordinator.FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)
		assert.True(t, provisioned.Equal(decimal.NewFromInt(7)))

		b1, err := f.repos.Backorders().FindByID(f.ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, b1.PendingQuantity.IsZero())
		assert.False(t, b1.IsActive)

		b2, err := f.repos.Backorders().FindByID(f.ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, b2.PendingQuantity.Equal(decimal.NewFromInt(3)))
		assert.True(t, b2.IsActive)

		drained, err := f.repos.Lots().FindByID(f.ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, drained.Quantity.IsZero())
		assert.False(t, drained.IsActive)

		// placeholder recovers from -10 to -3
		assert.True(t, f.placeholderQty(t).Equal(decimal.NewFromInt(-3)))
	})

	t.Run("stops once all backorders are exhausted", func(t *testing.T) {
		f := newFixture(t)
		f.seedBackorder(t, decimal.NewFromInt(4), base)
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(10))

		provisioned, err := NewCoordinator().FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)
		assert.True(t, provisioned.Equal(decimal.NewFromInt(4)))

		remaining, err := f.repos.Lots().FindByID(f.ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, remaining.Quantity.Equal(decimal.NewFromInt(6)))

		// placeholder settled at zero and retired
		placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		assert.True(t, placeholder.Quantity.IsZero())
		assert.False(t, placeholder.IsActive)
	})

	t.Run("returns zero when no backorders are open", func(t *testing.T) {
		f := newFixture(t)
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(10))

		provisioned, err := NewCoordinator().FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)
		assert.True(t, provisioned.IsZero())
	})

	t.Run("records paired audit rows for each drain", func(t *testing.T) {
		f := newFixture(t)
		_, backorder := f.seedBackorder(t, decimal.NewFromInt(3), base)
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(3))

		_, err := NewCoordinator().FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)

		records, err := f.repos.InventoryTransactions().FindByReference(f.ctx, backorder.ID)
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, record := range records {
			assert.Equal(t, inventory.TransactionTypeBackorderFulfillment, record.TransactionType)
		}
	})

	t.Run("updates the demand line's deferred portion and primary lot", func(t *testing.T) {
		f := newFixture(t)
		item, _ := f.seedBackorder(t, decimal.NewFromInt(5), base)
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(2))

		_, err := NewCoordinator().FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)

		updated, err := f.repos.SaleItems().FindByID(f.ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, updated.BackorderQuantity.Equal(decimal.NewFromInt(3)))
		assert.True(t, updated.HasBackorder)
		require.NotNil(t, updated.LotID)
		assert.Equal(t, lot.ID, *updated.LotID)
	})

	t.Run("rejects placeholder lots as a fulfillment source", func(t *testing.T) {
		f := newFixture(t)
		f.seedBackorder(t, decimal.NewFromInt(2), base)
		placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)

		_, err = NewCoordinator().FulfillBackorders(f.ctx, f.repos, placeholder.ID, f.operatorID)
		assert.Error(t, err)
	})
}

func TestCoordinator_RevertFulfillment(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("round trip restores the oversold state exactly", func(t *testing.T) {
		f := newFixture(t)
		item, backorder := f.seedBackorder(t, decimal.NewFromInt(5), base)
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(5))

		coordinator := NewCoordinator()
		provisioned, err := coordinator.FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)
		require.True(t, provisioned.Equal(decimal.NewFromInt(5)))

		reverted, err := coordinator.RevertFulfillment(f.ctx, f.repos, lot.ID, decimal.NewFromInt(5), f.operatorID)
		require.NoError(t, err)
		assert.True(t, reverted.Equal(decimal.NewFromInt(5)))

		restored, err := f.repos.Lots().FindByID(f.ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, restored.Quantity.Equal(decimal.NewFromInt(5)))
		assert.True(t, restored.IsActive)

		assert.True(t, f.placeholderQty(t).Equal(decimal.NewFromInt(-5)))

		reopened, err := f.repos.Backorders().FindByID(f.ctx, backorder.ID)
		require.NoError(t, err)
		assert.True(t, reopened.IsActive)
		assert.True(t, reopened.PendingQuantity.Equal(decimal.NewFromInt(5)))

		line, err := f.repos.SaleItems().FindByID(f.ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, line.BackorderQuantity.Equal(decimal.NewFromInt(5)))
	})

	t.Run("walks allocations most recent first", func(t *testing.T) {
		f := newFixture(t)
		itemOld, _ := f.seedBackorder(t, decimal.NewFromInt(4), base)
		itemNew, _ := f.seedBackorder(t, decimal.NewFromInt(4), base.Add(time.Minute))
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(8))

		coordinator := NewCoordinator()
		_, err := coordinator.FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)

		// partial revert must hit the most recent fulfillment (itemNew) only
		reverted, err := coordinator.RevertFulfillment(f.ctx, f.repos, lot.ID, decimal.NewFromInt(3), f.operatorID)
		require.NoError(t, err)
		require.True(t, reverted.Equal(decimal.NewFromInt(3)))

		newLine, err := f.repos.SaleItems().FindByID(f.ctx, itemNew.ID)
		require.NoError(t, err)
		assert.True(t, newLine.BackorderQuantity.Equal(decimal.NewFromInt(3)))

		oldLine, err := f.repos.SaleItems().FindByID(f.ctx, itemOld.ID)
		require.NoError(t, err)
		assert.True(t, oldLine.BackorderQuantity.IsZero())
	})

	t.Run("reverts at most what is allocated", func(t *testing.T) {
		f := newFixture(t)
		f.seedBackorder(t, decimal.NewFromInt(2), base)
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(2))

		coordinator := NewCoordinator()
		_, err := coordinator.FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)

		reverted, err := coordinator.RevertFulfillment(f.ctx, f.repos, lot.ID, decimal.NewFromInt(10), f.operatorID)
		require.NoError(t, err)
		assert.True(t, reverted.Equal(decimal.NewFromInt(2)))
	})

	t.Run("returns zero when the lot has no active allocations", func(t *testing.T) {
		f := newFixture(t)
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(5))

		reverted, err := NewCoordinator().RevertFulfillment(f.ctx, f.repos, lot.ID, decimal.NewFromInt(1), f.operatorID)
		require.NoError(t, err)
		assert.True(t, reverted.IsZero())
	})
}

func TestCoordinator_OrderingStrategy(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("largest pending first overrides creation order", func(t *testing.T) {
		f := newFixture(t)
		_, small := f.seedBackorder(t, decimal.NewFromInt(2), base)
		_, large := f.seedBackorder(t, decimal.NewFromInt(6), base.Add(time.Minute))
		lot := f.seedLot(t, "LOT-A", decimal.NewFromInt(6))

		coordinator := NewCoordinatorWithOrdering(sales.LargestPendingFirst{})
		_, err := coordinator.FulfillBackorders(f.ctx, f.repos, lot.ID, f.operatorID)
		require.NoError(t, err)

		drainedLarge, err := f.repos.Backorders().FindByID(f.ctx, large.ID)
		require.NoError(t, err)
		assert.True(t, drainedLarge.PendingQuantity.IsZero())

		untouched, err := f.repos.Backorders().FindByID(f.ctx, small.ID)
		require.NoError(t, err)
		assert.True(t, untouched.PendingQuantity.Equal(decimal.NewFromInt(2)))
	})
}
