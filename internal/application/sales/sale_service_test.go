package sales

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

type saleFixture struct {
	repos      *scope.InMemoryRepositories
	service    *SaleService
	ctx        context.Context
	productID  uuid.UUID
	storeID    uuid.UUID
	customerID uuid.UUID
	operatorID uuid.UUID
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	repos := scope.NewInMemoryRepositories()
	f := &saleFixture{
		repos:      repos,
		service:    NewSaleService(scope.NewNoOpTransactionScope(repos)),
		ctx:        context.Background(),
		storeID:    uuid.New(),
		customerID: uuid.New(),
		operatorID: uuid.New(),
	}
	product, err := catalog.NewProduct("Ibuprofen 200mg", "IBU-200")
	require.NoError(t, err)
	require.NoError(t, repos.Products().Save(f.ctx, product))
	f.productID = product.ID
	return f
}

func (f *saleFixture) seedLot(t *testing.T, lotNumber string, qty int64, expiry *time.Time) *inventory.InventoryLot {
	t.Helper()
	lot, err := ledger.CreateOrIncrementLot(f.ctx, f.repos, ledger.ReceiptInput{
		ProductID: f.productID,
		StoreID:   f.storeID,
		LotNumber: lotNumber,
		Quantity:  decimal.NewFromInt(qty),
		Dates:     inventory.LotDates{ExpiryDate: expiry},
		Movement: ledger.Movement{
			Type:       inventory.TransactionTypePurchase,
			OperatorID: f.operatorID,
		},
	})
	require.NoError(t, err)
	return lot
}

func (f *saleFixture) productOnHand(t *testing.T) decimal.Decimal {
	t.Helper()
	product, err := f.repos.Products().FindByID(f.ctx, f.productID)
	require.NoError(t, err)
	return product.QuantityOnHand
}

func datePtr(t time.Time) *time.Time { return &t }

func TestSaleService_CreateSale(t *testing.T) {
	near := datePtr(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	far := datePtr(time.Date(2027, 10, 1, 0, 0, 0, 0, time.UTC))

	t.Run("allocates soonest expiring lot first", func(t *testing.T) {
		f := newSaleFixture(t)
		farLot := f.seedLot(t, "LOT-FAR", 10, far)
		nearLot := f.seedLot(t, "LOT-NEAR", 10, near)

		result, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-001",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(12),
				UnitPrice: decimal.NewFromInt(3),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.Len(t, result.Lines, 1)
		assert.True(t, result.Lines[0].Allocated.Equal(decimal.NewFromInt(12)))
		assert.True(t, result.Lines[0].Backordered.IsZero())

		emptied, err := f.repos.Lots().FindByID(f.ctx, nearLot.ID)
		require.NoError(t, err)
		assert.True(t, emptied.Quantity.IsZero())

		partial, err := f.repos.Lots().FindByID(f.ctx, farLot.ID)
		require.NoError(t, err)
		assert.True(t, partial.Quantity.Equal(decimal.NewFromInt(8)))

		assert.True(t, f.productOnHand(t).Equal(decimal.NewFromInt(8)))
	})

	t.Run("commits oversold demand as a backorder instead of failing", func(t *testing.T) {
		f := newSaleFixture(t)
		f.seedLot(t, "LOT-A", 4, nil)

		result, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-002",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(10),
				UnitPrice: decimal.NewFromInt(3),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.True(t, result.Lines[0].Allocated.Equal(decimal.NewFromInt(4)))
		assert.True(t, result.Lines[0].Backordered.Equal(decimal.NewFromInt(6)))

		placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		assert.True(t, placeholder.Quantity.Equal(decimal.NewFromInt(-6)))

		backorders, err := f.repos.Backorders().FindOpenByProductAndStore(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		require.Len(t, backorders, 1)
		assert.True(t, backorders[0].PendingQuantity.Equal(decimal.NewFromInt(6)))

		// the full requested quantity left the aggregate
		assert.True(t, f.productOnHand(t).Equal(decimal.NewFromInt(-6)))
	})

	t.Run("sale with no stock at all books everything on the placeholder", func(t *testing.T) {
		f := newSaleFixture(t)

		result, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-003",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(5),
				UnitPrice: decimal.NewFromInt(2),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.True(t, result.Lines[0].Allocated.IsZero())
		assert.True(t, result.Lines[0].Backordered.Equal(decimal.NewFromInt(5)))

		placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		item, err := f.repos.SaleItems().FindByID(f.ctx, result.Lines[0].SaleItemID)
		require.NoError(t, err)
		require.NotNil(t, item.LotID)
		assert.Equal(t, placeholder.ID, *item.LotID)
	})

	t.Run("rejects duplicate sale numbers", func(t *testing.T) {
		f := newSaleFixture(t)
		f.seedLot(t, "LOT-A", 10, nil)
		req := CreateSaleRequest{
			SaleNumber: "S-004",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(1),
				UnitPrice: decimal.NewFromInt(1),
			}},
			OperatorID: f.operatorID,
		}
		_, err := f.service.CreateSale(f.ctx, req)
		require.NoError(t, err)
		_, err = f.service.CreateSale(f.ctx, req)
		assert.Error(t, err)
	})

	t.Run("credit sale opens a note covering every line", func(t *testing.T) {
		f := newSaleFixture(t)
		f.seedLot(t, "LOT-A", 10, nil)

		result, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-005",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			OnCredit:   true,
			NoteNumber: "PN-005",
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(8),
				UnitPrice: decimal.NewFromInt(5),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.NotNil(t, result.NoteID)

		note, err := f.repos.Notes().FindByID(f.ctx, *result.NoteID)
		require.NoError(t, err)
		assert.True(t, note.IsActive)
		assert.True(t, note.OutstandingQuantity().Equal(decimal.NewFromInt(8)))
		assert.True(t, note.TotalAmount.Equal(decimal.NewFromInt(40)))
	})
}

func TestSaleService_DeleteSale(t *testing.T) {
	t.Run("restores lots and withdraws backorders exactly", func(t *testing.T) {
		f := newSaleFixture(t)
		lot := f.seedLot(t, "LOT-A", 4, nil)

		result, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-010",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(10),
				UnitPrice: decimal.NewFromInt(3),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		require.NoError(t, f.service.DeleteSale(f.ctx, result.Sale.ID, f.operatorID))

		restored, err := f.repos.Lots().FindByID(f.ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, restored.Quantity.Equal(decimal.NewFromInt(4)))
		assert.True(t, restored.IsActive)

		placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		assert.True(t, placeholder.Quantity.IsZero())
		assert.False(t, placeholder.IsActive)

		backorders, err := f.repos.Backorders().FindOpenByProductAndStore(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		assert.Empty(t, backorders)

		assert.True(t, f.productOnHand(t).Equal(decimal.NewFromInt(4)))

		sale, err := f.repos.Sales().FindByID(f.ctx, result.Sale.ID)
		require.NoError(t, err)
		assert.Equal(t, sales.SaleStatusCancelled, sale.Status)
	})

	t.Run("reversal audit rows reference the sale", func(t *testing.T) {
		f := newSaleFixture(t)
		f.seedLot(t, "LOT-A", 10, nil)

		result, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-011",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(3),
				UnitPrice: decimal.NewFromInt(1),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.NoError(t, f.service.DeleteSale(f.ctx, result.Sale.ID, f.operatorID))

		records, err := f.repos.InventoryTransactions().FindByReference(f.ctx, result.Sale.ID)
		require.NoError(t, err)
		var reversals int
		for _, record := range records {
			if record.TransactionType == inventory.TransactionTypeSaleReversal {
				reversals++
			}
		}
		assert.Equal(t, 1, reversals)
	})

	t.Run("cancelling twice fails", func(t *testing.T) {
		f := newSaleFixture(t)
		f.seedLot(t, "LOT-A", 5, nil)
		result, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-012",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: decimal.NewFromInt(1),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.NoError(t, f.service.DeleteSale(f.ctx, result.Sale.ID, f.operatorID))
		assert.Error(t, f.service.DeleteSale(f.ctx, result.Sale.ID, f.operatorID))
	})
}

func TestSaleService_UpdateSale(t *testing.T) {
	t.Run("reallocates with the new quantity", func(t *testing.T) {
		f := newSaleFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)

		created, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-020",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(8),
				UnitPrice: decimal.NewFromInt(2),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		updated, err := f.service.UpdateSale(f.ctx, UpdateSaleRequest{
			SaleID: created.Sale.ID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(3),
				UnitPrice: decimal.NewFromInt(2),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.True(t, updated.Lines[0].Allocated.Equal(decimal.NewFromInt(3)))

		remaining, err := f.repos.Lots().FindByID(f.ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, remaining.Quantity.Equal(decimal.NewFromInt(7)))
		assert.True(t, f.productOnHand(t).Equal(decimal.NewFromInt(7)))
	})

	t.Run("raising demand past stock defers the difference", func(t *testing.T) {
		f := newSaleFixture(t)
		f.seedLot(t, "LOT-A", 5, nil)

		created, err := f.service.CreateSale(f.ctx, CreateSaleRequest{
			SaleNumber: "S-021",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(2),
				UnitPrice: decimal.NewFromInt(2),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		updated, err := f.service.UpdateSale(f.ctx, UpdateSaleRequest{
			SaleID: created.Sale.ID,
			Items: []SaleLineInput{{
				ProductID: f.productID,
				Quantity:  decimal.NewFromInt(9),
				UnitPrice: decimal.NewFromInt(2),
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.True(t, updated.Lines[0].Allocated.Equal(decimal.NewFromInt(5)))
		assert.True(t, updated.Lines[0].Backordered.Equal(decimal.NewFromInt(4)))

		placeholder, err := f.repos.Lots().FindPlaceholder(f.ctx, f.productID, f.storeID)
		require.NoError(t, err)
		assert.True(t, placeholder.Quantity.Equal(decimal.NewFromInt(-4)))
	})
}
