package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/backend/internal/application/ledger"
	salesapp "github.com/stockops/backend/internal/application/sales"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/domain/delivery"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

type waybillFixture struct {
	repos      *scope.InMemoryRepositories
	service    *WaybillService
	sales      *salesapp.SaleService
	ctx        context.Context
	productID  uuid.UUID
	storeID    uuid.UUID
	customerID uuid.UUID
	operatorID uuid.UUID
}

func newWaybillFixture(t *testing.T) *waybillFixture {
	t.Helper()
	repos := scope.NewInMemoryRepositories()
	txScope := scope.NewNoOpTransactionScope(repos)
	f := &waybillFixture{
		repos:      repos,
		service:    NewWaybillService(txScope),
		sales:      salesapp.NewSaleService(txScope),
		ctx:        context.Background(),
		storeID:    uuid.New(),
		customerID: uuid.New(),
		operatorID: uuid.New(),
	}
	product, err := catalog.NewProduct("Amoxicillin 500mg", "AMX-500")
	require.NoError(t, err)
	require.NoError(t, repos.Products().Save(f.ctx, product))
	f.productID = product.ID
	return f
}

func (f *waybillFixture) seedLot(t *testing.T, lotNumber string, qty int64, expiry *time.Time) *inventory.InventoryLot {
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

func (f *waybillFixture) makeSale(t *testing.T, saleNumber string, qty int64, onCredit bool) *salesapp.SaleResult {
	t.Helper()
	req := salesapp.CreateSaleRequest{
		SaleNumber: saleNumber,
		CustomerID: f.customerID,
		StoreID:    f.storeID,
		Items: []salesapp.SaleLineInput{{
			ProductID: f.productID,
			Quantity:  decimal.NewFromInt(qty),
			UnitPrice: decimal.NewFromInt(5),
		}},
		OperatorID: f.operatorID,
	}
	if onCredit {
		req.OnCredit = true
		req.NoteNumber = "PN-" + saleNumber
	}
	result, err := f.sales.CreateSale(f.ctx, req)
	require.NoError(t, err)
	return result
}

func (f *waybillFixture) lotQuantity(t *testing.T, lotID uuid.UUID) decimal.Decimal {
	t.Helper()
	lot, err := f.repos.Lots().FindByID(f.ctx, lotID)
	require.NoError(t, err)
	return lot.Quantity
}

func (f *waybillFixture) activeHold(t *testing.T, saleItemID uuid.UUID) decimal.Decimal {
	t.Helper()
	holds, err := f.repos.Allocations().FindActiveBySaleItem(f.ctx, saleItemID)
	require.NoError(t, err)
	total := decimal.Zero
	for i := range holds {
		total = total.Add(holds[i].QuantityTaken)
	}
	return total
}

func (f *waybillFixture) productOnHand(t *testing.T) decimal.Decimal {
	t.Helper()
	product, err := f.repos.Products().FindByID(f.ctx, f.productID)
	require.NoError(t, err)
	return product.QuantityOnHand
}

func expiryPtr(t time.Time) *time.Time { return &t }

func TestWaybillService_ProposeWaybill(t *testing.T) {
	near := expiryPtr(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	far := expiryPtr(time.Date(2027, 11, 1, 0, 0, 0, 0, time.UTC))

	t.Run("proposes FEFO including the lots the sale consumed", func(t *testing.T) {
		f := newWaybillFixture(t)
		farLot := f.seedLot(t, "LOT-FAR", 10, far)
		nearLot := f.seedLot(t, "LOT-NEAR", 10, near)
		sale := f.makeSale(t, "S-100", 12, false)

		proposal, err := f.service.ProposeWaybill(f.ctx, sale.Sale.ID)
		require.NoError(t, err)
		require.Len(t, proposal.Lines, 1)

		line := proposal.Lines[0]
		assert.True(t, line.Deliverable.Equal(decimal.NewFromInt(12)))
		assert.True(t, line.Shortfall.IsZero())
		require.Len(t, line.Takes, 2)
		assert.Equal(t, nearLot.ID, line.Takes[0].LotID)
		assert.True(t, line.Takes[0].Quantity.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, farLot.ID, line.Takes[1].LotID)
		assert.True(t, line.Takes[1].Quantity.Equal(decimal.NewFromInt(2)))
	})

	t.Run("backordered quantity is not deliverable", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 4, nil)
		sale := f.makeSale(t, "S-101", 10, false)

		proposal, err := f.service.ProposeWaybill(f.ctx, sale.Sale.ID)
		require.NoError(t, err)
		require.Len(t, proposal.Lines, 1)

		line := proposal.Lines[0]
		assert.True(t, line.Deliverable.Equal(decimal.NewFromInt(4)))
		require.Len(t, line.Takes, 1)
		assert.Equal(t, lot.ID, line.Takes[0].LotID)
		assert.True(t, line.Takes[0].Quantity.Equal(decimal.NewFromInt(4)))
	})

	t.Run("fully delivered sale proposes nothing", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 6, nil)
		sale := f.makeSale(t, "S-102", 6, false)

		_, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-102",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(6),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(6)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		proposal, err := f.service.ProposeWaybill(f.ctx, sale.Sale.ID)
		require.NoError(t, err)
		assert.Empty(t, proposal.Lines)
	})
}

func TestWaybillService_CreateWaybill(t *testing.T) {
	t.Run("delivering from the sale's own lots moves no stock", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-110", 10, false)
		require.True(t, f.lotQuantity(t, lot.ID).IsZero())

		wb, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-110",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(10),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(10)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.Equal(t, delivery.WaybillStatusCommitted, wb.Status)

		assert.True(t, f.lotQuantity(t, lot.ID).IsZero())
		assert.True(t, f.productOnHand(t).IsZero())

		// the hold moved from the sale ledger to the waybill ledger
		assert.True(t, f.activeHold(t, sale.Lines[0].SaleItemID).IsZero())
		require.Len(t, wb.Items, 1)
		require.Len(t, wb.Items[0].Allocations, 1)
		assert.True(t, wb.Items[0].Allocations[0].IsActive)
		assert.True(t, wb.Items[0].Allocations[0].QuantityToTake.Equal(decimal.NewFromInt(10)))
	})

	t.Run("re-pointing the delivery moves consumption between lots", func(t *testing.T) {
		near := expiryPtr(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
		far := expiryPtr(time.Date(2027, 11, 1, 0, 0, 0, 0, time.UTC))
		f := newWaybillFixture(t)
		lotA := f.seedLot(t, "LOT-A", 5, near)
		lotB := f.seedLot(t, "LOT-B", 5, far)
		sale := f.makeSale(t, "S-111", 5, false)
		require.True(t, f.lotQuantity(t, lotA.ID).IsZero())
		require.True(t, f.lotQuantity(t, lotB.ID).Equal(decimal.NewFromInt(5)))

		_, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-111",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(5),
				Takes:            []TakeInput{{LotID: lotB.ID, Quantity: decimal.NewFromInt(5)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		assert.True(t, f.lotQuantity(t, lotA.ID).Equal(decimal.NewFromInt(5)))
		assert.True(t, f.lotQuantity(t, lotB.ID).IsZero())
		assert.True(t, f.productOnHand(t).Equal(decimal.NewFromInt(5)))
	})

	t.Run("logs the release and the take against the waybill", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 8, nil)
		sale := f.makeSale(t, "S-112", 8, false)

		wb, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-112",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(8),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(8)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		records, err := f.repos.InventoryTransactions().FindByReference(f.ctx, wb.ID)
		require.NoError(t, err)
		var releases, takes int
		for _, record := range records {
			switch record.TransactionType {
			case inventory.TransactionTypeSaleReversal:
				releases++
			case inventory.TransactionTypeSale:
				takes++
			}
		}
		assert.Equal(t, 1, releases)
		assert.Equal(t, 1, takes)
	})

	t.Run("under-allocation is rejected", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-113", 10, false)

		_, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-113",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(10),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(8)}},
			}},
			OperatorID: f.operatorID,
		})
		assert.True(t, errors.Is(err, shared.ErrAllocationMismatch))
	})

	t.Run("asking a lot for more than it has is rejected", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 4, nil)
		sale := f.makeSale(t, "S-114", 4, false)

		_, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-114",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(4),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(10)}},
			}},
			OperatorID: f.operatorID,
		})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	t.Run("exhausted lots outside the sale's hold are flagged stale", func(t *testing.T) {
		f := newWaybillFixture(t)
		drained := f.seedLot(t, "LOT-OLD", 5, nil)
		f.makeSale(t, "S-OTHER", 5, false)
		require.True(t, f.lotQuantity(t, drained.ID).IsZero())

		f.seedLot(t, "LOT-A", 4, nil)
		sale := f.makeSale(t, "S-115", 4, false)

		_, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-115",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(4),
				Takes:            []TakeInput{{LotID: drained.ID, Quantity: decimal.NewFromInt(4)}},
			}},
			OperatorID: f.operatorID,
		})
		assert.True(t, errors.Is(err, shared.ErrStaleAllocation))
	})

	t.Run("supplying the full credit sale closes the note", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-116", 10, true)
		require.NotNil(t, sale.NoteID)

		_, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-116",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(10),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(10)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		note, err := f.repos.Notes().FindByID(f.ctx, *sale.NoteID)
		require.NoError(t, err)
		assert.Equal(t, credit.NoteStatusFulfilled, note.Status)
		assert.False(t, note.IsActive)
		assert.True(t, note.OutstandingQuantity().IsZero())
	})

	t.Run("rejects duplicate waybill numbers", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-117", 10, false)

		req := CreateWaybillRequest{
			WaybillNumber: "WB-117",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(5),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(5)}},
			}},
			OperatorID: f.operatorID,
		}
		_, err := f.service.CreateWaybill(f.ctx, req)
		require.NoError(t, err)
		_, err = f.service.CreateWaybill(f.ctx, req)
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})
}

func TestWaybillService_UpdateWaybill(t *testing.T) {
	t.Run("edit reconciles the note with the net delta only", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-120", 10, true)

		wb, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-120",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(6),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(6)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		note, err := f.repos.Notes().FindByID(f.ctx, *sale.NoteID)
		require.NoError(t, err)
		require.True(t, note.OutstandingQuantity().Equal(decimal.NewFromInt(4)))

		_, err = f.service.UpdateWaybill(f.ctx, UpdateWaybillRequest{
			WaybillID: wb.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(4),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(4)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		note, err = f.repos.Notes().FindByID(f.ctx, *sale.NoteID)
		require.NoError(t, err)
		assert.True(t, note.IsActive)
		assert.True(t, note.OutstandingQuantity().Equal(decimal.NewFromInt(6)))

		// stock never moved: the sale still holds the undelivered remainder
		assert.True(t, f.lotQuantity(t, lot.ID).IsZero())
		assert.True(t, f.productOnHand(t).IsZero())
		assert.True(t, f.activeHold(t, sale.Lines[0].SaleItemID).Equal(decimal.NewFromInt(6)))
	})

	t.Run("editing down a fulfilled note reopens it", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-121", 10, true)

		wb, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-121",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(10),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(10)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		note, err := f.repos.Notes().FindByID(f.ctx, *sale.NoteID)
		require.NoError(t, err)
		require.Equal(t, credit.NoteStatusFulfilled, note.Status)

		_, err = f.service.UpdateWaybill(f.ctx, UpdateWaybillRequest{
			WaybillID: wb.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(7),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(7)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		note, err = f.repos.Notes().FindByID(f.ctx, *sale.NoteID)
		require.NoError(t, err)
		assert.Equal(t, credit.NoteStatusOutstanding, note.Status)
		assert.True(t, note.IsActive)
		assert.True(t, note.OutstandingQuantity().Equal(decimal.NewFromInt(3)))
	})

	t.Run("rejects an edit that omits an existing line", func(t *testing.T) {
		f := newWaybillFixture(t)
		lotA := f.seedLot(t, "LOT-A", 10, nil)

		other, err := catalog.NewProduct("Ibuprofen 200mg", "IBU-200")
		require.NoError(t, err)
		require.NoError(t, f.repos.Products().Save(f.ctx, other))
		lotB, err := ledger.CreateOrIncrementLot(f.ctx, f.repos, ledger.ReceiptInput{
			ProductID: other.ID,
			StoreID:   f.storeID,
			LotNumber: "LOT-B",
			Quantity:  decimal.NewFromInt(10),
			Movement: ledger.Movement{
				Type:       inventory.TransactionTypePurchase,
				OperatorID: f.operatorID,
			},
		})
		require.NoError(t, err)

		sale, err := f.sales.CreateSale(f.ctx, salesapp.CreateSaleRequest{
			SaleNumber: "S-123",
			CustomerID: f.customerID,
			StoreID:    f.storeID,
			Items: []salesapp.SaleLineInput{
				{ProductID: f.productID, Quantity: decimal.NewFromInt(6), UnitPrice: decimal.NewFromInt(5)},
				{ProductID: other.ID, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(3)},
			},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		wb, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-123",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{
				{
					SaleItemID:       sale.Lines[0].SaleItemID,
					QuantitySupplied: decimal.NewFromInt(6),
					Takes:            []TakeInput{{LotID: lotA.ID, Quantity: decimal.NewFromInt(6)}},
				},
				{
					SaleItemID:       sale.Lines[1].SaleItemID,
					QuantitySupplied: decimal.NewFromInt(5),
					Takes:            []TakeInput{{LotID: lotB.ID, Quantity: decimal.NewFromInt(5)}},
				},
			},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)

		_, err = f.service.UpdateWaybill(f.ctx, UpdateWaybillRequest{
			WaybillID: wb.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(4),
				Takes:            []TakeInput{{LotID: lotA.ID, Quantity: decimal.NewFromInt(4)}},
			}},
			OperatorID: f.operatorID,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)

		// the omitted line's allocation trail must still account for its
		// supplied quantity
		unchanged, err := f.repos.Waybills().FindByID(f.ctx, wb.ID)
		require.NoError(t, err)
		for i := range unchanged.Items {
			item := unchanged.Items[i]
			active := decimal.Zero
			for j := range item.Allocations {
				if item.Allocations[j].IsActive {
					active = active.Add(item.Allocations[j].QuantityToTake)
				}
			}
			assert.True(t, active.Equal(item.QuantitySupplied),
				"item %s supplied %s but active allocations cover %s",
				item.ID, item.QuantitySupplied, active)
		}
	})

	t.Run("only committed waybills can be edited", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-122", 10, false)

		wb, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-122",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(10),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(10)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.NoError(t, f.service.CancelWaybill(f.ctx, wb.ID, f.operatorID))

		_, err = f.service.UpdateWaybill(f.ctx, UpdateWaybillRequest{
			WaybillID: wb.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(5),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(5)}},
			}},
			OperatorID: f.operatorID,
		})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestWaybillService_CancelWaybill(t *testing.T) {
	t.Run("hands the delivery back to the sale without moving stock", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 10, nil)
		sale := f.makeSale(t, "S-130", 10, true)

		wb, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-130",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(10),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(10)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.True(t, f.activeHold(t, sale.Lines[0].SaleItemID).IsZero())

		require.NoError(t, f.service.CancelWaybill(f.ctx, wb.ID, f.operatorID))

		cancelled, err := f.repos.Waybills().FindByID(f.ctx, wb.ID)
		require.NoError(t, err)
		assert.Equal(t, delivery.WaybillStatusCancelled, cancelled.Status)
		for i := range cancelled.Items {
			assert.True(t, cancelled.Items[i].QuantitySupplied.IsZero())
			for j := range cancelled.Items[i].Allocations {
				assert.False(t, cancelled.Items[i].Allocations[j].IsActive)
			}
		}

		// the goods are still sold: quantities stay where they were
		assert.True(t, f.lotQuantity(t, lot.ID).IsZero())
		assert.True(t, f.productOnHand(t).IsZero())
		assert.True(t, f.activeHold(t, sale.Lines[0].SaleItemID).Equal(decimal.NewFromInt(10)))

		note, err := f.repos.Notes().FindByID(f.ctx, *sale.NoteID)
		require.NoError(t, err)
		assert.True(t, note.IsActive)
		assert.True(t, note.OutstandingQuantity().Equal(decimal.NewFromInt(10)))
	})

	t.Run("a cancelled delivery can be redone", func(t *testing.T) {
		f := newWaybillFixture(t)
		lot := f.seedLot(t, "LOT-A", 6, nil)
		sale := f.makeSale(t, "S-131", 6, false)

		first, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-131A",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(6),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(6)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		require.NoError(t, f.service.CancelWaybill(f.ctx, first.ID, f.operatorID))

		second, err := f.service.CreateWaybill(f.ctx, CreateWaybillRequest{
			WaybillNumber: "WB-131B",
			SaleID:        sale.Sale.ID,
			Lines: []WaybillLineInput{{
				SaleItemID:       sale.Lines[0].SaleItemID,
				QuantitySupplied: decimal.NewFromInt(6),
				Takes:            []TakeInput{{LotID: lot.ID, Quantity: decimal.NewFromInt(6)}},
			}},
			OperatorID: f.operatorID,
		})
		require.NoError(t, err)
		assert.Equal(t, delivery.WaybillStatusCommitted, second.Status)
		assert.True(t, f.lotQuantity(t, lot.ID).IsZero())
	})
}
