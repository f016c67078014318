// Package delivery implements the interactive waybill allocator: proposing
// FEFO allocations for a sale, validating the operator's edits against live
// stock, committing the delivery, and reconciling the sale's promissory
// note, including the net-delta reconciliation of waybill edits.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/application/ledger"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/domain/delivery"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
	"github.com/stockops/backend/internal/domain/shared"
)

// WaybillService handles delivery workflows
type WaybillService struct {
	txScope scope.TransactionScope
}

// NewWaybillService creates a new WaybillService
func NewWaybillService(txScope scope.TransactionScope) *WaybillService {
	return &WaybillService{txScope: txScope}
}

// ProposeWaybill computes the FEFO opening allocation for a sale: one line
// per demand line that still has deliverable (allocated, undelivered)
// quantity. The operator edits the proposal before committing it; nothing
// is locked or mutated here.
func (s *WaybillService) ProposeWaybill(ctx context.Context, saleID uuid.UUID) (*WaybillProposal, error) {
	var proposal *WaybillProposal
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		sale, err := repos.Sales().FindByID(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status != sales.SaleStatusCommitted {
			return shared.ErrInvalidState
		}

		items, err := repos.SaleItems().FindBySale(ctx, saleID)
		if err != nil {
			return err
		}

		lines := make([]ProposalLine, 0, len(items))
		for i := range items {
			item := &items[i]
			delivered, err := s.deliveredSoFar(ctx, repos, saleID, item.ID, uuid.Nil)
			if err != nil {
				return err
			}
			deliverable := item.Quantity.Sub(item.BackorderQuantity).Sub(delivered)
			if !deliverable.GreaterThan(decimal.Zero) {
				continue
			}

			candidates, err := s.candidateViews(ctx, repos, item)
			if err != nil {
				return err
			}
			takes, shortfall, err := delivery.ProposeAllocation(deliverable, candidates)
			if err != nil {
				return err
			}
			lines = append(lines, ProposalLine{
				SaleItemID:  item.ID,
				ProductID:   item.ProductID,
				Deliverable: deliverable,
				Takes:       takes,
				Shortfall:   shortfall,
			})
		}
		proposal = &WaybillProposal{SaleID: saleID, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// candidateViews projects the lots a delivery line may draw from. The sale
// already consumed its allocated stock at commit, so a lot's effective
// availability for this line is its live available quantity plus whatever
// the line's own active allocations hold on it. Lots the sale emptied
// entirely are added back as candidates for their held quantity.
func (s *WaybillService) candidateViews(ctx context.Context, repos scope.Repositories, item *sales.SaleItem) ([]inventory.LotView, error) {
	holds, err := repos.Allocations().FindActiveBySaleItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	held := make(map[uuid.UUID]decimal.Decimal, len(holds))
	for i := range holds {
		if holds[i].LotID != uuid.Nil {
			held[holds[i].LotID] = held[holds[i].LotID].Add(holds[i].QuantityTaken)
		}
	}

	lots, err := repos.Lots().FindSellable(ctx, item.ProductID, item.StoreID)
	if err != nil {
		return nil, err
	}
	views := make([]inventory.LotView, 0, len(lots)+len(held))
	seen := make(map[uuid.UUID]bool, len(lots))
	for i := range lots {
		view := inventory.ViewOfLot(&lots[i])
		view.Available = view.Available.Add(held[lots[i].ID])
		views = append(views, view)
		seen[lots[i].ID] = true
	}
	for lotID, qty := range held {
		if seen[lotID] {
			continue
		}
		lot, err := repos.Lots().FindByID(ctx, lotID)
		if err != nil {
			return nil, err
		}
		if lot.Kind != inventory.LotKindPhysical {
			continue
		}
		view := inventory.ViewOfLot(lot)
		view.Available = qty
		views = append(views, view)
	}
	return views, nil
}

// CreateWaybill commits an operator-confirmed delivery. The sale consumed
// its stock at commit, so a delivery does not consume again: for each line
// the sale's allocation hold is released back to its lots first, then the
// operator's takes are re-validated against the now-locked lots and
// decremented per the ledger contract. Picking the same lots the sale chose
// nets to no quantity change; re-pointing at different lots moves the
// consumption. Stale lots are collected and rejected with
// ErrStaleAllocation, over-asks with ErrInsufficientStock, and a take total
// that is not exactly the supplied quantity with ErrAllocationMismatch. On
// success the sale's open promissory note is reduced by the supplied
// quantities, all in one transaction.
func (s *WaybillService) CreateWaybill(ctx context.Context, req CreateWaybillRequest) (*delivery.Waybill, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Waybill must have at least one line")
	}

	var waybill *delivery.Waybill
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		if _, err := repos.Waybills().FindByNumber(ctx, req.WaybillNumber); err == nil {
			return shared.ErrAlreadyExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		sale, err := repos.Sales().FindByID(ctx, req.SaleID)
		if err != nil {
			return err
		}
		if sale.Status != sales.SaleStatusCommitted {
			return shared.ErrInvalidState
		}

		wb, err := delivery.NewWaybill(req.WaybillNumber, sale.ID, sale.StoreID)
		if err != nil {
			return err
		}

		suppliedByProduct := make(map[uuid.UUID]decimal.Decimal)
		for _, line := range req.Lines {
			item, err := s.applyLine(ctx, repos, wb, sale.ID, line, req.OperatorID)
			if err != nil {
				return err
			}
			suppliedByProduct[item.ProductID] = suppliedByProduct[item.ProductID].Add(line.QuantitySupplied)
		}

		if err := wb.Commit(); err != nil {
			return err
		}
		if err := repos.Waybills().Save(ctx, wb); err != nil {
			return err
		}
		if err := s.reconcileNote(ctx, repos, sale.ID, suppliedByProduct); err != nil {
			return err
		}
		waybill = wb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return waybill, nil
}

// applyLine validates one delivery line against live stock and applies its
// lot movement.
func (s *WaybillService) applyLine(ctx context.Context, repos scope.Repositories, wb *delivery.Waybill, saleID uuid.UUID, line WaybillLineInput, operatorID uuid.UUID) (*delivery.WaybillItem, error) {
	saleItem, err := repos.SaleItems().FindByIDForUpdate(ctx, line.SaleItemID)
	if err != nil {
		return nil, err
	}
	if saleItem.SaleID != saleID {
		return nil, shared.NewDomainError("INVALID_SALE_ITEM", "Sale item does not belong to the waybill's sale")
	}

	delivered, err := s.deliveredSoFar(ctx, repos, saleID, saleItem.ID, wb.ID)
	if err != nil {
		return nil, err
	}
	deliverable := saleItem.Quantity.Sub(saleItem.BackorderQuantity).Sub(delivered)
	if !line.QuantitySupplied.GreaterThan(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Supplied quantity must be positive")
	}
	if line.QuantitySupplied.GreaterThan(deliverable) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Supplied quantity exceeds the deliverable balance")
	}

	item, err := wb.AddItem(saleItem.ID, saleItem.ProductID, saleItem.Quantity, delivered, line.QuantitySupplied)
	if err != nil {
		return nil, err
	}

	if err := s.releaseSaleHold(ctx, repos, saleItem.ID, line.QuantitySupplied, operatorID, wb.ID); err != nil {
		return nil, err
	}
	return item, s.applyTakes(ctx, repos, item, line, operatorID)
}

// releaseSaleHold returns qty of the demand line's allocated stock to its
// lots so the delivery takes can consume from live availability without
// counting the sale's consumption twice. The sale's allocation rows shrink
// by exactly the released amount.
func (s *WaybillService) releaseSaleHold(ctx context.Context, repos scope.Repositories, saleItemID uuid.UUID, qty decimal.Decimal, operatorID, waybillID uuid.UUID) error {
	if !qty.GreaterThan(decimal.Zero) {
		return nil
	}
	holds, err := repos.Allocations().FindActiveBySaleItem(ctx, saleItemID)
	if err != nil {
		return err
	}

	movement := ledger.Movement{
		Type:        inventory.TransactionTypeSaleReversal,
		OperatorID:  operatorID,
		ReferenceID: &waybillID,
		Notes:       "Released to delivery allocation",
	}
	remaining := qty
	for i := range holds {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		hold := &holds[i]
		release := decimal.Min(remaining, hold.QuantityTaken)
		lot, err := repos.Lots().FindByIDForUpdate(ctx, hold.LotID)
		if err != nil {
			return err
		}
		if err := ledger.IncrementLot(ctx, repos, lot, release, movement); err != nil {
			return err
		}
		if err := hold.Shrink(release); err != nil {
			return err
		}
		if err := repos.Allocations().Save(ctx, hold); err != nil {
			return err
		}
		remaining = remaining.Sub(release)
	}
	if remaining.GreaterThan(decimal.Zero) {
		return shared.NewDomainError("INVALID_STATE", "Sale item allocations do not cover the supplied quantity")
	}
	return nil
}

// applyTakes validates the operator's takes for one waybill item against
// the locked sellable lots and decrements them.
func (s *WaybillService) applyTakes(ctx context.Context, repos scope.Repositories, item *delivery.WaybillItem, line WaybillLineInput, operatorID uuid.UUID) error {
	lots, err := repos.Lots().FindSellableForUpdate(ctx, item.ProductID, item.StoreID)
	if err != nil {
		return err
	}
	lotsByID := make(map[uuid.UUID]*inventory.InventoryLot, len(lots))
	for i := range lots {
		lotsByID[lots[i].ID] = &lots[i]
	}

	takes := make([]delivery.LotTake, 0, len(line.Takes))
	for _, t := range line.Takes {
		take := delivery.LotTake{LotID: t.LotID, Quantity: t.Quantity}
		if lot, ok := lotsByID[t.LotID]; ok {
			take.LotNumber = lot.LotNumber
		}
		takes = append(takes, take)
	}

	if _, err := delivery.ValidateAllocation(line.QuantitySupplied, takes, lots); err != nil {
		return err
	}

	movement := ledger.Movement{
		Type:        inventory.TransactionTypeSale,
		OperatorID:  operatorID,
		ReferenceID: &item.WaybillID,
	}
	for _, take := range takes {
		lot := lotsByID[take.LotID]
		if err := ledger.DecrementLot(ctx, repos, lot, take.Quantity, movement); err != nil {
			return err
		}
		allocation, err := delivery.NewWaybillLotAllocation(item.ID, lot.ID, lot.LotNumber, take.Quantity)
		if err != nil {
			return err
		}
		item.Allocations = append(item.Allocations, *allocation)
	}
	return nil
}

// UpdateWaybill replaces a committed waybill's lines. The previous lot
// movement is reversed in full, the new takes are validated and applied
// against live stock, and the promissory note is reconciled with the net
// per-product delta, so an edit never double-counts a delivery.
func (s *WaybillService) UpdateWaybill(ctx context.Context, req UpdateWaybillRequest) (*delivery.Waybill, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Waybill must keep at least one line")
	}

	var waybill *delivery.Waybill
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		wb, err := repos.Waybills().FindByID(ctx, req.WaybillID)
		if err != nil {
			return err
		}
		if wb.Status != delivery.WaybillStatusCommitted {
			return shared.ErrInvalidState
		}

		// The reversal below wipes every item's active allocations, so a
		// payload that omits an item would leave its supplied quantity
		// unaccounted for. An update must restate the whole waybill.
		linesBySaleItem := make(map[uuid.UUID]bool, len(req.Lines))
		for _, line := range req.Lines {
			linesBySaleItem[line.SaleItemID] = true
		}
		for i := range wb.Items {
			if !linesBySaleItem[wb.Items[i].SaleItemID] {
				return shared.NewDomainError("INVALID_INPUT", "Waybill update must restate every existing line")
			}
		}

		previous := suppliedQuantities(wb)
		if err := s.reverseMovement(ctx, repos, wb); err != nil {
			return err
		}

		itemsBySaleItem := make(map[uuid.UUID]*delivery.WaybillItem, len(wb.Items))
		for i := range wb.Items {
			itemsBySaleItem[wb.Items[i].SaleItemID] = &wb.Items[i]
		}

		for _, line := range req.Lines {
			item, ok := itemsBySaleItem[line.SaleItemID]
			if !ok {
				return shared.NewDomainError("INVALID_SALE_ITEM", "Waybill has no line for this sale item")
			}
			saleItem, err := repos.SaleItems().FindByIDForUpdate(ctx, line.SaleItemID)
			if err != nil {
				return err
			}
			delivered, err := s.deliveredSoFar(ctx, repos, wb.SaleID, saleItem.ID, wb.ID)
			if err != nil {
				return err
			}
			deliverable := saleItem.Quantity.Sub(saleItem.BackorderQuantity).Sub(delivered)
			if line.QuantitySupplied.GreaterThan(deliverable) {
				return shared.NewDomainError("INVALID_QUANTITY", "Supplied quantity exceeds the deliverable balance")
			}

			item.FulfilledQuantity = delivered
			if err := item.ChangeSuppliedQuantity(line.QuantitySupplied); err != nil {
				return err
			}
			if err := s.releaseSaleHold(ctx, repos, saleItem.ID, line.QuantitySupplied, req.OperatorID, wb.ID); err != nil {
				return err
			}
			if err := s.applyTakes(ctx, repos, item, line, req.OperatorID); err != nil {
				return err
			}
		}

		wb.UpdatedAt = time.Now()
		wb.IncrementVersion()
		if err := repos.Waybills().Save(ctx, wb); err != nil {
			return err
		}

		net := credit.NetSupplied(previous, suppliedQuantities(wb))
		if err := s.reconcileNote(ctx, repos, wb.SaleID, net); err != nil {
			return err
		}
		waybill = wb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return waybill, nil
}

// CancelWaybill reverses a committed waybill. The goods are still sold, so
// no stock returns to the shelves: every take is handed back to the sale's
// allocation ledger and the note's outstanding quantity is restored, ready
// for the replacement delivery.
func (s *WaybillService) CancelWaybill(ctx context.Context, waybillID, operatorID uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		wb, err := repos.Waybills().FindByID(ctx, waybillID)
		if err != nil {
			return err
		}
		if wb.Status != delivery.WaybillStatusCommitted {
			return shared.ErrInvalidState
		}

		previous := suppliedQuantities(wb)
		if err := s.reverseMovement(ctx, repos, wb); err != nil {
			return err
		}
		for i := range wb.Items {
			wb.Items[i].QuantitySupplied = decimal.Zero
			wb.Items[i].BalanceLeft = wb.Items[i].QuantityRequested.Sub(wb.Items[i].FulfilledQuantity)
			wb.Items[i].Touch()
		}
		if err := wb.Cancel(); err != nil {
			return err
		}
		if err := repos.Waybills().Save(ctx, wb); err != nil {
			return err
		}

		return s.reconcileNote(ctx, repos, wb.SaleID, credit.NetSupplied(previous, nil))
	})
}

// GetWaybill loads a waybill with its items and allocations
func (s *WaybillService) GetWaybill(ctx context.Context, waybillID uuid.UUID) (*delivery.Waybill, error) {
	var waybill *delivery.Waybill
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Waybills().FindByID(ctx, waybillID)
		if err != nil {
			return err
		}
		waybill = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return waybill, nil
}

// reverseMovement hands every active take back to the sale's allocation
// ledger. The stock stays consumed by the sale it was sold on, so lot
// quantities do not move: each waybill allocation is invalidated and an
// equal sale allocation row is appended against the same lot. A later
// delivery, edit, or sale reversal then works from those rows.
func (s *WaybillService) reverseMovement(ctx context.Context, repos scope.Repositories, wb *delivery.Waybill) error {
	for i := range wb.Items {
		item := &wb.Items[i]
		for j := range item.Allocations {
			allocation := &item.Allocations[j]
			if !allocation.IsActive {
				continue
			}
			hold, err := sales.NewSaleItemAllocation(item.SaleItemID, allocation.LotID, allocation.LotNumber, allocation.QuantityToTake)
			if err != nil {
				return err
			}
			if err := repos.Allocations().Save(ctx, hold); err != nil {
				return err
			}
			allocation.Invalidate()
		}
	}
	return nil
}

// deliveredSoFar sums the quantity already supplied for a demand line by
// other committed waybills of the sale.
func (s *WaybillService) deliveredSoFar(ctx context.Context, repos scope.Repositories, saleID, saleItemID, excludeWaybillID uuid.UUID) (decimal.Decimal, error) {
	waybills, err := repos.Waybills().FindBySale(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range waybills {
		wb := &waybills[i]
		if wb.ID == excludeWaybillID || wb.Status != delivery.WaybillStatusCommitted {
			continue
		}
		for j := range wb.Items {
			if wb.Items[j].SaleItemID == saleItemID {
				total = total.Add(wb.Items[j].QuantitySupplied)
			}
		}
	}
	return total, nil
}

// reconcileNote applies per-product supplied deltas to the sale's note, if
// it has one. A fulfilled note reopens when a negative delta restores
// outstanding quantity; a cancelled note is left alone.
func (s *WaybillService) reconcileNote(ctx context.Context, repos scope.Repositories, saleID uuid.UUID, deltas map[uuid.UUID]decimal.Decimal) error {
	if len(deltas) == 0 {
		return nil
	}
	note, err := repos.Notes().FindBySaleForUpdate(ctx, saleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if note.Status == credit.NoteStatusCancelled {
		return nil
	}
	if !note.IsActive && !hasNegative(deltas) {
		return nil
	}
	if err := note.ApplySupplied(deltas); err != nil {
		return err
	}
	return repos.Notes().Save(ctx, note)
}

func hasNegative(deltas map[uuid.UUID]decimal.Decimal) bool {
	for _, delta := range deltas {
		if delta.IsNegative() {
			return true
		}
	}
	return false
}

// suppliedQuantities aggregates a waybill's supplied quantity per product
func suppliedQuantities(wb *delivery.Waybill) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(wb.Items))
	for i := range wb.Items {
		out[wb.Items[i].ProductID] = out[wb.Items[i].ProductID].Add(wb.Items[i].QuantitySupplied)
	}
	return out
}
