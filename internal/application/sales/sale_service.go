// Package sales implements the sale workflows: committing demand against
// inventory with automatic FEFO allocation, deferring shortfall into
// backorders, and reversing or replacing a sale's stock movement exactly.
package sales

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

// SaleService handles sale-related business operations
type SaleService struct {
	txScope        scope.TransactionScope
	eventPublisher shared.EventPublisher
}

// NewSaleService creates a new SaleService
func NewSaleService(txScope scope.TransactionScope) *SaleService {
	return &SaleService{txScope: txScope}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateSale commits a sale: every line is allocated FEFO across the
// store's sellable lots, and whatever stock cannot cover is deferred into
// a backorder carried by the product's placeholder lot. A sale is never
// rejected for lack of stock. Everything happens in one transaction.
func (s *SaleService) CreateSale(ctx context.Context, req CreateSaleRequest) (*SaleResult, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Sale must have at least one item")
	}
	if req.OnCredit && req.NoteNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Credit sale requires a note number")
	}

	var result *SaleResult
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		if _, err := repos.Sales().FindByNumber(ctx, req.SaleNumber); err == nil {
			return shared.ErrAlreadyExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		sale, err := sales.NewSale(req.SaleNumber, req.CustomerID, req.StoreID)
		if err != nil {
			return err
		}
		if err := repos.Sales().Save(ctx, sale); err != nil {
			return err
		}

		lines := make([]SaleLineResult, 0, len(req.Items))
		for _, input := range req.Items {
			if _, err := repos.Products().FindByID(ctx, input.ProductID); err != nil {
				return err
			}
			item, err := sales.NewSaleItem(sale.ID, input.ProductID, sale.StoreID, input.Quantity)
			if err != nil {
				return err
			}
			item.UnitPrice = input.UnitPrice

			line, err := s.allocateLine(ctx, repos, item, req.OperatorID, sale.ID)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			sale.Items = append(sale.Items, *item)
		}

		result = &SaleResult{Sale: sale, Lines: lines}

		if req.OnCredit {
			note, err := s.openNote(ctx, repos, req, sale.ID)
			if err != nil {
				return err
			}
			result.NoteID = &note.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// allocateLine satisfies one demand line: FEFO over the currently sellable
// lots, the remainder deferred as a backorder on the placeholder lot. The
// item is saved with its primary lot set.
func (s *SaleService) allocateLine(ctx context.Context, repos scope.Repositories, item *sales.SaleItem, operatorID, saleID uuid.UUID) (SaleLineResult, error) {
	line := SaleLineResult{
		SaleItemID: item.ID,
		ProductID:  item.ProductID,
		Requested:  item.Quantity,
	}

	lots, err := repos.Lots().FindSellableForUpdate(ctx, item.ProductID, item.StoreID)
	if err != nil {
		return line, err
	}
	plan, err := inventory.SelectLots(inventory.ViewsOfLots(lots), item.Quantity, inventory.OrderExpiryAscending)
	if err != nil {
		return line, err
	}

	lotsByID := make(map[uuid.UUID]*inventory.InventoryLot, len(lots))
	for i := range lots {
		lotsByID[lots[i].ID] = &lots[i]
	}

	movement := ledger.Movement{
		Type:        inventory.TransactionTypeSale,
		OperatorID:  operatorID,
		ReferenceID: &saleID,
	}
	for _, take := range plan.Allocations {
		lot := lotsByID[take.LotID]
		if err := ledger.DecrementLot(ctx, repos, lot, take.Quantity, movement); err != nil {
			return line, err
		}
		allocation, err := sales.NewSaleItemAllocation(item.ID, lot.ID, lot.LotNumber, take.Quantity)
		if err != nil {
			return line, err
		}
		if err := repos.Allocations().Save(ctx, allocation); err != nil {
			return line, err
		}
		if item.LotID == nil {
			item.SetPrimaryLot(lot.ID)
		}
	}
	line.Allocated = plan.TotalAllocated

	if plan.Shortfall.GreaterThan(decimal.Zero) {
		if err := s.deferShortfall(ctx, repos, item, plan.Shortfall, movement); err != nil {
			return line, err
		}
		line.Backordered = plan.Shortfall
	}

	return line, repos.SaleItems().Save(ctx, item)
}

// deferShortfall records the uncovered portion of a demand line: the
// placeholder lot goes further negative and a backorder is opened.
func (s *SaleService) deferShortfall(ctx context.Context, repos scope.Repositories, item *sales.SaleItem, shortfall decimal.Decimal, movement ledger.Movement) error {
	placeholder, err := ledger.EnsurePlaceholder(ctx, repos, item.ProductID, item.StoreID)
	if err != nil {
		return err
	}
	if err := ledger.DecrementLot(ctx, repos, placeholder, shortfall, movement); err != nil {
		return err
	}

	backorder, err := sales.NewBackorder(item.ProductID, item.StoreID, item.ID, shortfall)
	if err != nil {
		return err
	}
	if err := repos.Backorders().Save(ctx, backorder); err != nil {
		return err
	}
	if err := item.AddBackorderQuantity(shortfall); err != nil {
		return err
	}
	if item.LotID == nil {
		item.SetPrimaryLot(placeholder.ID)
	}

	s.publish(ctx, sales.NewBackorderCreatedEvent(backorder))
	return nil
}

func (s *SaleService) openNote(ctx context.Context, repos scope.Repositories, req CreateSaleRequest, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	note, err := credit.NewPromissoryNote(req.NoteNumber, saleID, req.CustomerID)
	if err != nil {
		return nil, err
	}
	for _, input := range req.Items {
		if _, err := note.AddItem(input.ProductID, input.Quantity, input.UnitPrice); err != nil {
			return nil, err
		}
	}
	return note, repos.Notes().Save(ctx, note)
}

// DeleteSale cancels a sale and reverses its stock movement exactly:
// allocated stock returns to its lots, pending backorders are withdrawn and
// the placeholder recovers toward zero. Rejected once deliveries exist.
func (s *SaleService) DeleteSale(ctx context.Context, saleID, operatorID uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		sale, err := repos.Sales().FindByID(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == sales.SaleStatusCancelled {
			return shared.ErrInvalidState
		}
		if err := s.ensureNoDeliveries(ctx, repos, saleID); err != nil {
			return err
		}

		items, err := repos.SaleItems().FindBySale(ctx, saleID)
		if err != nil {
			return err
		}
		for i := range items {
			if err := s.reverseLine(ctx, repos, &items[i], saleID, operatorID); err != nil {
				return err
			}
			if err := repos.SaleItems().Save(ctx, &items[i]); err != nil {
				return err
			}
		}

		if err := s.closeNoteIfOpen(ctx, repos, saleID); err != nil {
			return err
		}

		if err := sale.Cancel(); err != nil {
			return err
		}
		return repos.Sales().Save(ctx, sale)
	})
}

// UpdateSale replaces a sale's demand lines. The old lines' allocations and
// backorders are reversed exactly as in DeleteSale, then the new lines are
// allocated as in CreateSale, all in one transaction. Rejected once
// deliveries exist.
func (s *SaleService) UpdateSale(ctx context.Context, req UpdateSaleRequest) (*SaleResult, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Sale must keep at least one item")
	}

	var result *SaleResult
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		sale, err := repos.Sales().FindByID(ctx, req.SaleID)
		if err != nil {
			return err
		}
		if sale.Status != sales.SaleStatusCommitted {
			return shared.ErrInvalidState
		}
		if err := s.ensureNoDeliveries(ctx, repos, sale.ID); err != nil {
			return err
		}

		oldItems, err := repos.SaleItems().FindBySale(ctx, sale.ID)
		if err != nil {
			return err
		}
		itemsByProduct := make(map[uuid.UUID]*sales.SaleItem, len(oldItems))
		for i := range oldItems {
			if err := s.reverseLine(ctx, repos, &oldItems[i], sale.ID, req.OperatorID); err != nil {
				return err
			}
			itemsByProduct[oldItems[i].ProductID] = &oldItems[i]
		}

		sale.Items = sale.Items[:0]
		lines := make([]SaleLineResult, 0, len(req.Items))
		kept := make(map[uuid.UUID]bool, len(req.Items))
		for _, input := range req.Items {
			item, ok := itemsByProduct[input.ProductID]
			if ok {
				item.Quantity = input.Quantity
				item.UnitPrice = input.UnitPrice
				item.LotID = nil
				item.Touch()
			} else {
				if _, err := repos.Products().FindByID(ctx, input.ProductID); err != nil {
					return err
				}
				item, err = sales.NewSaleItem(sale.ID, input.ProductID, sale.StoreID, input.Quantity)
				if err != nil {
					return err
				}
				item.UnitPrice = input.UnitPrice
			}
			kept[item.ID] = true

			line, err := s.allocateLine(ctx, repos, item, req.OperatorID, sale.ID)
			if err != nil {
				return err
			}
			lines = append(lines, line)
			sale.Items = append(sale.Items, *item)
		}

		for i := range oldItems {
			if !kept[oldItems[i].ID] {
				if err := repos.SaleItems().Delete(ctx, oldItems[i].ID); err != nil {
					return err
				}
			}
		}

		if err := s.rebuildNoteIfOpen(ctx, repos, sale.ID, req.Items); err != nil {
			return err
		}

		sale.UpdatedAt = time.Now()
		sale.IncrementVersion()
		if err := repos.Sales().Save(ctx, sale); err != nil {
			return err
		}
		result = &SaleResult{Sale: sale, Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reverseLine undoes one demand line's stock movement: active allocations
// return their quantity to their lots and invalidate; open backorders are
// withdrawn and the placeholder recovers by the withdrawn amount.
func (s *SaleService) reverseLine(ctx context.Context, repos scope.Repositories, item *sales.SaleItem, saleID, operatorID uuid.UUID) error {
	movement := ledger.Movement{
		Type:        inventory.TransactionTypeSaleReversal,
		OperatorID:  operatorID,
		ReferenceID: &saleID,
	}

	allocations, err := repos.Allocations().FindActiveBySaleItem(ctx, item.ID)
	if err != nil {
		return err
	}
	for i := range allocations {
		allocation := &allocations[i]
		lot, err := repos.Lots().FindByIDForUpdate(ctx, allocation.LotID)
		if err != nil {
			return err
		}
		if err := ledger.IncrementLot(ctx, repos, lot, allocation.QuantityTaken, movement); err != nil {
			return err
		}
		allocation.Invalidate()
		if err := repos.Allocations().Save(ctx, allocation); err != nil {
			return err
		}
	}

	backorders, err := repos.Backorders().FindOpenBySaleItemForUpdate(ctx, item.ID)
	if err != nil {
		return err
	}
	for i := range backorders {
		backorder := &backorders[i]
		withdrawn, err := backorder.Cancel()
		if err != nil {
			return err
		}
		if err := repos.Backorders().Save(ctx, backorder); err != nil {
			return err
		}

		placeholder, err := repos.Lots().FindPlaceholderForUpdate(ctx, item.ProductID, item.StoreID)
		if err != nil {
			return err
		}
		if err := ledger.IncrementLot(ctx, repos, placeholder, withdrawn, movement); err != nil {
			return err
		}
		if err := item.ReduceBackorderQuantity(withdrawn); err != nil {
			return err
		}
	}

	return nil
}

// ensureNoDeliveries rejects sale mutations once a committed waybill
// exists; delivered stock cannot be silently pulled back.
func (s *SaleService) ensureNoDeliveries(ctx context.Context, repos scope.Repositories, saleID uuid.UUID) error {
	waybills, err := repos.Waybills().FindBySale(ctx, saleID)
	if err != nil {
		return err
	}
	for i := range waybills {
		if waybills[i].Status == delivery.WaybillStatusCommitted {
			return shared.NewDomainError("HAS_DELIVERIES", "Sale has committed deliveries and can no longer be changed")
		}
	}
	return nil
}

func (s *SaleService) closeNoteIfOpen(ctx context.Context, repos scope.Repositories, saleID uuid.UUID) error {
	note, err := repos.Notes().FindOpenBySaleForUpdate(ctx, saleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := note.Cancel(); err != nil {
		return err
	}
	return repos.Notes().Save(ctx, note)
}

func (s *SaleService) rebuildNoteIfOpen(ctx context.Context, repos scope.Repositories, saleID uuid.UUID, items []SaleLineInput) error {
	note, err := repos.Notes().FindOpenBySaleForUpdate(ctx, saleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	lines := make([]credit.OutstandingLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, credit.OutstandingLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	if err := note.ReplaceOutstanding(lines); err != nil {
		return err
	}
	return repos.Notes().Save(ctx, note)
}

// GetSale loads a sale with its demand lines
func (s *SaleService) GetSale(ctx context.Context, saleID uuid.UUID) (*sales.Sale, error) {
	var sale *sales.Sale
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Sales().FindByID(ctx, saleID)
		if err != nil {
			return err
		}
		sale = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *SaleService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
