// Package fulfillment coordinates backorder fulfillment and its reversal.
// The coordinator never opens a transaction of its own; it participates in
// whatever ambient transaction the calling workflow is running, so a
// receipt-plus-fulfillment or an adjustment-plus-reversal commits or rolls
// back as one unit.
package fulfillment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/application/ledger"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
	"github.com/stockops/backend/internal/domain/shared"
)

// Coordinator drains open backorders when stock arrives and pushes
// fulfillments back into backorders when stock is retracted.
type Coordinator struct {
	ordering       sales.BackorderOrdering
	eventPublisher shared.EventPublisher
}

// NewCoordinator creates a coordinator with the default oldest-first
// fulfillment ordering.
func NewCoordinator() *Coordinator {
	return &Coordinator{ordering: sales.NewCreationTimeFIFO()}
}

// NewCoordinatorWithOrdering creates a coordinator with an explicit
// fulfillment ordering strategy.
func NewCoordinatorWithOrdering(ordering sales.BackorderOrdering) *Coordinator {
	return &Coordinator{ordering: ordering}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (c *Coordinator) SetEventPublisher(publisher shared.EventPublisher) {
	c.eventPublisher = publisher
}

// FulfillBackorders drains open backorders for the lot's product and store
// from the given lot, in the coordinator's ordering, until either the lot
// or the backorders are exhausted. Each drained quantity moves from the lot
// into the backorder placeholder, shrinking its negative balance, and is
// recorded as an allocation and an audit record. Returns the total quantity
// provisioned.
//
// Must be called inside an ambient transaction; the lot, the placeholder,
// the backorders and their demand lines are all row-locked.
func (c *Coordinator) FulfillBackorders(ctx context.Context, repos scope.Repositories, lotID, operatorID uuid.UUID) (decimal.Decimal, error) {
	lot, err := repos.Lots().FindByIDForUpdate(ctx, lotID)
	if err != nil {
		return decimal.Zero, err
	}
	if lot.IsPlaceholder() {
		return decimal.Zero, shared.NewDomainError("INVALID_LOT", "Cannot fulfill backorders from a placeholder lot")
	}
	if !lot.IsSellable() {
		return decimal.Zero, nil
	}

	backorders, err := repos.Backorders().FindOpenByProductAndStoreForUpdate(ctx, lot.ProductID, lot.StoreID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(backorders) == 0 {
		return decimal.Zero, nil
	}
	c.ordering.Sort(backorders)

	placeholder, err := repos.Lots().FindPlaceholderForUpdate(ctx, lot.ProductID, lot.StoreID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Open backorders exist without a placeholder lot")
		}
		return decimal.Zero, err
	}

	total := decimal.Zero
	for i := range backorders {
		backorder := &backorders[i]
		available := lot.Available()
		if !available.GreaterThan(decimal.Zero) {
			break
		}
		take := decimal.Min(backorder.PendingQuantity, available)

		if err := c.drainBackorder(ctx, repos, backorder, lot, placeholder, take, operatorID); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(take)
	}

	return total, nil
}

// drainBackorder moves take units from the lot into one backorder: the lot
// goes down, the placeholder comes up toward zero, the allocation trail and
// the audit ledger both gain a row, and the demand line's deferred portion
// shrinks.
func (c *Coordinator) drainBackorder(
	ctx context.Context,
	repos scope.Repositories,
	backorder *sales.Backorder,
	lot, placeholder *inventory.InventoryLot,
	take decimal.Decimal,
	operatorID uuid.UUID,
) error {
	saleItem, err := repos.SaleItems().FindByIDForUpdate(ctx, backorder.SaleItemID)
	if err != nil {
		return err
	}

	movement := ledger.Movement{
		Type:        inventory.TransactionTypeBackorderFulfillment,
		OperatorID:  operatorID,
		ReferenceID: &backorder.ID,
	}
	if err := ledger.DecrementLot(ctx, repos, lot, take, movement); err != nil {
		return err
	}
	if err := ledger.IncrementLot(ctx, repos, placeholder, take, movement); err != nil {
		return err
	}

	allocation, err := sales.NewSaleItemAllocation(backorder.SaleItemID, lot.ID, lot.LotNumber, take)
	if err != nil {
		return err
	}
	if err := repos.Allocations().Save(ctx, allocation); err != nil {
		return err
	}

	if err := backorder.Fulfill(take); err != nil {
		return err
	}
	if err := repos.Backorders().Save(ctx, backorder); err != nil {
		return err
	}

	if err := saleItem.ReduceBackorderQuantity(take); err != nil {
		return err
	}
	if saleItem.LotID == nil || *saleItem.LotID == placeholder.ID {
		saleItem.SetPrimaryLot(lot.ID)
	}
	if err := repos.SaleItems().Save(ctx, saleItem); err != nil {
		return err
	}

	c.publish(ctx, sales.NewBackorderFulfilledEvent(backorder, lot.ID, take))
	return nil
}

// RevertFulfillment walks the active allocations pointing at the lot,
// most-recently-created first, and pushes up to qtyToRevert units back into
// backorders: each reverted slice shrinks its allocation, restores the lot
// quantity, drives the placeholder back down and reopens (or recreates) the
// demand line's backorder. Returns the quantity actually reverted, which is
// less than requested when the lot has fewer allocated units than asked.
//
// Must be called inside an ambient transaction.
func (c *Coordinator) RevertFulfillment(ctx context.Context, repos scope.Repositories, lotID uuid.UUID, qtyToRevert decimal.Decimal, operatorID uuid.UUID) (decimal.Decimal, error) {
	if qtyToRevert.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Revert quantity must be positive")
	}

	lot, err := repos.Lots().FindByIDForUpdate(ctx, lotID)
	if err != nil {
		return decimal.Zero, err
	}
	if lot.IsPlaceholder() {
		return decimal.Zero, shared.NewDomainError("INVALID_LOT", "Cannot revert fulfillments of a placeholder lot")
	}

	allocations, err := repos.Allocations().FindActiveByLotForUpdate(ctx, lot.ID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(allocations) == 0 {
		return decimal.Zero, nil
	}

	placeholder, err := ledger.EnsurePlaceholder(ctx, repos, lot.ProductID, lot.StoreID)
	if err != nil {
		return decimal.Zero, err
	}

	remaining := qtyToRevert
	for i := range allocations {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		allocation := &allocations[i]
		take := decimal.Min(remaining, allocation.QuantityTaken)

		if err := c.revertAllocation(ctx, repos, allocation, lot, placeholder, take, operatorID); err != nil {
			return decimal.Zero, err
		}
		remaining = remaining.Sub(take)
	}

	return qtyToRevert.Sub(remaining), nil
}

// revertAllocation pushes take units of one allocation back into deferred
// demand: the allocation shrinks, the lot regains the stock, the placeholder
// goes further negative, and the demand line's open backorder is reopened or
// recreated.
func (c *Coordinator) revertAllocation(
	ctx context.Context,
	repos scope.Repositories,
	allocation *sales.SaleItemAllocation,
	lot, placeholder *inventory.InventoryLot,
	take decimal.Decimal,
	operatorID uuid.UUID,
) error {
	saleItem, err := repos.SaleItems().FindByIDForUpdate(ctx, allocation.SaleItemID)
	if err != nil {
		return err
	}

	if err := allocation.Shrink(take); err != nil {
		return err
	}
	if err := repos.Allocations().Save(ctx, allocation); err != nil {
		return err
	}

	backorder, err := c.reopenBackorder(ctx, repos, saleItem, take)
	if err != nil {
		return err
	}

	movement := ledger.Movement{
		Type:        inventory.TransactionTypeBackorderReversal,
		OperatorID:  operatorID,
		ReferenceID: &backorder.ID,
	}
	if err := ledger.IncrementLot(ctx, repos, lot, take, movement); err != nil {
		return err
	}
	if err := ledger.DecrementLot(ctx, repos, placeholder, take, movement); err != nil {
		return err
	}

	if err := saleItem.AddBackorderQuantity(take); err != nil {
		return err
	}
	if saleItem.LotID != nil && *saleItem.LotID == lot.ID {
		active, err := repos.Allocations().FindActiveBySaleItem(ctx, saleItem.ID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			saleItem.SetPrimaryLot(placeholder.ID)
		}
	}
	if err := repos.SaleItems().Save(ctx, saleItem); err != nil {
		return err
	}

	c.publish(ctx, sales.NewBackorderRevertedEvent(backorder, lot.ID, take))
	return nil
}

// reopenBackorder restores take units of pending demand on the demand
// line's existing backorder, or creates a fresh one when none ever existed
// (the original allocation may have been made directly at sale time).
func (c *Coordinator) reopenBackorder(ctx context.Context, repos scope.Repositories, saleItem *sales.SaleItem, take decimal.Decimal) (*sales.Backorder, error) {
	existing, err := repos.Backorders().FindBySaleItem(ctx, saleItem.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		backorder := &existing[len(existing)-1]
		if err := backorder.Reopen(take); err != nil {
			return nil, err
		}
		if err := repos.Backorders().Save(ctx, backorder); err != nil {
			return nil, err
		}
		return backorder, nil
	}

	backorder, err := sales.NewBackorder(saleItem.ProductID, saleItem.StoreID, saleItem.ID, take)
	if err != nil {
		return nil, err
	}
	if err := repos.Backorders().Save(ctx, backorder); err != nil {
		return nil, err
	}
	c.publish(ctx, sales.NewBackorderCreatedEvent(backorder))
	return backorder, nil
}

func (c *Coordinator) publish(ctx context.Context, events ...shared.DomainEvent) {
	if c.eventPublisher == nil {
		return
	}
	// event delivery is best-effort; the business transaction never fails
	// on a publish error
	_ = c.eventPublisher.Publish(ctx, events...)
}
