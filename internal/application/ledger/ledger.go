// Package ledger implements the lot ledger: the one write path for lot
// quantities. Every mutation goes through here so that the lot row, its
// append-only audit record and the product's denormalized on-hand quantity
// always change together, inside whatever transaction the caller is in.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// PlaceholderLotNumber is the reserved lot number of the single backorder
// placeholder lot per product/store.
const PlaceholderLotNumber = "BACKORDER"

// Movement describes who moved stock and why, for the audit record
type Movement struct {
	Type        inventory.TransactionType
	OperatorID  uuid.UUID
	ReferenceID *uuid.UUID
	Notes       string
}

// ReceiptInput describes stock arriving into a lot
type ReceiptInput struct {
	ProductID uuid.UUID
	StoreID   uuid.UUID
	LotNumber string
	Quantity  decimal.Decimal
	Prices    inventory.LotPrices
	Dates     inventory.LotDates
	Movement  Movement
}

// CreateOrIncrementLot receives stock. If a lot with the same
// product/store/lot-number key already exists its quantity is incremented,
// otherwise a new lot is inserted. Either way one audit record is appended
// and the product aggregate is adjusted.
func CreateOrIncrementLot(ctx context.Context, repos scope.Repositories, input ReceiptInput) (*inventory.InventoryLot, error) {
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Receipt quantity must be positive")
	}
	if input.LotNumber == PlaceholderLotNumber {
		return nil, shared.NewDomainError("INVALID_LOT_NUMBER", "Lot number is reserved for backorder placeholders")
	}

	existing, err := repos.Lots().FindByNaturalKey(ctx, input.ProductID, input.StoreID, input.LotNumber)
	if err == nil {
		if existing.IsPlaceholder() {
			return nil, shared.NewDomainError("INVALID_STATE", "Cannot receive stock into a placeholder lot")
		}
		if err := IncrementLot(ctx, repos, existing, input.Quantity, input.Movement); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	lot, err := inventory.NewLot(input.ProductID, input.StoreID, input.LotNumber, input.Quantity, input.Prices, input.Dates)
	if err != nil {
		return nil, err
	}
	if err := repos.Lots().Save(ctx, lot); err != nil {
		return nil, err
	}
	if err := record(ctx, repos, lot, decimal.Zero, lot.Quantity, input.Movement); err != nil {
		return nil, err
	}
	if err := repos.Products().ApplyQuantityDelta(ctx, lot.ProductID, input.Quantity); err != nil {
		return nil, err
	}
	return lot, nil
}

// IncrementLot adds quantity to an already-locked lot, with audit record
// and product aggregate adjustment.
func IncrementLot(ctx context.Context, repos scope.Repositories, lot *inventory.InventoryLot, qty decimal.Decimal, mv Movement) error {
	before := lot.Quantity
	if err := lot.Increase(qty); err != nil {
		return err
	}
	if err := repos.Lots().Save(ctx, lot); err != nil {
		return err
	}
	if err := record(ctx, repos, lot, before, lot.Quantity, mv); err != nil {
		return err
	}
	return repos.Products().ApplyQuantityDelta(ctx, lot.ProductID, qty)
}

// DecrementLot removes quantity from an already-locked lot, with audit
// record and product aggregate adjustment. Physical lots reject decrements
// beyond their quantity with ErrInsufficientStock; placeholder lots go
// negative, which is how oversold demand is carried.
func DecrementLot(ctx context.Context, repos scope.Repositories, lot *inventory.InventoryLot, qty decimal.Decimal, mv Movement) error {
	before := lot.Quantity
	if err := lot.Decrease(qty); err != nil {
		return err
	}
	if err := repos.Lots().Save(ctx, lot); err != nil {
		return err
	}
	if err := record(ctx, repos, lot, before, lot.Quantity, mv); err != nil {
		return err
	}
	return repos.Products().ApplyQuantityDelta(ctx, lot.ProductID, qty.Neg())
}

// EnsurePlaceholder returns the backorder placeholder lot for a
// product/store, creating it on first oversell.
func EnsurePlaceholder(ctx context.Context, repos scope.Repositories, productID, storeID uuid.UUID) (*inventory.InventoryLot, error) {
	placeholder, err := repos.Lots().FindPlaceholderForUpdate(ctx, productID, storeID)
	if err == nil {
		return placeholder, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	placeholder, err = inventory.NewBackorderPlaceholderLot(productID, storeID, PlaceholderLotNumber)
	if err != nil {
		return nil, err
	}
	if err := repos.Lots().Save(ctx, placeholder); err != nil {
		return nil, err
	}
	return placeholder, nil
}

func record(ctx context.Context, repos scope.Repositories, lot *inventory.InventoryLot, before, after decimal.Decimal, mv Movement) error {
	tx, err := inventory.NewInventoryTransaction(lot, mv.OperatorID, mv.Type, before, after)
	if err != nil {
		return err
	}
	if mv.ReferenceID != nil {
		tx.WithReference(*mv.ReferenceID)
	}
	if mv.Notes != "" {
		tx.WithNotes(mv.Notes)
	}
	return repos.InventoryTransactions().Create(ctx, tx)
}
