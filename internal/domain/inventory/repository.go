package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/stockops/backend/internal/domain/shared"
)

// LotRepository defines the interface for inventory lot persistence.
// The ...ForUpdate finders take exclusive row locks and must only be called
// inside an ambient transaction.
type LotRepository interface {
	// FindByID finds a lot by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryLot, error)

	// FindByIDForUpdate finds a lot and takes an exclusive row lock on it
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryLot, error)

	// FindByNaturalKey finds a lot by its product/store/lot-number key
	FindByNaturalKey(ctx context.Context, productID, storeID uuid.UUID, lotNumber string) (*InventoryLot, error)

	// FindSellable finds active physical lots with positive quantity for a
	// product at a store
	FindSellable(ctx context.Context, productID, storeID uuid.UUID) ([]InventoryLot, error)

	// FindSellableForUpdate is FindSellable with exclusive row locks
	FindSellableForUpdate(ctx context.Context, productID, storeID uuid.UUID) ([]InventoryLot, error)

	// FindPlaceholder finds the backorder placeholder lot for a product/store,
	// active or not
	FindPlaceholder(ctx context.Context, productID, storeID uuid.UUID) (*InventoryLot, error)

	// FindPlaceholderForUpdate is FindPlaceholder with an exclusive row lock
	FindPlaceholderForUpdate(ctx context.Context, productID, storeID uuid.UUID) (*InventoryLot, error)

	// FindByProduct finds all lots for a product across stores
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]InventoryLot, error)

	// FindExpiringBefore finds active physical lots expiring before the deadline
	FindExpiringBefore(ctx context.Context, storeID uuid.UUID, deadline time.Time, filter shared.Filter) ([]InventoryLot, error)

	// Save creates or updates a lot
	Save(ctx context.Context, lot *InventoryLot) error

	// Count counts lots matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// TransactionRepository defines the interface for audit record persistence.
// Records are append-only: there is deliberately no update or delete.
type TransactionRepository interface {
	// Create appends a new audit record
	Create(ctx context.Context, tx *InventoryTransaction) error

	// FindByLot finds audit records for a lot
	FindByLot(ctx context.Context, lotID uuid.UUID, filter shared.Filter) ([]InventoryTransaction, error)

	// FindByProduct finds audit records for a product
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]InventoryTransaction, error)

	// FindByReference finds audit records by source document
	FindByReference(ctx context.Context, referenceID uuid.UUID) ([]InventoryTransaction, error)

	// FindByDateRange finds audit records within a date range
	FindByDateRange(ctx context.Context, start, end time.Time, filter shared.Filter) ([]InventoryTransaction, error)
}
