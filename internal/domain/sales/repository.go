package sales

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockops/backend/internal/domain/shared"
)

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// FindByID finds a sale by its ID, items included
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindByNumber finds a sale by its sale number
	FindByNumber(ctx context.Context, saleNumber string) (*Sale, error)

	// FindAll lists sales matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Sale, error)

	// Save creates or updates the sale header. Items are persisted through
	// SaleItemRepository so that line-level updates made earlier in the same
	// transaction are not clobbered by a stale aggregate.
	Save(ctx context.Context, sale *Sale) error

	// Count counts sales matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// SaleItemRepository defines the interface for demand line persistence
type SaleItemRepository interface {
	// FindByID finds a sale item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SaleItem, error)

	// FindByIDForUpdate finds a sale item and takes an exclusive row lock
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*SaleItem, error)

	// FindBySale finds all items of a sale
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]SaleItem, error)

	// Save creates or updates a sale item
	Save(ctx context.Context, item *SaleItem) error

	// Delete removes a demand line replaced by a sale edit. The line's
	// history stays in the allocation and audit ledgers.
	Delete(ctx context.Context, id uuid.UUID) error
}

// BackorderRepository defines the interface for backorder persistence
type BackorderRepository interface {
	// FindByID finds a backorder by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Backorder, error)

	// FindOpenByProductAndStore finds active backorders for a product/store
	FindOpenByProductAndStore(ctx context.Context, productID, storeID uuid.UUID) ([]Backorder, error)

	// FindOpenByProductAndStoreForUpdate is FindOpenByProductAndStore with
	// exclusive row locks, ordered oldest-created-first
	FindOpenByProductAndStoreForUpdate(ctx context.Context, productID, storeID uuid.UUID) ([]Backorder, error)

	// FindOpenBySaleItemForUpdate finds the active backorder rows of one
	// demand line, with exclusive row locks
	FindOpenBySaleItemForUpdate(ctx context.Context, saleItemID uuid.UUID) ([]Backorder, error)

	// FindBySaleItem finds all backorders (open or exhausted) of a demand line
	FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]Backorder, error)

	// Save creates or updates a backorder
	Save(ctx context.Context, backorder *Backorder) error
}

// AllocationRepository defines the interface for the allocation ledger.
// Rows are append-only with soft invalidation; there is no delete.
type AllocationRepository interface {
	// FindByID finds an allocation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SaleItemAllocation, error)

	// FindActiveByLotForUpdate finds active allocations pointing at a lot,
	// most-recently-created first, with exclusive row locks. This is the
	// reversal walk order.
	FindActiveByLotForUpdate(ctx context.Context, lotID uuid.UUID) ([]SaleItemAllocation, error)

	// FindBySaleItem finds all allocations of a demand line
	FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]SaleItemAllocation, error)

	// FindActiveBySaleItem finds the active allocations of a demand line
	FindActiveBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]SaleItemAllocation, error)

	// Save creates or updates an allocation row
	Save(ctx context.Context, allocation *SaleItemAllocation) error
}
