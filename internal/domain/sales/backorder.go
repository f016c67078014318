package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// Backorder is deferred, unsatisfied demand for a product/store recorded
// against a specific demand line. Backorders are fulfilled from future
// stock and are never deleted: an exhausted backorder is deactivated and
// kept for audit.
type Backorder struct {
	shared.BaseAggregateRoot
	ProductID               uuid.UUID       `gorm:"type:uuid;not null;index:idx_backorder_product_store,priority:1"`
	StoreID                 uuid.UUID       `gorm:"type:uuid;not null;index:idx_backorder_product_store,priority:2"`
	SaleItemID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	PendingQuantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalPendingQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsActive                bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (Backorder) TableName() string {
	return "backorders"
}

// NewBackorder creates a new backorder for a demand line's shortfall
func NewBackorder(productID, storeID, saleItemID uuid.UUID, quantity decimal.Decimal) (*Backorder, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if saleItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE_ITEM", "Sale item ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Backorder quantity must be positive")
	}

	return &Backorder{
		BaseAggregateRoot:       shared.NewBaseAggregateRoot(),
		ProductID:               productID,
		StoreID:                 storeID,
		SaleItemID:              saleItemID,
		PendingQuantity:         quantity,
		OriginalPendingQuantity: quantity,
		IsActive:                true,
	}, nil
}

// Fulfill reduces the pending quantity. The backorder deactivates when
// nothing remains pending.
func (b *Backorder) Fulfill(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Fulfillment quantity must be positive")
	}
	if !b.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Cannot fulfill an inactive backorder")
	}
	if qty.GreaterThan(b.PendingQuantity) {
		return shared.NewDomainError("INVALID_QUANTITY", "Fulfillment quantity exceeds pending quantity")
	}

	b.PendingQuantity = b.PendingQuantity.Sub(qty)
	if b.PendingQuantity.IsZero() {
		b.IsActive = false
	}
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Reopen restores pending quantity when a fulfillment is reversed,
// reactivating the backorder if it was exhausted.
func (b *Backorder) Reopen(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Reopen quantity must be positive")
	}

	b.PendingQuantity = b.PendingQuantity.Add(qty)
	b.IsActive = true
	b.Touch()
	b.IncrementVersion()
	return nil
}

// Cancel withdraws the remaining pending demand when the demand line that
// created this backorder is reversed. The row is kept for audit.
func (b *Backorder) Cancel() (decimal.Decimal, error) {
	if !b.IsActive {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", "Backorder is already closed")
	}
	withdrawn := b.PendingQuantity
	b.PendingQuantity = decimal.Zero
	b.IsActive = false
	b.Touch()
	b.IncrementVersion()
	return withdrawn, nil
}

// FulfilledQuantity returns how much of the original demand has been covered
func (b *Backorder) FulfilledQuantity() decimal.Decimal {
	return b.OriginalPendingQuantity.Sub(b.PendingQuantity)
}
