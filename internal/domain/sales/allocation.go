package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// SaleItemAllocation links a demand line to a lot and the quantity taken
// from it. This table is the reversal trail: every unit ever taken from a
// lot for a sale stays traceable here, which is what makes precise reversal
// possible. Rows are soft-invalidated (shrunk to zero and deactivated),
// never deleted.
type SaleItemAllocation struct {
	shared.BaseEntity
	SaleItemID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotNumber     string          `gorm:"type:varchar(100);not null"`
	QuantityTaken decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsActive      bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (SaleItemAllocation) TableName() string {
	return "sale_item_allocations"
}

// NewSaleItemAllocation records a quantity taken from a lot for a demand line
func NewSaleItemAllocation(saleItemID, lotID uuid.UUID, lotNumber string, quantity decimal.Decimal) (*SaleItemAllocation, error) {
	if saleItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE_ITEM", "Sale item ID cannot be empty")
	}
	if lotID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOT", "Lot ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocated quantity must be positive")
	}

	return &SaleItemAllocation{
		BaseEntity:    shared.NewBaseEntity(),
		SaleItemID:    saleItemID,
		LotID:         lotID,
		LotNumber:     lotNumber,
		QuantityTaken: quantity,
		IsActive:      true,
	}, nil
}

// Shrink reverses part of the allocation. The row deactivates when nothing
// remains allocated.
func (a *SaleItemAllocation) Shrink(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Shrink quantity must be positive")
	}
	if !a.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Cannot shrink an inactive allocation")
	}
	if qty.GreaterThan(a.QuantityTaken) {
		return shared.NewDomainError("INVALID_QUANTITY", "Shrink quantity exceeds allocated quantity")
	}

	a.QuantityTaken = a.QuantityTaken.Sub(qty)
	if a.QuantityTaken.IsZero() {
		a.IsActive = false
	}
	a.Touch()
	return nil
}

// Invalidate zeroes the allocation in one step, used by full sale reversal
func (a *SaleItemAllocation) Invalidate() {
	a.QuantityTaken = decimal.Zero
	a.IsActive = false
	a.Touch()
}
