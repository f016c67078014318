package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// LotKind distinguishes physical stock from backorder placeholders.
// A placeholder lot carries the negative quantity of oversold demand until
// fulfillment catches up; it is never sellable and never selected for
// allocation, regardless of its sign at any point in time.
type LotKind string

const (
	// LotKindPhysical is a real batch of stock received into a store
	LotKindPhysical LotKind = "PHYSICAL"
	// LotKindBackorderPlaceholder represents oversold demand as negative quantity
	LotKindBackorderPlaceholder LotKind = "BACKORDER_PLACEHOLDER"
)

// IsValid checks if the lot kind is valid
func (k LotKind) IsValid() bool {
	return k == LotKindPhysical || k == LotKindBackorderPlaceholder
}

// String returns the string representation
func (k LotKind) String() string {
	return string(k)
}

// InventoryLot is a distinct batch of a product at a store, identified by
// lot number, with its own dates and quantity. Lots are never hard-deleted,
// only deactivated once their quantity reaches zero and nothing references
// them anymore.
type InventoryLot struct {
	shared.BaseAggregateRoot
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lot_product_store_number,priority:1"`
	StoreID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lot_product_store_number,priority:2"`
	LotNumber       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_lot_product_store_number,priority:3"`
	Kind            LotKind         `gorm:"type:varchar(30);not null;default:'PHYSICAL'"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CostPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ManufactureDate *time.Time      `gorm:"type:timestamptz"`
	ExpiryDate      *time.Time      `gorm:"type:timestamptz;index"`
	ReceivedDate    time.Time       `gorm:"type:timestamptz;not null"`
	IsActive        bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (InventoryLot) TableName() string {
	return "inventory_lots"
}

// LotPrices carries the pricing attributes recorded on receipt
type LotPrices struct {
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
}

// LotDates carries the date attributes recorded on receipt
type LotDates struct {
	ManufactureDate *time.Time
	ExpiryDate      *time.Time
	ReceivedDate    time.Time
}

// NewLot creates a new physical lot
func NewLot(productID, storeID uuid.UUID, lotNumber string, quantity decimal.Decimal, prices LotPrices, dates LotDates) (*InventoryLot, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if lotNumber == "" {
		return nil, shared.NewDomainError("INVALID_LOT_NUMBER", "Lot number cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Initial lot quantity cannot be negative")
	}
	if prices.CostPrice.IsNegative() || prices.SellingPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Lot prices cannot be negative")
	}

	receivedDate := dates.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = time.Now()
	}

	return &InventoryLot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		StoreID:           storeID,
		LotNumber:         lotNumber,
		Kind:              LotKindPhysical,
		Quantity:          quantity,
		CostPrice:         prices.CostPrice,
		SellingPrice:      prices.SellingPrice,
		ManufactureDate:   dates.ManufactureDate,
		ExpiryDate:        dates.ExpiryDate,
		ReceivedDate:      receivedDate,
		IsActive:          true,
	}, nil
}

// NewBackorderPlaceholderLot creates a placeholder lot for oversold demand.
// It starts at zero and is driven negative by RecordOversell.
func NewBackorderPlaceholderLot(productID, storeID uuid.UUID, lotNumber string) (*InventoryLot, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if lotNumber == "" {
		return nil, shared.NewDomainError("INVALID_LOT_NUMBER", "Lot number cannot be empty")
	}

	return &InventoryLot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		StoreID:           storeID,
		LotNumber:         lotNumber,
		Kind:              LotKindBackorderPlaceholder,
		Quantity:          decimal.Zero,
		CostPrice:         decimal.Zero,
		SellingPrice:      decimal.Zero,
		ReceivedDate:      time.Now(),
		IsActive:          true,
	}, nil
}

// IsPlaceholder returns true for backorder placeholder lots
func (l *InventoryLot) IsPlaceholder() bool {
	return l.Kind == LotKindBackorderPlaceholder
}

// Available returns the quantity available for allocation. Placeholder and
// inactive lots never offer stock.
func (l *InventoryLot) Available() decimal.Decimal {
	if l.IsPlaceholder() || !l.IsActive || l.Quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return l.Quantity
}

// IsSellable returns true if the lot can satisfy demand
func (l *InventoryLot) IsSellable() bool {
	return l.Available().GreaterThan(decimal.Zero)
}

// IsExpired returns true if the lot's expiry date has passed
func (l *InventoryLot) IsExpired() bool {
	if l.ExpiryDate == nil {
		return false
	}
	return l.ExpiryDate.Before(time.Now())
}

// Increase adds quantity to the lot. A depleted lot is reactivated, except a
// placeholder that reaches zero, which is retired instead.
func (l *InventoryLot) Increase(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Increase quantity must be positive")
	}

	l.Quantity = l.Quantity.Add(quantity)
	if l.IsPlaceholder() {
		if l.Quantity.GreaterThan(decimal.Zero) {
			return shared.NewDomainError("INVALID_STATE", "Backorder placeholder cannot hold positive quantity")
		}
		l.IsActive = l.Quantity.IsNegative()
	} else {
		l.IsActive = true
	}
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}

// Decrease removes quantity from the lot. Physical lots may not go negative;
// placeholder lots are intentionally negative and stay active while they are.
func (l *InventoryLot) Decrease(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Decrease quantity must be positive")
	}

	if l.IsPlaceholder() {
		l.Quantity = l.Quantity.Sub(quantity)
		l.IsActive = true
		l.UpdatedAt = time.Now()
		l.IncrementVersion()
		return nil
	}

	if quantity.GreaterThan(l.Quantity) {
		return shared.ErrInsufficientStock
	}

	l.Quantity = l.Quantity.Sub(quantity)
	if l.Quantity.LessThanOrEqual(decimal.Zero) {
		l.IsActive = false
	}
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}

// Deactivate retires the lot. Only zero-quantity lots may be retired; a
// placeholder still carrying negative quantity represents open demand.
func (l *InventoryLot) Deactivate() error {
	if !l.Quantity.IsZero() {
		return shared.NewDomainError("INVALID_STATE", "Cannot deactivate a lot with non-zero quantity")
	}
	l.IsActive = false
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}
