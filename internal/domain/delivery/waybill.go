package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// WaybillStatus represents the lifecycle state of a waybill
type WaybillStatus string

const (
	// WaybillStatusDraft means the allocation is still being edited
	WaybillStatusDraft WaybillStatus = "DRAFT"
	// WaybillStatusCommitted means lots have been decremented for this waybill
	WaybillStatusCommitted WaybillStatus = "COMMITTED"
	// WaybillStatusCancelled means the waybill was reversed
	WaybillStatusCancelled WaybillStatus = "CANCELLED"
)

// Waybill is a delivery note converting (part of) a sale into physical
// shipment. Each item carries its own lot allocations, chosen interactively
// by the operator from a FEFO proposal.
type Waybill struct {
	shared.BaseAggregateRoot
	WaybillNumber string        `gorm:"type:varchar(50);not null;uniqueIndex"`
	SaleID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	StoreID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status        WaybillStatus `gorm:"type:varchar(20);not null"`
	DeliveryDate  time.Time     `gorm:"type:timestamptz;not null"`

	Items []WaybillItem `gorm:"foreignKey:WaybillID;references:ID"`
}

// TableName returns the table name for GORM
func (Waybill) TableName() string {
	return "waybills"
}

// NewWaybill creates a new draft waybill for a sale
func NewWaybill(waybillNumber string, saleID, storeID uuid.UUID) (*Waybill, error) {
	if waybillNumber == "" {
		return nil, shared.NewDomainError("INVALID_WAYBILL_NUMBER", "Waybill number cannot be empty")
	}
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}

	return &Waybill{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WaybillNumber:     waybillNumber,
		SaleID:            saleID,
		StoreID:           storeID,
		Status:            WaybillStatusDraft,
		DeliveryDate:      time.Now(),
		Items:             make([]WaybillItem, 0),
	}, nil
}

// AddItem appends a delivery line to the waybill
func (w *Waybill) AddItem(saleItemID, productID uuid.UUID, quantityRequested, alreadyFulfilled, quantitySupplied decimal.Decimal) (*WaybillItem, error) {
	if w.Status != WaybillStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items to a committed waybill")
	}
	item, err := NewWaybillItem(w.ID, saleItemID, productID, w.StoreID, quantityRequested, alreadyFulfilled, quantitySupplied)
	if err != nil {
		return nil, err
	}
	w.Items = append(w.Items, *item)
	w.UpdatedAt = time.Now()
	// point into the slice so allocations appended by the caller persist
	return &w.Items[len(w.Items)-1], nil
}

// Commit marks the waybill as applied to inventory
func (w *Waybill) Commit() error {
	if w.Status == WaybillStatusCommitted {
		return shared.NewDomainError("INVALID_STATE", "Waybill is already committed")
	}
	if w.Status == WaybillStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot commit a cancelled waybill")
	}
	w.Status = WaybillStatusCommitted
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
	return nil
}

// Cancel marks the waybill cancelled. The caller reverses the lot movement.
func (w *Waybill) Cancel() error {
	if w.Status == WaybillStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Waybill is already cancelled")
	}
	w.Status = WaybillStatusCancelled
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
	return nil
}

// WaybillItem is one delivery line. FulfilledQuantity accumulates across
// partial deliveries of the same demand line; BalanceLeft is what remains
// undelivered after this waybill.
type WaybillItem struct {
	shared.BaseEntity
	WaybillID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	StoreID           uuid.UUID       `gorm:"type:uuid;not null"`
	QuantityRequested decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantitySupplied  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FulfilledQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceLeft       decimal.Decimal `gorm:"type:decimal(18,4);not null"`

	Allocations []WaybillLotAllocation `gorm:"foreignKey:WaybillItemID;references:ID"`
}

// TableName returns the table name for GORM
func (WaybillItem) TableName() string {
	return "waybill_items"
}

// NewWaybillItem creates a new delivery line
func NewWaybillItem(waybillID, saleItemID, productID, storeID uuid.UUID, quantityRequested, alreadyFulfilled, quantitySupplied decimal.Decimal) (*WaybillItem, error) {
	if saleItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE_ITEM", "Sale item ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantityRequested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}
	if quantitySupplied.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Supplied quantity must be positive")
	}
	if alreadyFulfilled.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Fulfilled quantity cannot be negative")
	}
	if alreadyFulfilled.Add(quantitySupplied).GreaterThan(quantityRequested) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Supplied quantity exceeds undelivered balance")
	}

	return &WaybillItem{
		BaseEntity:        shared.NewBaseEntity(),
		WaybillID:         waybillID,
		SaleItemID:        saleItemID,
		ProductID:         productID,
		StoreID:           storeID,
		QuantityRequested: quantityRequested,
		QuantitySupplied:  quantitySupplied,
		FulfilledQuantity: alreadyFulfilled,
		BalanceLeft:       quantityRequested.Sub(alreadyFulfilled).Sub(quantitySupplied),
	}, nil
}

// ChangeSuppliedQuantity adjusts the supplied quantity on edit and
// recomputes the balance.
func (i *WaybillItem) ChangeSuppliedQuantity(quantitySupplied decimal.Decimal) error {
	if quantitySupplied.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Supplied quantity must be positive")
	}
	if i.FulfilledQuantity.Add(quantitySupplied).GreaterThan(i.QuantityRequested) {
		return shared.NewDomainError("INVALID_QUANTITY", "Supplied quantity exceeds undelivered balance")
	}
	i.QuantitySupplied = quantitySupplied
	i.BalanceLeft = i.QuantityRequested.Sub(i.FulfilledQuantity).Sub(quantitySupplied)
	i.Touch()
	return nil
}

// IsFullyDelivered returns true when nothing remains undelivered
func (i *WaybillItem) IsFullyDelivered() bool {
	return i.BalanceLeft.IsZero()
}

// WaybillLotAllocation records which lot a delivery line takes stock from.
// Same append-only-with-soft-invalidate contract as the sale allocation
// ledger.
type WaybillLotAllocation struct {
	shared.BaseEntity
	WaybillItemID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotNumber      string          `gorm:"type:varchar(100);not null"`
	QuantityToTake decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsActive       bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (WaybillLotAllocation) TableName() string {
	return "waybill_lot_allocations"
}

// NewWaybillLotAllocation records a quantity to take from a lot
func NewWaybillLotAllocation(waybillItemID, lotID uuid.UUID, lotNumber string, quantity decimal.Decimal) (*WaybillLotAllocation, error) {
	if waybillItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAYBILL_ITEM", "Waybill item ID cannot be empty")
	}
	if lotID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOT", "Lot ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocated quantity must be positive")
	}

	return &WaybillLotAllocation{
		BaseEntity:     shared.NewBaseEntity(),
		WaybillItemID:  waybillItemID,
		LotID:          lotID,
		LotNumber:      lotNumber,
		QuantityToTake: quantity,
		IsActive:       true,
	}, nil
}

// Invalidate zeroes the allocation, used when a waybill is edited or cancelled
func (a *WaybillLotAllocation) Invalidate() {
	a.QuantityToTake = decimal.Zero
	a.IsActive = false
	a.Touch()
}
