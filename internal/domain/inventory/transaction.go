package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// TransactionType represents the type of inventory transaction
type TransactionType string

const (
	// TransactionTypePurchase records stock received into a lot
	TransactionTypePurchase TransactionType = "PURCHASE"
	// TransactionTypeSale records stock consumed by a sale or delivery
	TransactionTypeSale TransactionType = "SALE"
	// TransactionTypeAdjustment records a manual correction
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	// TransactionTypeSaleReversal records stock restored by a sale edit or delete
	TransactionTypeSaleReversal TransactionType = "SALE_REVERSAL"
	// TransactionTypeBackorderFulfillment records deferred demand drained from new stock
	TransactionTypeBackorderFulfillment TransactionType = "BACKORDER_FULFILLMENT"
	// TransactionTypeBackorderReversal records a fulfillment pushed back into a backorder
	TransactionTypeBackorderReversal TransactionType = "BACKORDER_REVERSAL"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePurchase,
		TransactionTypeSale,
		TransactionTypeAdjustment,
		TransactionTypeSaleReversal,
		TransactionTypeBackorderFulfillment,
		TransactionTypeBackorderReversal:
		return true
	}
	return false
}

// InventoryTransaction is an immutable audit record of a single atomic lot
// quantity change. One row per change, written in the same transaction as
// the change itself, never updated afterwards.
type InventoryTransaction struct {
	shared.BaseEntity
	LotID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_tx_lot"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_tx_product"`
	StoreID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_inv_tx_store"`
	OperatorID      uuid.UUID       `gorm:"type:uuid;not null"`
	TransactionType TransactionType `gorm:"type:varchar(30);not null;index:idx_inv_tx_type"`
	QuantityBefore  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityAfter   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReferenceID     *uuid.UUID      `gorm:"type:uuid;index"` // source document (sale, receipt, waybill, adjustment)
	Notes           string          `gorm:"type:varchar(255)"`
	TransactionDate time.Time       `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// NewInventoryTransaction creates a new audit record for a lot mutation
func NewInventoryTransaction(
	lot *InventoryLot,
	operatorID uuid.UUID,
	txType TransactionType,
	quantityBefore, quantityAfter decimal.Decimal,
) (*InventoryTransaction, error) {
	if lot == nil {
		return nil, shared.NewDomainError("INVALID_LOT", "Lot cannot be nil")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_TYPE", "Invalid transaction type")
	}
	if quantityBefore.Equal(quantityAfter) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transaction must change the lot quantity")
	}

	return &InventoryTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		LotID:           lot.ID,
		ProductID:       lot.ProductID,
		StoreID:         lot.StoreID,
		OperatorID:      operatorID,
		TransactionType: txType,
		QuantityBefore:  quantityBefore,
		QuantityAfter:   quantityAfter,
		TransactionDate: time.Now(),
	}, nil
}

// WithReference sets the source document ID for the transaction
func (t *InventoryTransaction) WithReference(referenceID uuid.UUID) *InventoryTransaction {
	t.ReferenceID = &referenceID
	return t
}

// WithNotes sets free-form notes on the transaction
func (t *InventoryTransaction) WithNotes(notes string) *InventoryTransaction {
	t.Notes = notes
	return t
}

// QuantityChange returns the signed net change recorded by this transaction
func (t *InventoryTransaction) QuantityChange() decimal.Decimal {
	return t.QuantityAfter.Sub(t.QuantityBefore)
}

// IsIncrease returns true if this transaction increased the lot quantity
func (t *InventoryTransaction) IsIncrease() bool {
	return t.QuantityAfter.GreaterThan(t.QuantityBefore)
}
