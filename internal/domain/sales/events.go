package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

const (
	// EventTypeBackorderCreated is emitted when demand exceeds available stock
	EventTypeBackorderCreated = "sales.backorder_created"
	// EventTypeBackorderFulfilled is emitted when new stock drains a backorder
	EventTypeBackorderFulfilled = "sales.backorder_fulfilled"
	// EventTypeBackorderReverted is emitted when a fulfillment is pushed back
	EventTypeBackorderReverted = "sales.backorder_reverted"
)

// BackorderCreatedEvent is emitted when a demand line's shortfall is deferred
type BackorderCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	StoreID    uuid.UUID       `json:"store_id"`
	SaleItemID uuid.UUID       `json:"sale_item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// NewBackorderCreatedEvent creates a new BackorderCreatedEvent
func NewBackorderCreatedEvent(b *Backorder) *BackorderCreatedEvent {
	return &BackorderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBackorderCreated, b.ID, "Backorder"),
		ProductID:       b.ProductID,
		StoreID:         b.StoreID,
		SaleItemID:      b.SaleItemID,
		Quantity:        b.OriginalPendingQuantity,
	}
}

// BackorderFulfilledEvent is emitted for each quantity drained from a backorder
type BackorderFulfilledEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	StoreID    uuid.UUID       `json:"store_id"`
	SaleItemID uuid.UUID       `json:"sale_item_id"`
	LotID      uuid.UUID       `json:"lot_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Exhausted  bool            `json:"exhausted"`
}

// NewBackorderFulfilledEvent creates a new BackorderFulfilledEvent
func NewBackorderFulfilledEvent(b *Backorder, lotID uuid.UUID, quantity decimal.Decimal) *BackorderFulfilledEvent {
	return &BackorderFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBackorderFulfilled, b.ID, "Backorder"),
		ProductID:       b.ProductID,
		StoreID:         b.StoreID,
		SaleItemID:      b.SaleItemID,
		LotID:           lotID,
		Quantity:        quantity,
		Exhausted:       !b.IsActive,
	}
}

// BackorderRevertedEvent is emitted for each quantity restored to a backorder
type BackorderRevertedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID       `json:"product_id"`
	StoreID    uuid.UUID       `json:"store_id"`
	SaleItemID uuid.UUID       `json:"sale_item_id"`
	LotID      uuid.UUID       `json:"lot_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// NewBackorderRevertedEvent creates a new BackorderRevertedEvent
func NewBackorderRevertedEvent(b *Backorder, lotID uuid.UUID, quantity decimal.Decimal) *BackorderRevertedEvent {
	return &BackorderRevertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBackorderReverted, b.ID, "Backorder"),
		ProductID:       b.ProductID,
		StoreID:         b.StoreID,
		SaleItemID:      b.SaleItemID,
		LotID:           lotID,
		Quantity:        quantity,
	}
}
