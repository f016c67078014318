package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

const (
	// EventTypeLotReceived is emitted when stock is received into a lot
	EventTypeLotReceived = "inventory.lot_received"
	// EventTypeLotDepleted is emitted when a lot reaches zero and deactivates
	EventTypeLotDepleted = "inventory.lot_depleted"
	// EventTypeStockConsumed is emitted when stock is taken from a lot
	EventTypeStockConsumed = "inventory.stock_consumed"
)

// LotReceivedEvent is emitted when stock is received into a lot
type LotReceivedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID       `json:"product_id"`
	StoreID   uuid.UUID       `json:"store_id"`
	LotNumber string          `json:"lot_number"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// NewLotReceivedEvent creates a new LotReceivedEvent
func NewLotReceivedEvent(lot *InventoryLot, quantity decimal.Decimal) *LotReceivedEvent {
	return &LotReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLotReceived, lot.ID, "InventoryLot"),
		ProductID:       lot.ProductID,
		StoreID:         lot.StoreID,
		LotNumber:       lot.LotNumber,
		Quantity:        quantity,
	}
}

// LotDepletedEvent is emitted when a lot reaches zero quantity
type LotDepletedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	StoreID   uuid.UUID `json:"store_id"`
	LotNumber string    `json:"lot_number"`
}

// NewLotDepletedEvent creates a new LotDepletedEvent
func NewLotDepletedEvent(lot *InventoryLot) *LotDepletedEvent {
	return &LotDepletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLotDepleted, lot.ID, "InventoryLot"),
		ProductID:       lot.ProductID,
		StoreID:         lot.StoreID,
		LotNumber:       lot.LotNumber,
	}
}

// StockConsumedEvent is emitted when stock is taken from a lot
type StockConsumedEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID       `json:"product_id"`
	StoreID     uuid.UUID       `json:"store_id"`
	LotNumber   string          `json:"lot_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	ReferenceID uuid.UUID       `json:"reference_id"`
}

// NewStockConsumedEvent creates a new StockConsumedEvent
func NewStockConsumedEvent(lot *InventoryLot, quantity decimal.Decimal, referenceID uuid.UUID) *StockConsumedEvent {
	return &StockConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockConsumed, lot.ID, "InventoryLot"),
		ProductID:       lot.ProductID,
		StoreID:         lot.StoreID,
		LotNumber:       lot.LotNumber,
		Quantity:        quantity,
		ReferenceID:     referenceID,
	}
}
