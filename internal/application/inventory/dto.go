package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/inventory"
)

// AdjustLotRequest is a manual correction of a lot's quantity. The delta is
// signed: positive receives found stock, negative writes off losses.
type AdjustLotRequest struct {
	LotID         uuid.UUID
	QuantityDelta decimal.Decimal
	Reason        string
	OperatorID    uuid.UUID
}

// AdjustLotResult reports the adjustment and its knock-on effects:
// Provisioned is backorder quantity drained by an upward adjustment,
// Reverted is fulfilled quantity pushed back by a downward one.
type AdjustLotResult struct {
	Lot         *inventory.InventoryLot
	Provisioned decimal.Decimal
	Reverted    decimal.Decimal
}
