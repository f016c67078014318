package delivery

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/delivery"
)

// TakeInput is one operator-chosen lot take of a delivery line
type TakeInput struct {
	LotID    uuid.UUID
	Quantity decimal.Decimal
}

// WaybillLineInput is one delivery line: how much of a demand line to ship
// now and from which lots.
type WaybillLineInput struct {
	SaleItemID       uuid.UUID
	QuantitySupplied decimal.Decimal
	Takes            []TakeInput
}

// CreateWaybillRequest commits a delivery against a sale
type CreateWaybillRequest struct {
	WaybillNumber string
	SaleID        uuid.UUID
	Lines         []WaybillLineInput
	OperatorID    uuid.UUID
}

// UpdateWaybillRequest replaces a committed waybill's supplied quantities
// and lot allocations. The previous lot movement is reversed exactly and
// the sale's promissory note is reconciled with the net delta only.
type UpdateWaybillRequest struct {
	WaybillID  uuid.UUID
	Lines      []WaybillLineInput
	OperatorID uuid.UUID
}

// ProposalLine is the FEFO starting point for one deliverable demand line
type ProposalLine struct {
	SaleItemID  uuid.UUID
	ProductID   uuid.UUID
	Deliverable decimal.Decimal
	Takes       []delivery.LotTake
	Shortfall   decimal.Decimal
}

// WaybillProposal is the interactive allocator's opening position for a
// sale: one proposed line per demand line that still has deliverable stock.
type WaybillProposal struct {
	SaleID uuid.UUID
	Lines  []ProposalLine
}
