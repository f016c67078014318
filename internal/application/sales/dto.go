package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/sales"
)

// SaleLineInput is one requested demand line of a sale
type SaleLineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// CreateSaleRequest carries everything needed to commit a sale's demand
// against inventory. When OnCredit is set a promissory note is opened for
// the sold quantities in the same transaction.
type CreateSaleRequest struct {
	SaleNumber string
	CustomerID uuid.UUID
	StoreID    uuid.UUID
	OnCredit   bool
	NoteNumber string
	Items      []SaleLineInput
	OperatorID uuid.UUID
}

// UpdateSaleRequest replaces a sale's demand lines. The previous lines'
// stock movement is reversed exactly before the new lines are applied.
type UpdateSaleRequest struct {
	SaleID     uuid.UUID
	Items      []SaleLineInput
	OperatorID uuid.UUID
}

// SaleLineResult reports how one demand line was satisfied
type SaleLineResult struct {
	SaleItemID  uuid.UUID
	ProductID   uuid.UUID
	Requested   decimal.Decimal
	Allocated   decimal.Decimal
	Backordered decimal.Decimal
}

// SaleResult is the outcome of committing or editing a sale
type SaleResult struct {
	Sale   *sales.Sale
	Lines  []SaleLineResult
	NoteID *uuid.UUID
}
