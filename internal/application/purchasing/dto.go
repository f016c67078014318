package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptLineInput is one lot arriving in a delivery from a supplier
type ReceiptLineInput struct {
	ProductID       uuid.UUID
	LotNumber       string
	Quantity        decimal.Decimal
	CostPrice       decimal.Decimal
	SellingPrice    decimal.Decimal
	ManufactureDate *time.Time
	ExpiryDate      *time.Time
}

// ReceiveStockRequest receives one or more lots into a store
type ReceiveStockRequest struct {
	StoreID     uuid.UUID
	ReferenceID *uuid.UUID
	Notes       string
	Lines       []ReceiptLineInput
	OperatorID  uuid.UUID
}

// ReceiptLineResult reports what happened to one received lot
type ReceiptLineResult struct {
	LotID       uuid.UUID
	LotNumber   string
	Received    decimal.Decimal
	Provisioned decimal.Decimal
}

// ReceiveStockResult is the outcome of a receipt
type ReceiveStockResult struct {
	Lines []ReceiptLineResult
}
