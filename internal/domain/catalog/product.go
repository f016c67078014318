package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// Product represents a sellable product. QuantityOnHand is the denormalized
// sum of all active lot quantities for this product across stores and is
// adjusted inside the same transaction as every lot mutation. It may go
// negative only through backorder placeholder lots.
type Product struct {
	shared.BaseAggregateRoot
	Name           string          `gorm:"type:varchar(255);not null"`
	SKU            string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	CategoryID     *uuid.UUID      `gorm:"type:uuid;index"`
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive       bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(name, sku string) (*Product, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "Product SKU cannot be empty")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		SKU:               sku,
		QuantityOnHand:    decimal.Zero,
		IsActive:          true,
	}, nil
}

// ApplyQuantityDelta adjusts the denormalized on-hand quantity. Every lot
// mutation must call this in the same transaction, otherwise the
// product-to-lot sum silently drifts.
func (p *Product) ApplyQuantityDelta(delta decimal.Decimal) {
	p.QuantityOnHand = p.QuantityOnHand.Add(delta)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// HasStock returns true if the product has positive on-hand quantity
func (p *Product) HasStock() bool {
	return p.QuantityOnHand.GreaterThan(decimal.Zero)
}

// IsOversold returns true when backorder placeholder lots have pushed the
// aggregate below zero.
func (p *Product) IsOversold() bool {
	return p.QuantityOnHand.IsNegative()
}

// Deactivate marks the product inactive
func (p *Product) Deactivate() {
	p.IsActive = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
