package delivery

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockops/backend/internal/domain/shared"
)

// WaybillRepository defines the interface for waybill persistence
type WaybillRepository interface {
	// FindByID finds a waybill by its ID, items and allocations included
	FindByID(ctx context.Context, id uuid.UUID) (*Waybill, error)

	// FindByNumber finds a waybill by its waybill number
	FindByNumber(ctx context.Context, waybillNumber string) (*Waybill, error)

	// FindBySale finds all waybills of a sale
	FindBySale(ctx context.Context, saleID uuid.UUID) ([]Waybill, error)

	// FindAll lists waybills matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Waybill, error)

	// Save creates or updates a waybill with its items and allocations
	Save(ctx context.Context, waybill *Waybill) error

	// Count counts waybills matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
