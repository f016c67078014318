package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockops/backend/internal/domain/sales"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormAllocationRepository implements AllocationRepository using GORM.
// Allocation rows are append-only with soft invalidation, so there is no
// delete path.
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation by its ID
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.SaleItemAllocation, error) {
	var allocation sales.SaleItemAllocation
	if err := r.db.WithContext(ctx).First(&allocation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

// FindActiveByLotForUpdate finds active allocations pointing at a lot,
// most-recently-created first, with exclusive row locks
func (r *GormAllocationRepository) FindActiveByLotForUpdate(ctx context.Context, lotID uuid.UUID) ([]sales.SaleItemAllocation, error) {
	var allocations []sales.SaleItemAllocation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("lot_id = ? AND is_active = TRUE", lotID).
		Order("created_at DESC, id DESC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindBySaleItem finds all allocations of a demand line
func (r *GormAllocationRepository) FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]sales.SaleItemAllocation, error) {
	var allocations []sales.SaleItemAllocation
	if err := r.db.WithContext(ctx).
		Where("sale_item_id = ?", saleItemID).
		Order("created_at ASC, id ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// FindActiveBySaleItem finds the active allocations of a demand line
func (r *GormAllocationRepository) FindActiveBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]sales.SaleItemAllocation, error) {
	var allocations []sales.SaleItemAllocation
	if err := r.db.WithContext(ctx).
		Where("sale_item_id = ? AND is_active = TRUE", saleItemID).
		Order("created_at ASC, id ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// Save creates or updates an allocation row
func (r *GormAllocationRepository) Save(ctx context.Context, allocation *sales.SaleItemAllocation) error {
	return r.db.WithContext(ctx).Save(allocation).Error
}

var _ sales.AllocationRepository = (*GormAllocationRepository)(nil)
