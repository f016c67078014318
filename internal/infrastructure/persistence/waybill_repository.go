package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/delivery"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormWaybillRepository implements WaybillRepository using GORM
type GormWaybillRepository struct {
	db *gorm.DB
}

// NewGormWaybillRepository creates a new GormWaybillRepository
func NewGormWaybillRepository(db *gorm.DB) *GormWaybillRepository {
	return &GormWaybillRepository{db: db}
}

// FindByID finds a waybill by its ID, items and allocations included
func (r *GormWaybillRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Waybill, error) {
	var waybill delivery.Waybill
	if err := r.db.WithContext(ctx).
		Preload("Items.Allocations").
		First(&waybill, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &waybill, nil
}

// FindByNumber finds a waybill by its waybill number
func (r *GormWaybillRepository) FindByNumber(ctx context.Context, waybillNumber string) (*delivery.Waybill, error) {
	var waybill delivery.Waybill
	if err := r.db.WithContext(ctx).
		Preload("Items.Allocations").
		First(&waybill, "waybill_number = ?", waybillNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &waybill, nil
}

// FindBySale finds all waybills of a sale
func (r *GormWaybillRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]delivery.Waybill, error) {
	var waybills []delivery.Waybill
	if err := r.db.WithContext(ctx).
		Preload("Items.Allocations").
		Where("sale_id = ?", saleID).
		Order("delivery_date ASC, created_at ASC").
		Find(&waybills).Error; err != nil {
		return nil, err
	}
	return waybills, nil
}

// FindAll lists waybills matching the filter
func (r *GormWaybillRepository) FindAll(ctx context.Context, filter shared.Filter) ([]delivery.Waybill, error) {
	var waybills []delivery.Waybill
	query := r.db.WithContext(ctx).Model(&delivery.Waybill{}).Preload("Items.Allocations")
	if filter.Search != "" {
		query = query.Where("waybill_number ILIKE ?", "%"+filter.Search+"%")
	}
	if err := applyFilter(query, filter, "delivery_date DESC").Find(&waybills).Error; err != nil {
		return nil, err
	}
	return waybills, nil
}

// Save creates or updates a waybill with its items and allocations
func (r *GormWaybillRepository) Save(ctx context.Context, waybill *delivery.Waybill) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(waybill).Error
}

// Count counts waybills matching the filter
func (r *GormWaybillRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&delivery.Waybill{})
	if filter.Search != "" {
		query = query.Where("waybill_number ILIKE ?", "%"+filter.Search+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ delivery.WaybillRepository = (*GormWaybillRepository)(nil)
