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

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale by its ID, items included
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).Preload("Items").First(&sale, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindByNumber finds a sale by its sale number
func (r *GormSaleRepository) FindByNumber(ctx context.Context, saleNumber string) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).Preload("Items").First(&sale, "sale_number = ?", saleNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// FindAll lists sales matching the filter
func (r *GormSaleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]sales.Sale, error) {
	var result []sales.Sale
	query := r.db.WithContext(ctx).Model(&sales.Sale{}).Preload("Items")
	if filter.Search != "" {
		query = query.Where("sale_number ILIKE ?", "%"+filter.Search+"%")
	}
	if err := applyFilter(query, filter, "sale_date DESC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// Save creates or updates the sale header. Items are deliberately omitted;
// they are persisted through SaleItemRepository so that line-level updates
// made earlier in the same transaction are not clobbered by a stale
// aggregate.
func (r *GormSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	return r.db.WithContext(ctx).Omit("Items").Save(sale).Error
}

// Count counts sales matching the filter
func (r *GormSaleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&sales.Sale{})
	if filter.Search != "" {
		query = query.Where("sale_number ILIKE ?", "%"+filter.Search+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormSaleItemRepository implements SaleItemRepository using GORM
type GormSaleItemRepository struct {
	db *gorm.DB
}

// NewGormSaleItemRepository creates a new GormSaleItemRepository
func NewGormSaleItemRepository(db *gorm.DB) *GormSaleItemRepository {
	return &GormSaleItemRepository{db: db}
}

// FindByID finds a sale item by its ID
func (r *GormSaleItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.SaleItem, error) {
	var item sales.SaleItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate finds a sale item and takes an exclusive row lock
func (r *GormSaleItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.SaleItem, error) {
	var item sales.SaleItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindBySale finds all items of a sale
func (r *GormSaleItemRepository) FindBySale(ctx context.Context, saleID uuid.UUID) ([]sales.SaleItem, error) {
	var items []sales.SaleItem
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates a sale item
func (r *GormSaleItemRepository) Save(ctx context.Context, item *sales.SaleItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete removes a demand line replaced by a sale edit
func (r *GormSaleItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&sales.SaleItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ sales.SaleRepository = (*GormSaleRepository)(nil)
var _ sales.SaleItemRepository = (*GormSaleItemRepository)(nil)
