package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// fefoOrder sorts soonest expiry first with never-expiring lots last,
// received date breaking ties.
const fefoOrder = "COALESCE(expiry_date, '9999-12-31') ASC, received_date ASC"

// GormLotRepository implements LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

// FindByID finds a lot by its ID
func (r *GormLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryLot, error) {
	return r.findOne(r.db.WithContext(ctx), "id = ?", id)
}

// FindByIDForUpdate finds a lot and takes an exclusive row lock on it
func (r *GormLotRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryLot, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindByNaturalKey finds a lot by its product/store/lot-number key
func (r *GormLotRepository) FindByNaturalKey(ctx context.Context, productID, storeID uuid.UUID, lotNumber string) (*inventory.InventoryLot, error) {
	return r.findOne(r.db.WithContext(ctx),
		"product_id = ? AND store_id = ? AND lot_number = ?", productID, storeID, lotNumber)
}

// FindSellable finds active physical lots with positive quantity for a
// product at a store, soonest expiry first
func (r *GormLotRepository) FindSellable(ctx context.Context, productID, storeID uuid.UUID) ([]inventory.InventoryLot, error) {
	return r.findSellable(r.db.WithContext(ctx), productID, storeID)
}

// FindSellableForUpdate is FindSellable with exclusive row locks
func (r *GormLotRepository) FindSellableForUpdate(ctx context.Context, productID, storeID uuid.UUID) ([]inventory.InventoryLot, error) {
	return r.findSellable(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), productID, storeID)
}

func (r *GormLotRepository) findSellable(db *gorm.DB, productID, storeID uuid.UUID) ([]inventory.InventoryLot, error) {
	var lots []inventory.InventoryLot
	if err := db.
		Where("product_id = ? AND store_id = ?", productID, storeID).
		Where("kind = ? AND is_active = TRUE AND quantity > 0", inventory.LotKindPhysical).
		Order(fefoOrder).
		Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindPlaceholder finds the backorder placeholder lot for a product/store,
// active or not
func (r *GormLotRepository) FindPlaceholder(ctx context.Context, productID, storeID uuid.UUID) (*inventory.InventoryLot, error) {
	return r.findOne(r.db.WithContext(ctx),
		"product_id = ? AND store_id = ? AND kind = ?", productID, storeID, inventory.LotKindBackorderPlaceholder)
}

// FindPlaceholderForUpdate is FindPlaceholder with an exclusive row lock
func (r *GormLotRepository) FindPlaceholderForUpdate(ctx context.Context, productID, storeID uuid.UUID) (*inventory.InventoryLot, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}),
		"product_id = ? AND store_id = ? AND kind = ?", productID, storeID, inventory.LotKindBackorderPlaceholder)
}

// FindByProduct finds all lots for a product across stores
func (r *GormLotRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.InventoryLot, error) {
	var lots []inventory.InventoryLot
	query := r.db.WithContext(ctx).Model(&inventory.InventoryLot{}).
		Where("product_id = ?", productID)
	if err := applyFilter(query, filter, fefoOrder).Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindExpiringBefore finds active physical lots expiring before the deadline
func (r *GormLotRepository) FindExpiringBefore(ctx context.Context, storeID uuid.UUID, deadline time.Time, filter shared.Filter) ([]inventory.InventoryLot, error) {
	var lots []inventory.InventoryLot
	query := r.db.WithContext(ctx).Model(&inventory.InventoryLot{}).
		Where("store_id = ?", storeID).
		Where("kind = ? AND is_active = TRUE AND quantity > 0", inventory.LotKindPhysical).
		Where("expiry_date IS NOT NULL AND expiry_date < ?", deadline)
	if err := applyFilter(query, filter, "expiry_date ASC").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// Save creates or updates a lot
func (r *GormLotRepository) Save(ctx context.Context, lot *inventory.InventoryLot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// Count counts lots matching the filter
func (r *GormLotRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&inventory.InventoryLot{})
	if filter.Search != "" {
		query = query.Where("lot_number ILIKE ?", "%"+filter.Search+"%")
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormLotRepository) findOne(db *gorm.DB, cond string, args ...any) (*inventory.InventoryLot, error) {
	var lot inventory.InventoryLot
	if err := db.Where(cond, args...).First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

var _ inventory.LotRepository = (*GormLotRepository)(nil)
