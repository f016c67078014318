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

// GormBackorderRepository implements BackorderRepository using GORM
type GormBackorderRepository struct {
	db *gorm.DB
}

// NewGormBackorderRepository creates a new GormBackorderRepository
func NewGormBackorderRepository(db *gorm.DB) *GormBackorderRepository {
	return &GormBackorderRepository{db: db}
}

// FindByID finds a backorder by its ID
func (r *GormBackorderRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Backorder, error) {
	var backorder sales.Backorder
	if err := r.db.WithContext(ctx).First(&backorder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &backorder, nil
}

// FindOpenByProductAndStore finds active backorders for a product/store
func (r *GormBackorderRepository) FindOpenByProductAndStore(ctx context.Context, productID, storeID uuid.UUID) ([]sales.Backorder, error) {
	return r.findOpen(r.db.WithContext(ctx), productID, storeID)
}

// FindOpenByProductAndStoreForUpdate is FindOpenByProductAndStore with
// exclusive row locks, ordered oldest-created-first
func (r *GormBackorderRepository) FindOpenByProductAndStoreForUpdate(ctx context.Context, productID, storeID uuid.UUID) ([]sales.Backorder, error) {
	return r.findOpen(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), productID, storeID)
}

func (r *GormBackorderRepository) findOpen(db *gorm.DB, productID, storeID uuid.UUID) ([]sales.Backorder, error) {
	var backorders []sales.Backorder
	if err := db.
		Where("product_id = ? AND store_id = ? AND is_active = TRUE", productID, storeID).
		Order("created_at ASC, id ASC").
		Find(&backorders).Error; err != nil {
		return nil, err
	}
	return backorders, nil
}

// FindOpenBySaleItemForUpdate finds the active backorder rows of one demand
// line, with exclusive row locks
func (r *GormBackorderRepository) FindOpenBySaleItemForUpdate(ctx context.Context, saleItemID uuid.UUID) ([]sales.Backorder, error) {
	var backorders []sales.Backorder
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sale_item_id = ? AND is_active = TRUE", saleItemID).
		Order("created_at ASC, id ASC").
		Find(&backorders).Error; err != nil {
		return nil, err
	}
	return backorders, nil
}

// FindBySaleItem finds all backorders (open or exhausted) of a demand line
func (r *GormBackorderRepository) FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]sales.Backorder, error) {
	var backorders []sales.Backorder
	if err := r.db.WithContext(ctx).
		Where("sale_item_id = ?", saleItemID).
		Order("created_at ASC, id ASC").
		Find(&backorders).Error; err != nil {
		return nil, err
	}
	return backorders, nil
}

// Save creates or updates a backorder
func (r *GormBackorderRepository) Save(ctx context.Context, backorder *sales.Backorder) error {
	return r.db.WithContext(ctx).Save(backorder).Error
}

var _ sales.BackorderRepository = (*GormBackorderRepository)(nil)
