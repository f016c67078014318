package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormInventoryTransactionRepository implements TransactionRepository using
// GORM. The table is append-only, so the repository exposes no update or
// delete path.
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Create appends a new audit record
func (r *GormInventoryTransactionRepository) Create(ctx context.Context, tx *inventory.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// FindByLot finds audit records for a lot
func (r *GormInventoryTransactionRepository) FindByLot(ctx context.Context, lotID uuid.UUID, filter shared.Filter) ([]inventory.InventoryTransaction, error) {
	var records []inventory.InventoryTransaction
	query := r.db.WithContext(ctx).Model(&inventory.InventoryTransaction{}).
		Where("lot_id = ?", lotID)
	if err := applyFilter(query, filter, "transaction_date DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByProduct finds audit records for a product
func (r *GormInventoryTransactionRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.InventoryTransaction, error) {
	var records []inventory.InventoryTransaction
	query := r.db.WithContext(ctx).Model(&inventory.InventoryTransaction{}).
		Where("product_id = ?", productID)
	if err := applyFilter(query, filter, "transaction_date DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByReference finds audit records by source document
func (r *GormInventoryTransactionRepository) FindByReference(ctx context.Context, referenceID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var records []inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("transaction_date ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByDateRange finds audit records within a date range
func (r *GormInventoryTransactionRepository) FindByDateRange(ctx context.Context, start, end time.Time, filter shared.Filter) ([]inventory.InventoryTransaction, error) {
	var records []inventory.InventoryTransaction
	query := r.db.WithContext(ctx).Model(&inventory.InventoryTransaction{}).
		Where("transaction_date >= ? AND transaction_date <= ?", start, end)
	if err := applyFilter(query, filter, "transaction_date DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

var _ inventory.TransactionRepository = (*GormInventoryTransactionRepository)(nil)
