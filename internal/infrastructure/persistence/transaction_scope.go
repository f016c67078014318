package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/domain/delivery"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
)

// GormTransactionScope implements scope.TransactionScope on top of GORM
// transactions. Every repository handed to the scoped function shares the
// same transaction, so row locks taken through one repository hold for the
// rest of the scope.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction. If the
// function returns an error the transaction is rolled back; otherwise it is
// committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos scope.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories provides access to all repositories within one transaction
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormRepositories) Lots() inventory.LotRepository {
	return NewGormLotRepository(r.tx)
}

func (r *gormRepositories) InventoryTransactions() inventory.TransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

func (r *gormRepositories) Sales() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

func (r *gormRepositories) SaleItems() sales.SaleItemRepository {
	return NewGormSaleItemRepository(r.tx)
}

func (r *gormRepositories) Backorders() sales.BackorderRepository {
	return NewGormBackorderRepository(r.tx)
}

func (r *gormRepositories) Allocations() sales.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormRepositories) Waybills() delivery.WaybillRepository {
	return NewGormWaybillRepository(r.tx)
}

func (r *gormRepositories) Notes() credit.NoteRepository {
	return NewGormNoteRepository(r.tx)
}

var _ scope.TransactionScope = (*GormTransactionScope)(nil)
var _ scope.Repositories = (*gormRepositories)(nil)
