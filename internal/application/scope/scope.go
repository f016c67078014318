// Package scope provides transactional access to the domain repositories.
// Application services never open database transactions themselves; they
// execute their work inside a TransactionScope, and every repository
// obtained from it participates in the same ambient transaction.
package scope

import (
	"context"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/domain/delivery"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
)

// TransactionScope runs a function within a database transaction. If the
// function returns an error the transaction is rolled back in full; no
// partial ledger mutation is ever retained.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to all repositories within one transaction.
// Everything returned shares the same underlying database transaction, so
// row locks taken through one repository are held for the remainder of the
// scope.
type Repositories interface {
	// Products returns the product repository
	Products() catalog.ProductRepository
	// Lots returns the inventory lot repository
	Lots() inventory.LotRepository
	// InventoryTransactions returns the append-only audit repository
	InventoryTransactions() inventory.TransactionRepository
	// Sales returns the sale repository
	Sales() sales.SaleRepository
	// SaleItems returns the demand line repository
	SaleItems() sales.SaleItemRepository
	// Backorders returns the backorder repository
	Backorders() sales.BackorderRepository
	// Allocations returns the sale allocation ledger repository
	Allocations() sales.AllocationRepository
	// Waybills returns the waybill repository
	Waybills() delivery.WaybillRepository
	// Notes returns the promissory note repository
	Notes() credit.NoteRepository
}
