// Package inventory implements lot-level workflows that are not tied to a
// sale or receipt: manual quantity adjustments and the read side of the
// lot ledger.
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/application/fulfillment"
	"github.com/stockops/backend/internal/application/ledger"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// InventoryService handles lot adjustments and inventory queries
type InventoryService struct {
	txScope     scope.TransactionScope
	coordinator *fulfillment.Coordinator
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(txScope scope.TransactionScope, coordinator *fulfillment.Coordinator) *InventoryService {
	return &InventoryService{txScope: txScope, coordinator: coordinator}
}

// AdjustLot applies a signed manual correction to a physical lot.
//
// An upward adjustment is new available stock and immediately drains open
// backorders, exactly like a receipt. A downward adjustment that exceeds
// the lot's current quantity first reverts this lot's most recent
// fulfillments to free the difference; if reverting cannot free enough,
// the adjustment fails with ErrInsufficientStock and nothing changes.
func (s *InventoryService) AdjustLot(ctx context.Context, req AdjustLotRequest) (*AdjustLotResult, error) {
	if req.QuantityDelta.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Adjustment delta cannot be zero")
	}

	var result *AdjustLotResult
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		lot, err := repos.Lots().FindByIDForUpdate(ctx, req.LotID)
		if err != nil {
			return err
		}
		if lot.IsPlaceholder() {
			return shared.NewDomainError("INVALID_LOT", "Placeholder lots cannot be adjusted manually")
		}

		movement := ledger.Movement{
			Type:       inventory.TransactionTypeAdjustment,
			OperatorID: req.OperatorID,
			Notes:      req.Reason,
		}

		if req.QuantityDelta.GreaterThan(decimal.Zero) {
			if err := ledger.IncrementLot(ctx, repos, lot, req.QuantityDelta, movement); err != nil {
				return err
			}
			provisioned, err := s.coordinator.FulfillBackorders(ctx, repos, lot.ID, req.OperatorID)
			if err != nil {
				return err
			}
			refreshed, err := repos.Lots().FindByID(ctx, lot.ID)
			if err != nil {
				return err
			}
			result = &AdjustLotResult{Lot: refreshed, Provisioned: provisioned}
			return nil
		}

		writeOff := req.QuantityDelta.Neg()
		reverted := decimal.Zero
		if writeOff.GreaterThan(lot.Quantity) {
			reverted, err = s.coordinator.RevertFulfillment(ctx, repos, lot.ID, writeOff.Sub(lot.Quantity), req.OperatorID)
			if err != nil {
				return err
			}
			lot, err = repos.Lots().FindByIDForUpdate(ctx, lot.ID)
			if err != nil {
				return err
			}
		}
		if err := ledger.DecrementLot(ctx, repos, lot, writeOff, movement); err != nil {
			return err
		}
		result = &AdjustLotResult{Lot: lot, Reverted: reverted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetLot loads a single lot
func (s *InventoryService) GetLot(ctx context.Context, lotID uuid.UUID) (*inventory.InventoryLot, error) {
	var lot *inventory.InventoryLot
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Lots().FindByID(ctx, lotID)
		if err != nil {
			return err
		}
		lot = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// ListLotsByProduct lists a product's lots across stores, placeholder included
func (s *InventoryService) ListLotsByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.InventoryLot, error) {
	var lots []inventory.InventoryLot
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Lots().FindByProduct(ctx, productID, filter)
		if err != nil {
			return err
		}
		lots = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// ListExpiringLots lists active physical lots at a store expiring within
// the given number of days, soonest first.
func (s *InventoryService) ListExpiringLots(ctx context.Context, storeID uuid.UUID, withinDays int, filter shared.Filter) ([]inventory.InventoryLot, error) {
	if withinDays <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Expiry window must be positive")
	}
	deadline := time.Now().AddDate(0, 0, withinDays)

	var lots []inventory.InventoryLot
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Lots().FindExpiringBefore(ctx, storeID, deadline, filter)
		if err != nil {
			return err
		}
		lots = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// GetAuditTrail lists the audit records of a lot
func (s *InventoryService) GetAuditTrail(ctx context.Context, lotID uuid.UUID, filter shared.Filter) ([]inventory.InventoryTransaction, error) {
	var records []inventory.InventoryTransaction
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.InventoryTransactions().FindByLot(ctx, lotID, filter)
		if err != nil {
			return err
		}
		records = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetAuditByReference lists the audit records caused by one source document
func (s *InventoryService) GetAuditByReference(ctx context.Context, referenceID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var records []inventory.InventoryTransaction
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.InventoryTransactions().FindByReference(ctx, referenceID)
		if err != nil {
			return err
		}
		records = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
