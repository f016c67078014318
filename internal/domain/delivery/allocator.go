package delivery

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// LotTake is one operator-editable entry of a delivery allocation: take
// Quantity from the lot. Entries start from the FEFO proposal and may be
// replaced, resized or extended by the operator before saving.
type LotTake struct {
	LotID     uuid.UUID
	LotNumber string
	Quantity  decimal.Decimal
}

// ValidationResult reports why a proposed allocation cannot be saved.
// NeedsReplacement lists lots referenced by the allocation that have been
// exhausted or deactivated since it was proposed; the operator must swap
// them out before the waybill can be saved.
type ValidationResult struct {
	NeedsReplacement []uuid.UUID
	TotalTaken       decimal.Decimal
}

// ProposeAllocation produces the initial allocation for a delivery line:
// FEFO over the candidate lot views. Callers project availability into the
// views themselves, which lets the delivery workflow count stock the sale
// already holds as available for its own delivery. The operator edits the
// result.
func ProposeAllocation(requiredQty decimal.Decimal, candidates []inventory.LotView) ([]LotTake, decimal.Decimal, error) {
	plan, err := inventory.SelectLots(candidates, requiredQty, inventory.OrderExpiryAscending)
	if err != nil {
		return nil, decimal.Zero, err
	}

	takes := make([]LotTake, 0, len(plan.Allocations))
	for _, a := range plan.Allocations {
		takes = append(takes, LotTake{LotID: a.LotID, LotNumber: a.LotNumber, Quantity: a.Quantity})
	}
	return takes, plan.Shortfall, nil
}

// ValidateAllocation checks an operator-edited allocation against the lots
// currently available. The rules, in the order they reject:
//
//  1. every referenced lot must still be sellable, or it is flagged
//     needs-replacement and the save is blocked (ErrStaleAllocation);
//  2. no lot may be asked for more than its currently available quantity;
//  3. the total taken must equal the required quantity exactly. Both over-
//     and under-allocation are rejected (ErrAllocationMismatch).
func ValidateAllocation(requiredQty decimal.Decimal, takes []LotTake, lots []inventory.InventoryLot) (ValidationResult, error) {
	result := ValidationResult{TotalTaken: decimal.Zero}

	if requiredQty.LessThanOrEqual(decimal.Zero) {
		return result, shared.NewDomainError("INVALID_QUANTITY", "Required quantity must be positive")
	}
	if len(takes) == 0 {
		return result, shared.ErrAllocationMismatch
	}

	available := make(map[uuid.UUID]decimal.Decimal, len(lots))
	for i := range lots {
		if lots[i].IsSellable() {
			available[lots[i].ID] = lots[i].Available()
		}
	}

	// Stale references are collected, not short-circuited, so the operator
	// sees every lot that needs replacing in one round.
	requested := make(map[uuid.UUID]decimal.Decimal, len(takes))
	for _, take := range takes {
		if take.Quantity.LessThanOrEqual(decimal.Zero) {
			return result, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantities must be positive")
		}
		if _, ok := available[take.LotID]; !ok {
			result.NeedsReplacement = append(result.NeedsReplacement, take.LotID)
			continue
		}
		requested[take.LotID] = requested[take.LotID].Add(take.Quantity)
		result.TotalTaken = result.TotalTaken.Add(take.Quantity)
	}

	if len(result.NeedsReplacement) > 0 {
		return result, shared.ErrStaleAllocation
	}

	for lotID, qty := range requested {
		if qty.GreaterThan(available[lotID]) {
			return result, shared.ErrInsufficientStock
		}
	}

	if !result.TotalTaken.Equal(requiredQty) {
		return result, shared.ErrAllocationMismatch
	}

	return result, nil
}
