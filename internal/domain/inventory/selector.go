package inventory

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// SelectionOrder determines how candidate lots are ordered before the
// selector walks them.
type SelectionOrder string

const (
	// OrderExpiryAscending is FEFO: soonest expiry first, lots without an
	// expiry date last. The default for automatic fulfillment.
	OrderExpiryAscending SelectionOrder = "EXPIRY_ASC"
	// OrderCallerSupplied keeps the candidates exactly as given. Used by the
	// interactive delivery allocator where the operator controls the order.
	OrderCallerSupplied SelectionOrder = "CALLER"
)

// IsValid checks if the selection order is valid
func (o SelectionOrder) IsValid() bool {
	return o == OrderExpiryAscending || o == OrderCallerSupplied
}

// LotView is the read-only projection of a lot the selector works with
type LotView struct {
	LotID        uuid.UUID
	LotNumber    string
	Available    decimal.Decimal
	ExpiryDate   *LotDate
	ReceivedDate LotDate
}

// LotDate is a comparable calendar instant. A thin alias keeps the selector
// independent of how callers store their dates.
type LotDate = int64

// LotAllocation is one entry of an allocation plan: take Quantity from LotID
type LotAllocation struct {
	LotID     uuid.UUID
	LotNumber string
	Quantity  decimal.Decimal
}

// AllocationPlan is the result of a selection run. Shortfall is the portion
// of the required quantity no candidate could cover.
type AllocationPlan struct {
	Allocations    []LotAllocation
	TotalAllocated decimal.Decimal
	Shortfall      decimal.Decimal
}

// FullyAllocated returns true when the plan covers the whole requirement
func (p AllocationPlan) FullyAllocated() bool {
	return p.Shortfall.IsZero()
}

// ViewOfLot projects a lot into the selector's candidate shape. Placeholder,
// inactive and empty lots project to zero availability and are skipped by
// the selector.
func ViewOfLot(lot *InventoryLot) LotView {
	view := LotView{
		LotID:        lot.ID,
		LotNumber:    lot.LotNumber,
		Available:    lot.Available(),
		ReceivedDate: lot.ReceivedDate.UnixNano(),
	}
	if lot.ExpiryDate != nil {
		expiry := lot.ExpiryDate.UnixNano()
		view.ExpiryDate = &expiry
	}
	return view
}

// ViewsOfLots projects a slice of lots
func ViewsOfLots(lots []InventoryLot) []LotView {
	views := make([]LotView, 0, len(lots))
	for i := range lots {
		views = append(views, ViewOfLot(&lots[i]))
	}
	return views
}

// SelectLots computes an allocation plan for the required quantity against
// the candidate lots. It is a pure function: no side effects, no locking.
// Callers decide what to do with the plan.
//
// Candidates with non-positive availability are never selected. Under
// OrderExpiryAscending candidates are sorted soonest-expiry-first with
// nil expiry dates last, ties broken by received date; under
// OrderCallerSupplied the given order is preserved. The selector then
// greedily takes min(remaining, available) from each candidate until the
// requirement is exhausted or candidates run out.
func SelectLots(candidates []LotView, requiredQty decimal.Decimal, order SelectionOrder) (AllocationPlan, error) {
	if requiredQty.LessThanOrEqual(decimal.Zero) {
		return AllocationPlan{}, shared.NewDomainError("INVALID_QUANTITY", "Required quantity must be positive")
	}
	if !order.IsValid() {
		return AllocationPlan{}, shared.NewDomainError("INVALID_ORDER", "Unknown selection order")
	}

	eligible := make([]LotView, 0, len(candidates))
	for _, c := range candidates {
		if c.Available.GreaterThan(decimal.Zero) {
			eligible = append(eligible, c)
		}
	}

	if order == OrderExpiryAscending {
		sort.SliceStable(eligible, func(i, j int) bool {
			iExpiry, jExpiry := eligible[i].ExpiryDate, eligible[j].ExpiryDate
			switch {
			case iExpiry != nil && jExpiry != nil:
				if *iExpiry != *jExpiry {
					return *iExpiry < *jExpiry
				}
			case iExpiry != nil:
				return true
			case jExpiry != nil:
				return false
			}
			return eligible[i].ReceivedDate < eligible[j].ReceivedDate
		})
	}

	remaining := requiredQty
	allocations := make([]LotAllocation, 0, len(eligible))
	total := decimal.Zero

	for _, lot := range eligible {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, lot.Available)
		allocations = append(allocations, LotAllocation{
			LotID:     lot.LotID,
			LotNumber: lot.LotNumber,
			Quantity:  take,
		})
		total = total.Add(take)
		remaining = remaining.Sub(take)
	}

	return AllocationPlan{
		Allocations:    allocations,
		TotalAllocated: total,
		Shortfall:      remaining,
	}, nil
}
