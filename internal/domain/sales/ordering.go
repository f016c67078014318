package sales

import "sort"

// BackorderOrdering decides the order in which open backorders are drained
// when new stock arrives. The rule is a named, swappable strategy so that
// choosing "who waited longest" over "what expires soonest" stays an
// explicit decision rather than an accident of query order.
type BackorderOrdering interface {
	// Name returns the strategy's registry name
	Name() string
	// Sort orders the backorders in place, first-to-drain first
	Sort(backorders []Backorder)
}

// CreationTimeFIFO drains backorders strictly oldest-created-first,
// independent of lot expiry. This is the system default: the customer who
// waited longest is served first even when a FEFO policy governs which lot
// the stock comes from.
type CreationTimeFIFO struct{}

// NewCreationTimeFIFO creates the default FIFO ordering strategy
func NewCreationTimeFIFO() CreationTimeFIFO {
	return CreationTimeFIFO{}
}

// Name returns the strategy's registry name
func (CreationTimeFIFO) Name() string {
	return "creation_time_fifo"
}

// Sort orders backorders oldest-created-first, ID as tiebreaker so the
// order is stable across runs.
func (CreationTimeFIFO) Sort(backorders []Backorder) {
	sort.SliceStable(backorders, func(i, j int) bool {
		if !backorders[i].CreatedAt.Equal(backorders[j].CreatedAt) {
			return backorders[i].CreatedAt.Before(backorders[j].CreatedAt)
		}
		return backorders[i].ID.String() < backorders[j].ID.String()
	})
}

// LargestPendingFirst drains the largest outstanding demand first. Not the
// default; available for tenants that prefer clearing big orders before
// long-waiting small ones.
type LargestPendingFirst struct{}

// Name returns the strategy's registry name
func (LargestPendingFirst) Name() string {
	return "largest_pending_first"
}

// Sort orders backorders by pending quantity descending, creation time as
// tiebreaker.
func (LargestPendingFirst) Sort(backorders []Backorder) {
	sort.SliceStable(backorders, func(i, j int) bool {
		if !backorders[i].PendingQuantity.Equal(backorders[j].PendingQuantity) {
			return backorders[i].PendingQuantity.GreaterThan(backorders[j].PendingQuantity)
		}
		return backorders[i].CreatedAt.Before(backorders[j].CreatedAt)
	})
}

// OrderingByName resolves a drain strategy by its registry name. The second
// return is false when no strategy carries that name.
func OrderingByName(name string) (BackorderOrdering, bool) {
	for _, ordering := range []BackorderOrdering{
		NewCreationTimeFIFO(),
		LargestPendingFirst{},
	} {
		if ordering.Name() == name {
			return ordering, true
		}
	}
	return nil, false
}
