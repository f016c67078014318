package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// ErrInsufficientStock is returned when a decrement would take a physical
	// lot below zero. Backorder placeholder lots are exempt.
	ErrInsufficientStock = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")

	// ErrAllocationMismatch is returned when the sum of manual lot allocations
	// does not equal the required quantity, in either direction.
	ErrAllocationMismatch = NewDomainError("ALLOCATION_MISMATCH", "Allocated quantity does not match required quantity")

	// ErrStaleAllocation is returned when an allocation references a lot that
	// has been exhausted or deactivated since the allocation was proposed.
	ErrStaleAllocation = NewDomainError("STALE_ALLOCATION", "Allocation references a lot that is no longer available")
)
