package credit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// NoteStatus represents the lifecycle state of a promissory note
type NoteStatus string

const (
	// NoteStatusOutstanding means undelivered quantity remains on the note
	NoteStatusOutstanding NoteStatus = "OUTSTANDING"
	// NoteStatusFulfilled means delivery has caught up with everything sold
	NoteStatusFulfilled NoteStatus = "FULFILLED"
	// NoteStatusCancelled means the note's sale was deleted before delivery
	NoteStatusCancelled NoteStatus = "CANCELLED"
)

// PromissoryNote tracks sold-but-undelivered quantity for a credit sale.
// Waybills against the same sale reduce the note item by item until nothing
// remains, at which point the note closes.
type PromissoryNote struct {
	shared.BaseAggregateRoot
	NoteNumber  string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status      NoteStatus      `gorm:"type:varchar(20);not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IssueDate   time.Time       `gorm:"type:timestamptz;not null"`
	IsActive    bool            `gorm:"not null;default:true;index"`

	Items []PromissoryNoteItem `gorm:"foreignKey:NoteID;references:ID"`
}

// TableName returns the table name for GORM
func (PromissoryNote) TableName() string {
	return "promissory_notes"
}

// NewPromissoryNote creates a new outstanding note for a sale
func NewPromissoryNote(noteNumber string, saleID, customerID uuid.UUID) (*PromissoryNote, error) {
	if noteNumber == "" {
		return nil, shared.NewDomainError("INVALID_NOTE_NUMBER", "Note number cannot be empty")
	}
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALE", "Sale ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	return &PromissoryNote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		NoteNumber:        noteNumber,
		SaleID:            saleID,
		CustomerID:        customerID,
		Status:            NoteStatusOutstanding,
		TotalAmount:       decimal.Zero,
		IssueDate:         time.Now(),
		IsActive:          true,
		Items:             make([]PromissoryNoteItem, 0),
	}, nil
}

// AddItem appends an outstanding line and refreshes the note total
func (n *PromissoryNote) AddItem(productID uuid.UUID, quantity, unitPrice decimal.Decimal) (*PromissoryNoteItem, error) {
	item, err := NewPromissoryNoteItem(n.ID, productID, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	n.Items = append(n.Items, *item)
	n.recomputeTotal()
	return item, nil
}

// ApplySupplied reduces outstanding quantity per product after a waybill
// supplies against the note's sale. Positive deltas reduce outstanding
// quantity (floored at zero); negative deltas restore it, which is how a
// waybill edit that lowered its supplied quantity is reconciled without
// double-counting. Items deactivate at zero and the note closes when no
// item remains active. A fulfilled note reopens when a negative delta
// restores outstanding quantity; a cancelled note never does.
func (n *PromissoryNote) ApplySupplied(suppliedByProduct map[uuid.UUID]decimal.Decimal) error {
	if n.Status == NoteStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot reconcile a cancelled note")
	}
	if !n.IsActive {
		restores := false
		for _, delta := range suppliedByProduct {
			if delta.IsNegative() {
				restores = true
				break
			}
		}
		if !restores {
			return shared.NewDomainError("INVALID_STATE", "Cannot reconcile a closed note")
		}
	}

	for i := range n.Items {
		item := &n.Items[i]
		delta, ok := suppliedByProduct[item.ProductID]
		if !ok || delta.IsZero() {
			continue
		}
		item.applyDelta(delta)
	}

	n.recomputeTotal()

	if !n.hasActiveItems() {
		n.Status = NoteStatusFulfilled
		n.IsActive = false
	} else {
		n.Status = NoteStatusOutstanding
		n.IsActive = true
	}
	n.UpdatedAt = time.Now()
	n.IncrementVersion()
	return nil
}

// Cancel closes an open note when its sale is deleted before any delivery.
// Item quantities are kept for the record; only the active flags drop.
func (n *PromissoryNote) Cancel() error {
	if !n.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Note is already closed")
	}
	for i := range n.Items {
		n.Items[i].IsActive = false
	}
	n.recomputeTotal()
	n.Status = NoteStatusCancelled
	n.IsActive = false
	n.UpdatedAt = time.Now()
	n.IncrementVersion()
	return nil
}

// OutstandingLine is one product's sold-on-credit quantity used to rebuild
// a note's items.
type OutstandingLine struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// ReplaceOutstanding rebuilds the note's lines from scratch. Only valid
// while the note is open and nothing has been delivered against it, which
// is the window in which its sale may still be edited.
func (n *PromissoryNote) ReplaceOutstanding(lines []OutstandingLine) error {
	if !n.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Cannot rebuild a closed note")
	}

	items := make([]PromissoryNoteItem, 0, len(lines))
	for _, line := range lines {
		item, err := NewPromissoryNoteItem(n.ID, line.ProductID, line.Quantity, line.UnitPrice)
		if err != nil {
			return err
		}
		items = append(items, *item)
	}
	n.Items = items
	n.recomputeTotal()
	n.UpdatedAt = time.Now()
	n.IncrementVersion()
	return nil
}

// NetSupplied computes the per-product delta between a waybill's previous
// and new supplied quantities, so that editing a waybill reconciles the
// note once, not twice.
func NetSupplied(previous, current map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	net := make(map[uuid.UUID]decimal.Decimal, len(current))
	for productID, qty := range current {
		net[productID] = qty.Sub(previous[productID])
	}
	for productID, qty := range previous {
		if _, ok := current[productID]; !ok {
			net[productID] = qty.Neg()
		}
	}
	for productID, qty := range net {
		if qty.IsZero() {
			delete(net, productID)
		}
	}
	return net
}

// OutstandingQuantity sums the undelivered quantity across active items
func (n *PromissoryNote) OutstandingQuantity() decimal.Decimal {
	total := decimal.Zero
	for i := range n.Items {
		if n.Items[i].IsActive {
			total = total.Add(n.Items[i].Quantity)
		}
	}
	return total
}

func (n *PromissoryNote) hasActiveItems() bool {
	for i := range n.Items {
		if n.Items[i].IsActive {
			return true
		}
	}
	return false
}

func (n *PromissoryNote) recomputeTotal() {
	total := decimal.Zero
	for i := range n.Items {
		if n.Items[i].IsActive {
			total = total.Add(n.Items[i].SubTotal)
		}
	}
	n.TotalAmount = total
}

// PromissoryNoteItem is one outstanding line: the quantity of a product
// sold on credit and not yet delivered.
type PromissoryNoteItem struct {
	shared.BaseEntity
	NoteID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SubTotal  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsActive  bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (PromissoryNoteItem) TableName() string {
	return "promissory_note_items"
}

// NewPromissoryNoteItem creates a new outstanding line
func NewPromissoryNoteItem(noteID, productID uuid.UUID, quantity, unitPrice decimal.Decimal) (*PromissoryNoteItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Outstanding quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return &PromissoryNoteItem{
		BaseEntity: shared.NewBaseEntity(),
		NoteID:     noteID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		SubTotal:   quantity.Mul(unitPrice),
		IsActive:   true,
	}, nil
}

// applyDelta reduces (positive delta) or restores (negative delta) the
// outstanding quantity, flooring at zero and recomputing the subtotal.
func (i *PromissoryNoteItem) applyDelta(delta decimal.Decimal) {
	remaining := i.Quantity.Sub(delta)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	i.Quantity = remaining
	i.SubTotal = i.Quantity.Mul(i.UnitPrice)
	i.IsActive = i.Quantity.GreaterThan(decimal.Zero)
	i.Touch()
}
