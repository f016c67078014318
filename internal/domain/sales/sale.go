package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/shared"
)

// SaleStatus represents the lifecycle state of a sale
type SaleStatus string

const (
	// SaleStatusCommitted means the sale's demand has been applied to inventory
	SaleStatusCommitted SaleStatus = "COMMITTED"
	// SaleStatusCancelled means the sale was deleted and its stock movement undone
	SaleStatusCancelled SaleStatus = "CANCELLED"
)

// Sale is a customer order: the document that commits demand against
// inventory. Stock movement happens line by line through its items.
type Sale struct {
	shared.BaseAggregateRoot
	SaleNumber string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID uuid.UUID  `gorm:"type:uuid;not null;index"`
	StoreID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status     SaleStatus `gorm:"type:varchar(20);not null"`
	SaleDate   time.Time  `gorm:"type:timestamptz;not null"`

	Items []SaleItem `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates a new sale
func NewSale(saleNumber string, customerID, storeID uuid.UUID) (*Sale, error) {
	if saleNumber == "" {
		return nil, shared.NewDomainError("INVALID_SALE_NUMBER", "Sale number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}

	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SaleNumber:        saleNumber,
		CustomerID:        customerID,
		StoreID:           storeID,
		Status:            SaleStatusCommitted,
		SaleDate:          time.Now(),
		Items:             make([]SaleItem, 0),
	}, nil
}

// AddItem appends a demand line to the sale
func (s *Sale) AddItem(productID uuid.UUID, quantity decimal.Decimal) (*SaleItem, error) {
	item, err := NewSaleItem(s.ID, productID, s.StoreID, quantity)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, *item)
	s.UpdatedAt = time.Now()
	return &s.Items[len(s.Items)-1], nil
}

// Cancel marks the sale cancelled. The caller is responsible for reversing
// the stock movement its items caused.
func (s *Sale) Cancel() error {
	if s.Status == SaleStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Sale is already cancelled")
	}
	s.Status = SaleStatusCancelled
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// SaleItem is a demand line: the requested quantity of one product at one
// store. LotID points at the lot the line was (first) satisfied from, or at
// the backorder placeholder lot when nothing was available.
type SaleItem struct {
	shared.BaseEntity
	SaleID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	StoreID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LotID             *uuid.UUID      `gorm:"type:uuid;index"`
	BackorderQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	HasBackorder      bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// NewSaleItem creates a new demand line
func NewSaleItem(saleID, productID, storeID uuid.UUID, quantity decimal.Decimal) (*SaleItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}

	return &SaleItem{
		BaseEntity:        shared.NewBaseEntity(),
		SaleID:            saleID,
		ProductID:         productID,
		StoreID:           storeID,
		Quantity:          quantity,
		BackorderQuantity: decimal.Zero,
		HasBackorder:      false,
	}, nil
}

// SetPrimaryLot records the lot this line was satisfied from
func (i *SaleItem) SetPrimaryLot(lotID uuid.UUID) {
	i.LotID = &lotID
	i.Touch()
}

// AddBackorderQuantity raises the deferred portion of this line.
// Invariant: BackorderQuantity always equals the sum of pending quantity of
// the line's open backorders.
func (i *SaleItem) AddBackorderQuantity(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Backorder quantity must be positive")
	}
	if i.BackorderQuantity.Add(qty).GreaterThan(i.Quantity) {
		return shared.NewDomainError("INVALID_STATE", "Backorder quantity cannot exceed requested quantity")
	}
	i.BackorderQuantity = i.BackorderQuantity.Add(qty)
	i.HasBackorder = true
	i.Touch()
	return nil
}

// ReduceBackorderQuantity lowers the deferred portion when a backorder is
// fulfilled
func (i *SaleItem) ReduceBackorderQuantity(qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Reduction must be positive")
	}
	if qty.GreaterThan(i.BackorderQuantity) {
		return shared.NewDomainError("INVALID_STATE", "Reduction exceeds outstanding backorder quantity")
	}
	i.BackorderQuantity = i.BackorderQuantity.Sub(qty)
	if i.BackorderQuantity.IsZero() {
		i.HasBackorder = false
	}
	i.Touch()
	return nil
}

// FulfilledQuantity returns the portion of the line currently covered by
// allocations rather than open backorders
func (i *SaleItem) FulfilledQuantity() decimal.Decimal {
	return i.Quantity.Sub(i.BackorderQuantity)
}
