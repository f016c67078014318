package scope

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/domain/delivery"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
	"github.com/stockops/backend/internal/domain/shared"
)

// InMemoryRepositories is a map-backed implementation of Repositories for
// unit tests. It honors the repositories' ordering contracts but provides
// no locking or transaction semantics; pair it with NoOpTransactionScope.
type InMemoryRepositories struct {
	products     map[uuid.UUID]catalog.Product
	lots         map[uuid.UUID]inventory.InventoryLot
	transactions []inventory.InventoryTransaction
	sales        map[uuid.UUID]sales.Sale
	saleItems    map[uuid.UUID]sales.SaleItem
	backorders   map[uuid.UUID]sales.Backorder
	allocations  map[uuid.UUID]sales.SaleItemAllocation
	waybills     map[uuid.UUID]delivery.Waybill
	notes        map[uuid.UUID]credit.PromissoryNote
}

// NewInMemoryRepositories creates an empty in-memory repository set
func NewInMemoryRepositories() *InMemoryRepositories {
	return &InMemoryRepositories{
		products:     make(map[uuid.UUID]catalog.Product),
		lots:         make(map[uuid.UUID]inventory.InventoryLot),
		transactions: make([]inventory.InventoryTransaction, 0),
		sales:        make(map[uuid.UUID]sales.Sale),
		saleItems:    make(map[uuid.UUID]sales.SaleItem),
		backorders:   make(map[uuid.UUID]sales.Backorder),
		allocations:  make(map[uuid.UUID]sales.SaleItemAllocation),
		waybills:     make(map[uuid.UUID]delivery.Waybill),
		notes:        make(map[uuid.UUID]credit.PromissoryNote),
	}
}

// Products returns the product repository
func (r *InMemoryRepositories) Products() catalog.ProductRepository {
	return &memProductRepo{r}
}

// Lots returns the inventory lot repository
func (r *InMemoryRepositories) Lots() inventory.LotRepository {
	return &memLotRepo{r}
}

// InventoryTransactions returns the append-only audit repository
func (r *InMemoryRepositories) InventoryTransactions() inventory.TransactionRepository {
	return &memTxRepo{r}
}

// Sales returns the sale repository
func (r *InMemoryRepositories) Sales() sales.SaleRepository {
	return &memSaleRepo{r}
}

// SaleItems returns the demand line repository
func (r *InMemoryRepositories) SaleItems() sales.SaleItemRepository {
	return &memSaleItemRepo{r}
}

// Backorders returns the backorder repository
func (r *InMemoryRepositories) Backorders() sales.BackorderRepository {
	return &memBackorderRepo{r}
}

// Allocations returns the sale allocation ledger repository
func (r *InMemoryRepositories) Allocations() sales.AllocationRepository {
	return &memAllocationRepo{r}
}

// Waybills returns the waybill repository
func (r *InMemoryRepositories) Waybills() delivery.WaybillRepository {
	return &memWaybillRepo{r}
}

// Notes returns the promissory note repository
func (r *InMemoryRepositories) Notes() credit.NoteRepository {
	return &memNoteRepo{r}
}

type memProductRepo struct{ db *InMemoryRepositories }

func (r *memProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := r.db.products[id]; ok {
		return &p, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *memProductRepo) FindBySKU(_ context.Context, sku string) (*catalog.Product, error) {
	for _, p := range r.db.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memProductRepo) FindAll(_ context.Context, filter shared.Filter) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(r.db.products))
	for _, p := range r.db.products {
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memProductRepo) Save(_ context.Context, product *catalog.Product) error {
	r.db.products[product.ID] = *product
	return nil
}

func (r *memProductRepo) ApplyQuantityDelta(_ context.Context, productID uuid.UUID, delta decimal.Decimal) error {
	p, ok := r.db.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	p.ApplyQuantityDelta(delta)
	r.db.products[productID] = p
	return nil
}

func (r *memProductRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.db.products)), nil
}

type memLotRepo struct{ db *InMemoryRepositories }

func (r *memLotRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryLot, error) {
	if l, ok := r.db.lots[id]; ok {
		return &l, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memLotRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryLot, error) {
	return r.FindByID(ctx, id)
}

func (r *memLotRepo) FindByNaturalKey(_ context.Context, productID, storeID uuid.UUID, lotNumber string) (*inventory.InventoryLot, error) {
	for _, l := range r.db.lots {
		if l.ProductID == productID && l.StoreID == storeID && l.LotNumber == lotNumber {
			return &l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLotRepo) FindSellable(_ context.Context, productID, storeID uuid.UUID) ([]inventory.InventoryLot, error) {
	out := make([]inventory.InventoryLot, 0)
	for _, l := range r.db.lots {
		if l.ProductID == productID && l.StoreID == storeID && l.IsSellable() {
			out = append(out, l)
		}
	}
	sortLotsByReceipt(out)
	return out, nil
}

func (r *memLotRepo) FindSellableForUpdate(ctx context.Context, productID, storeID uuid.UUID) ([]inventory.InventoryLot, error) {
	return r.FindSellable(ctx, productID, storeID)
}

func (r *memLotRepo) FindPlaceholder(_ context.Context, productID, storeID uuid.UUID) (*inventory.InventoryLot, error) {
	for _, l := range r.db.lots {
		if l.ProductID == productID && l.StoreID == storeID && l.IsPlaceholder() {
			return &l, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memLotRepo) FindPlaceholderForUpdate(ctx context.Context, productID, storeID uuid.UUID) (*inventory.InventoryLot, error) {
	return r.FindPlaceholder(ctx, productID, storeID)
}

func (r *memLotRepo) FindByProduct(_ context.Context, productID uuid.UUID, _ shared.Filter) ([]inventory.InventoryLot, error) {
	out := make([]inventory.InventoryLot, 0)
	for _, l := range r.db.lots {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	sortLotsByReceipt(out)
	return out, nil
}

func (r *memLotRepo) FindExpiringBefore(_ context.Context, storeID uuid.UUID, deadline time.Time, _ shared.Filter) ([]inventory.InventoryLot, error) {
	out := make([]inventory.InventoryLot, 0)
	for _, l := range r.db.lots {
		if l.StoreID == storeID && l.IsActive && !l.IsPlaceholder() && l.ExpiryDate != nil && l.ExpiryDate.Before(deadline) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return out, nil
}

func (r *memLotRepo) Save(_ context.Context, lot *inventory.InventoryLot) error {
	r.db.lots[lot.ID] = *lot
	return nil
}

func (r *memLotRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.db.lots)), nil
}

func sortLotsByReceipt(lots []inventory.InventoryLot) {
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].ReceivedDate.Equal(lots[j].ReceivedDate) {
			return lots[i].ReceivedDate.Before(lots[j].ReceivedDate)
		}
		return lots[i].LotNumber < lots[j].LotNumber
	})
}

type memTxRepo struct{ db *InMemoryRepositories }

func (r *memTxRepo) Create(_ context.Context, tx *inventory.InventoryTransaction) error {
	r.db.transactions = append(r.db.transactions, *tx)
	return nil
}

func (r *memTxRepo) FindByLot(_ context.Context, lotID uuid.UUID, _ shared.Filter) ([]inventory.InventoryTransaction, error) {
	out := make([]inventory.InventoryTransaction, 0)
	for _, tx := range r.db.transactions {
		if tx.LotID == lotID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memTxRepo) FindByProduct(_ context.Context, productID uuid.UUID, _ shared.Filter) ([]inventory.InventoryTransaction, error) {
	out := make([]inventory.InventoryTransaction, 0)
	for _, tx := range r.db.transactions {
		if tx.ProductID == productID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memTxRepo) FindByReference(_ context.Context, referenceID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	out := make([]inventory.InventoryTransaction, 0)
	for _, tx := range r.db.transactions {
		if tx.ReferenceID != nil && *tx.ReferenceID == referenceID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *memTxRepo) FindByDateRange(_ context.Context, start, end time.Time, _ shared.Filter) ([]inventory.InventoryTransaction, error) {
	out := make([]inventory.InventoryTransaction, 0)
	for _, tx := range r.db.transactions {
		if !tx.TransactionDate.Before(start) && !tx.TransactionDate.After(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type memSaleRepo struct{ db *InMemoryRepositories }

func (r *memSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.Sale, error) {
	s, ok := r.db.sales[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	s.Items = r.db.itemsOfSale(id)
	return &s, nil
}

func (r *memSaleRepo) FindByNumber(_ context.Context, saleNumber string) (*sales.Sale, error) {
	for id, s := range r.db.sales {
		if s.SaleNumber == saleNumber {
			s.Items = r.db.itemsOfSale(id)
			return &s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSaleRepo) FindAll(_ context.Context, _ shared.Filter) ([]sales.Sale, error) {
	out := make([]sales.Sale, 0, len(r.db.sales))
	for id, s := range r.db.sales {
		s.Items = r.db.itemsOfSale(id)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memSaleRepo) Save(_ context.Context, sale *sales.Sale) error {
	stored := *sale
	stored.Items = nil
	r.db.sales[sale.ID] = stored
	return nil
}

func (r *memSaleRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.db.sales)), nil
}

func (db *InMemoryRepositories) itemsOfSale(saleID uuid.UUID) []sales.SaleItem {
	items := make([]sales.SaleItem, 0)
	for _, item := range db.saleItems {
		if item.SaleID == saleID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items
}

type memSaleItemRepo struct{ db *InMemoryRepositories }

func (r *memSaleItemRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.SaleItem, error) {
	if item, ok := r.db.saleItems[id]; ok {
		return &item, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSaleItemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.SaleItem, error) {
	return r.FindByID(ctx, id)
}

func (r *memSaleItemRepo) FindBySale(_ context.Context, saleID uuid.UUID) ([]sales.SaleItem, error) {
	return r.db.itemsOfSale(saleID), nil
}

func (r *memSaleItemRepo) Save(_ context.Context, item *sales.SaleItem) error {
	r.db.saleItems[item.ID] = *item
	return nil
}

func (r *memSaleItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.db.saleItems[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.db.saleItems, id)
	return nil
}

type memBackorderRepo struct{ db *InMemoryRepositories }

func (r *memBackorderRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.Backorder, error) {
	if b, ok := r.db.backorders[id]; ok {
		return &b, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memBackorderRepo) FindOpenByProductAndStore(_ context.Context, productID, storeID uuid.UUID) ([]sales.Backorder, error) {
	out := make([]sales.Backorder, 0)
	for _, b := range r.db.backorders {
		if b.ProductID == productID && b.StoreID == storeID && b.IsActive {
			out = append(out, b)
		}
	}
	sales.NewCreationTimeFIFO().Sort(out)
	return out, nil
}

func (r *memBackorderRepo) FindOpenByProductAndStoreForUpdate(ctx context.Context, productID, storeID uuid.UUID) ([]sales.Backorder, error) {
	return r.FindOpenByProductAndStore(ctx, productID, storeID)
}

func (r *memBackorderRepo) FindOpenBySaleItemForUpdate(_ context.Context, saleItemID uuid.UUID) ([]sales.Backorder, error) {
	out := make([]sales.Backorder, 0)
	for _, b := range r.db.backorders {
		if b.SaleItemID == saleItemID && b.IsActive {
			out = append(out, b)
		}
	}
	sales.NewCreationTimeFIFO().Sort(out)
	return out, nil
}

func (r *memBackorderRepo) FindBySaleItem(_ context.Context, saleItemID uuid.UUID) ([]sales.Backorder, error) {
	out := make([]sales.Backorder, 0)
	for _, b := range r.db.backorders {
		if b.SaleItemID == saleItemID {
			out = append(out, b)
		}
	}
	sales.NewCreationTimeFIFO().Sort(out)
	return out, nil
}

func (r *memBackorderRepo) Save(_ context.Context, backorder *sales.Backorder) error {
	r.db.backorders[backorder.ID] = *backorder
	return nil
}

type memAllocationRepo struct{ db *InMemoryRepositories }

func (r *memAllocationRepo) FindByID(_ context.Context, id uuid.UUID) (*sales.SaleItemAllocation, error) {
	if a, ok := r.db.allocations[id]; ok {
		return &a, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memAllocationRepo) FindActiveByLotForUpdate(_ context.Context, lotID uuid.UUID) ([]sales.SaleItemAllocation, error) {
	out := make([]sales.SaleItemAllocation, 0)
	for _, a := range r.db.allocations {
		if a.LotID == lotID && a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (r *memAllocationRepo) FindBySaleItem(_ context.Context, saleItemID uuid.UUID) ([]sales.SaleItemAllocation, error) {
	out := make([]sales.SaleItemAllocation, 0)
	for _, a := range r.db.allocations {
		if a.SaleItemID == saleItemID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memAllocationRepo) FindActiveBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]sales.SaleItemAllocation, error) {
	all, err := r.FindBySaleItem(ctx, saleItemID)
	if err != nil {
		return nil, err
	}
	out := make([]sales.SaleItemAllocation, 0, len(all))
	for _, a := range all {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAllocationRepo) Save(_ context.Context, allocation *sales.SaleItemAllocation) error {
	r.db.allocations[allocation.ID] = *allocation
	return nil
}

type memWaybillRepo struct{ db *InMemoryRepositories }

func (r *memWaybillRepo) FindByID(_ context.Context, id uuid.UUID) (*delivery.Waybill, error) {
	if w, ok := r.db.waybills[id]; ok {
		clone := w
		clone.Items = cloneWaybillItems(w.Items)
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memWaybillRepo) FindByNumber(_ context.Context, waybillNumber string) (*delivery.Waybill, error) {
	for _, w := range r.db.waybills {
		if w.WaybillNumber == waybillNumber {
			clone := w
			clone.Items = cloneWaybillItems(w.Items)
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memWaybillRepo) FindBySale(_ context.Context, saleID uuid.UUID) ([]delivery.Waybill, error) {
	out := make([]delivery.Waybill, 0)
	for _, w := range r.db.waybills {
		if w.SaleID == saleID {
			clone := w
			clone.Items = cloneWaybillItems(w.Items)
			out = append(out, clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memWaybillRepo) FindAll(_ context.Context, _ shared.Filter) ([]delivery.Waybill, error) {
	out := make([]delivery.Waybill, 0, len(r.db.waybills))
	for _, w := range r.db.waybills {
		clone := w
		clone.Items = cloneWaybillItems(w.Items)
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memWaybillRepo) Save(_ context.Context, waybill *delivery.Waybill) error {
	clone := *waybill
	clone.Items = cloneWaybillItems(waybill.Items)
	r.db.waybills[waybill.ID] = clone
	return nil
}

func (r *memWaybillRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.db.waybills)), nil
}

func cloneWaybillItems(items []delivery.WaybillItem) []delivery.WaybillItem {
	out := make([]delivery.WaybillItem, len(items))
	for i := range items {
		out[i] = items[i]
		out[i].Allocations = append([]delivery.WaybillLotAllocation(nil), items[i].Allocations...)
	}
	return out
}

type memNoteRepo struct{ db *InMemoryRepositories }

func (r *memNoteRepo) FindByID(_ context.Context, id uuid.UUID) (*credit.PromissoryNote, error) {
	if n, ok := r.db.notes[id]; ok {
		clone := n
		clone.Items = append([]credit.PromissoryNoteItem(nil), n.Items...)
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memNoteRepo) FindOpenBySale(_ context.Context, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	for _, n := range r.db.notes {
		if n.SaleID == saleID && n.IsActive {
			clone := n
			clone.Items = append([]credit.PromissoryNoteItem(nil), n.Items...)
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memNoteRepo) FindOpenBySaleForUpdate(ctx context.Context, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	return r.FindOpenBySale(ctx, saleID)
}

func (r *memNoteRepo) FindBySaleForUpdate(_ context.Context, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	var latest *credit.PromissoryNote
	for _, n := range r.db.notes {
		if n.SaleID != saleID {
			continue
		}
		candidate := n
		if latest == nil || candidate.CreatedAt.After(latest.CreatedAt) {
			clone := candidate
			clone.Items = append([]credit.PromissoryNoteItem(nil), candidate.Items...)
			latest = &clone
		}
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	return latest, nil
}

func (r *memNoteRepo) FindByCustomer(_ context.Context, customerID uuid.UUID, _ shared.Filter) ([]credit.PromissoryNote, error) {
	out := make([]credit.PromissoryNote, 0)
	for _, n := range r.db.notes {
		if n.CustomerID == customerID {
			clone := n
			clone.Items = append([]credit.PromissoryNoteItem(nil), n.Items...)
			out = append(out, clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memNoteRepo) Save(_ context.Context, note *credit.PromissoryNote) error {
	clone := *note
	clone.Items = append([]credit.PromissoryNoteItem(nil), note.Items...)
	r.db.notes[note.ID] = clone
	return nil
}
