// Package purchasing implements the receiving workflow: stock arrives into
// lots and, in the same transaction, open backorders for the received
// products are drained from the new stock.
package purchasing

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockops/backend/internal/application/fulfillment"
	"github.com/stockops/backend/internal/application/ledger"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// ReceivingService handles stock receipt operations
type ReceivingService struct {
	txScope        scope.TransactionScope
	coordinator    *fulfillment.Coordinator
	eventPublisher shared.EventPublisher
}

// NewReceivingService creates a new ReceivingService
func NewReceivingService(txScope scope.TransactionScope, coordinator *fulfillment.Coordinator) *ReceivingService {
	return &ReceivingService{txScope: txScope, coordinator: coordinator}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReceivingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ReceiveStock receives the request's lots into the store. Each line either
// creates a lot or increments the existing lot with the same
// product/store/lot-number key, appends a purchase audit record, and then
// immediately drains open backorders for the product from the received
// stock. The receipt and its fulfillments commit atomically: if any line
// fails, no stock arrives at all.
func (s *ReceivingService) ReceiveStock(ctx context.Context, req ReceiveStockRequest) (*ReceiveStockResult, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Receipt must have at least one line")
	}
	if req.StoreID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STORE", "Store ID cannot be empty")
	}

	var result *ReceiveStockResult
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		lines := make([]ReceiptLineResult, 0, len(req.Lines))
		for _, input := range req.Lines {
			if _, err := repos.Products().FindByID(ctx, input.ProductID); err != nil {
				return err
			}

			lot, err := ledger.CreateOrIncrementLot(ctx, repos, ledger.ReceiptInput{
				ProductID: input.ProductID,
				StoreID:   req.StoreID,
				LotNumber: input.LotNumber,
				Quantity:  input.Quantity,
				Prices: inventory.LotPrices{
					CostPrice:    input.CostPrice,
					SellingPrice: input.SellingPrice,
				},
				Dates: inventory.LotDates{
					ManufactureDate: input.ManufactureDate,
					ExpiryDate:      input.ExpiryDate,
				},
				Movement: ledger.Movement{
					Type:        inventory.TransactionTypePurchase,
					OperatorID:  req.OperatorID,
					ReferenceID: req.ReferenceID,
					Notes:       req.Notes,
				},
			})
			if err != nil {
				return err
			}
			s.publish(ctx, inventory.NewLotReceivedEvent(lot, input.Quantity))

			provisioned, err := s.coordinator.FulfillBackorders(ctx, repos, lot.ID, req.OperatorID)
			if err != nil {
				return err
			}

			lines = append(lines, ReceiptLineResult{
				LotID:       lot.ID,
				LotNumber:   lot.LotNumber,
				Received:    input.Quantity,
				Provisioned: provisioned,
			})
		}
		result = &ReceiveStockResult{Lines: lines}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ReceivingService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
