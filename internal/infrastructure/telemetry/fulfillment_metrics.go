package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/sales"
	"github.com/stockops/backend/internal/domain/shared"
)

// FulfillmentMetrics records allocation and backorder activity. It is an
// event handler, so subscribing it to the event bus is all the wiring the
// application services need.
type FulfillmentMetrics struct {
	logger *zap.Logger

	lotsReceivedTotal        metric.Float64Counter
	stockConsumedTotal       metric.Float64Counter
	lotsDepletedTotal        metric.Int64Counter
	backordersCreatedTotal   metric.Float64Counter
	backordersFulfilledTotal metric.Float64Counter
	backordersRevertedTotal  metric.Float64Counter
}

// NewFulfillmentMetrics creates the fulfillment instruments on the meter
func NewFulfillmentMetrics(meter metric.Meter, logger *zap.Logger) (*FulfillmentMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fm := &FulfillmentMetrics{logger: logger}

	var err error
	if fm.lotsReceivedTotal, err = meter.Float64Counter(
		"stockops_lots_received_total",
		metric.WithDescription("Quantity received into inventory lots"),
		metric.WithUnit("{units}"),
	); err != nil {
		return nil, err
	}
	if fm.stockConsumedTotal, err = meter.Float64Counter(
		"stockops_stock_consumed_total",
		metric.WithDescription("Quantity consumed from inventory lots"),
		metric.WithUnit("{units}"),
	); err != nil {
		return nil, err
	}
	if fm.lotsDepletedTotal, err = meter.Int64Counter(
		"stockops_lots_depleted_total",
		metric.WithDescription("Lots drained to zero and deactivated"),
		metric.WithUnit("{lots}"),
	); err != nil {
		return nil, err
	}
	if fm.backordersCreatedTotal, err = meter.Float64Counter(
		"stockops_backorders_created_total",
		metric.WithDescription("Quantity deferred to backorders"),
		metric.WithUnit("{units}"),
	); err != nil {
		return nil, err
	}
	if fm.backordersFulfilledTotal, err = meter.Float64Counter(
		"stockops_backorders_fulfilled_total",
		metric.WithDescription("Backordered quantity fulfilled from new stock"),
		metric.WithUnit("{units}"),
	); err != nil {
		return nil, err
	}
	if fm.backordersRevertedTotal, err = meter.Float64Counter(
		"stockops_backorders_reverted_total",
		metric.WithDescription("Fulfilled quantity pushed back to backorders"),
		metric.WithUnit("{units}"),
	); err != nil {
		return nil, err
	}

	return fm, nil
}

// EventTypes lists the events this handler consumes
func (fm *FulfillmentMetrics) EventTypes() []string {
	return []string{
		inventory.EventTypeLotReceived,
		inventory.EventTypeStockConsumed,
		inventory.EventTypeLotDepleted,
		sales.EventTypeBackorderCreated,
		sales.EventTypeBackorderFulfilled,
		sales.EventTypeBackorderReverted,
	}
}

// Handle records the metric for a domain event
func (fm *FulfillmentMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.LotReceivedEvent:
		fm.lotsReceivedTotal.Add(ctx, e.Quantity.InexactFloat64(),
			metric.WithAttributes(productStoreAttrs(e.ProductID.String(), e.StoreID.String())...))
	case *inventory.StockConsumedEvent:
		fm.stockConsumedTotal.Add(ctx, e.Quantity.InexactFloat64(),
			metric.WithAttributes(productStoreAttrs(e.ProductID.String(), e.StoreID.String())...))
	case *inventory.LotDepletedEvent:
		fm.lotsDepletedTotal.Add(ctx, 1,
			metric.WithAttributes(productStoreAttrs(e.ProductID.String(), e.StoreID.String())...))
	case *sales.BackorderCreatedEvent:
		fm.backordersCreatedTotal.Add(ctx, e.Quantity.InexactFloat64(),
			metric.WithAttributes(productStoreAttrs(e.ProductID.String(), e.StoreID.String())...))
	case *sales.BackorderFulfilledEvent:
		fm.backordersFulfilledTotal.Add(ctx, e.Quantity.InexactFloat64(),
			metric.WithAttributes(productStoreAttrs(e.ProductID.String(), e.StoreID.String())...))
	case *sales.BackorderRevertedEvent:
		fm.backordersRevertedTotal.Add(ctx, e.Quantity.InexactFloat64(),
			metric.WithAttributes(productStoreAttrs(e.ProductID.String(), e.StoreID.String())...))
	default:
		fm.logger.Debug("unhandled event type", zap.String("event_type", event.EventType()))
	}
	return nil
}

func productStoreAttrs(productID, storeID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("product_id", productID),
		attribute.String("store_id", storeID),
	}
}

var _ shared.EventHandler = (*FulfillmentMetrics)(nil)
