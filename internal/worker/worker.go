package worker

import (
	"context"
	"fmt"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// Consumer is the message source; implemented by broker.Consumer
type Consumer interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// EventLedger records which events were already handled; implemented by store.Store
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// Notifier delivers a message to the shopper who owns an order
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogNotifier writes notifications to the service log
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (n *LogNotifier) Notify(_ context.Context, subject, body string) error {
	n.logger.Info("Customer notification", zap.String("subject", subject), zap.String("body", body))
	return nil
}

// OrderWorker turns order events into customer notifications. Kafka delivers at
// least once, so each event id is handled at most once through the ledger.
type OrderWorker struct {
	consumer     Consumer
	ledger       EventLedger
	notifier     Notifier
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderWorker creates a new order worker; ledger may be nil
func NewOrderWorker(consumer Consumer, ledger EventLedger, notifier Notifier) *OrderWorker {
	w := &OrderWorker{
		consumer:     consumer,
		ledger:       ledger,
		notifier:     notifier,
		eventHandler: broker.NewEventHandler(),
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler.OnOrderStatusChanged(w.handleStatusChanged)
	return w
}

// Start blocks consuming events until ctx is cancelled
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.consumer.Close()
}

func (w *OrderWorker) handleOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	subject := fmt.Sprintf("Order %s confirmed", e.OrderID)
	body := fmt.Sprintf("Thanks for shopping with NovaMart! %d item(s), total %.2f.", e.ItemCount, e.Total)
	if e.ShippingAddress != "" {
		body += " Shipping to " + e.ShippingAddress + "."
	}
	return w.once(ctx, e.BaseEvent, subject, body)
}

func (w *OrderWorker) handleStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	subject := fmt.Sprintf("Order %s update", e.OrderID)
	body := fmt.Sprintf("Your order is now %s.", e.Status)
	return w.once(ctx, e.BaseEvent, subject, body)
}

func (w *OrderWorker) once(ctx context.Context, base models.BaseEvent, subject, body string) error {
	ctx, span := util.StartSpan(ctx, "OrderWorker.handle")
	defer span.End()

	if w.ledger != nil && base.EventID != "" {
		done, err := w.ledger.IsEventProcessed(ctx, base.EventID)
		if err != nil {
			return fmt.Errorf("failed to check event %s: %w", base.EventID, err)
		}
		if done {
			w.logger.Debug("Skipping processed event", zap.String("event_id", base.EventID))
			return nil
		}
	}

	if err := w.notifier.Notify(ctx, subject, body); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}

	if w.ledger != nil && base.EventID != "" {
		if err := w.ledger.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
			return fmt.Errorf("failed to mark event %s: %w", base.EventID, err)
		}
	}
	return nil
}
