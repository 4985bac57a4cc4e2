package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/broker"
	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventStore is the persistence surface the worker needs: product reads
// for stock checks and the processed-event ledger for idempotency.
type EventStore interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// StockAlertWorker consumes OrderPlaced events and logs a warning for
// every product whose remaining stock dropped below the threshold.
// Re-delivered events are skipped via the processed-event ledger.
type StockAlertWorker struct {
	consumer  *broker.Consumer
	store     EventStore
	threshold int
	logger    *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, store EventStore, threshold int) *StockAlertWorker {
	return &StockAlertWorker{
		consumer:  consumer,
		store:     store,
		threshold: threshold,
		logger:    util.GetLogger(),
	}
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	log.Println("Starting stock alert worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	log.Println("Stopping stock alert worker...")
	return w.consumer.Close()
}

func (w *StockAlertWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		w.logger.Warn("Failed to unmarshal event envelope", zap.Error(err))
		return nil
	}

	if base.EventType != models.EventTypeOrderPlaced {
		return nil
	}

	var event models.OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Warn("Failed to unmarshal OrderPlaced event", zap.Error(err))
		return nil
	}

	return w.HandleOrderPlaced(ctx, &event)
}

// HandleOrderPlaced checks every item of a placed order against the
// low-stock threshold, exactly once per event ID.
func (w *StockAlertWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Debug("Skipping already processed event", zap.String("event_id", event.EventID))
		return nil
	}

	for _, item := range event.Items {
		product, err := w.store.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return err
		}

		if product.Stock < w.threshold {
			util.LowStockAlertsTotal.Inc()
			w.logger.Warn("Product stock below threshold",
				zap.Int64("product_id", product.ID),
				zap.String("name", product.Name),
				zap.Int("stock", product.Stock),
				zap.Int("threshold", w.threshold),
				zap.Int64("order_id", event.OrderID),
			)
		}
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
