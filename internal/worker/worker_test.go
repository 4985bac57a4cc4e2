package worker

import (
	"context"
	"testing"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventStore struct {
	products  map[int64]*models.Product
	processed map[string]string
	getCalls  int
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		products:  make(map[int64]*models.Product),
		processed: make(map[string]string),
	}
}

func (f *fakeEventStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	f.getCalls++
	p, ok := f.products[id]
	if !ok {
		return nil, apperr.NotFoundf("product not found: %d", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeEventStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	_, ok := f.processed[eventID]
	return ok, nil
}

func (f *fakeEventStore) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	f.processed[eventID] = eventType
	return nil
}

func placedEvent(eventID string, productIDs ...int64) *models.OrderPlacedEvent {
	items := make([]models.EventItem, 0, len(productIDs))
	for _, id := range productIDs {
		items = append(items, models.EventItem{ProductID: id, Quantity: 1})
	}
	return &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{EventID: eventID, EventType: models.EventTypeOrderPlaced},
		OrderID:   1,
		OrderType: models.OrderTypeRetail,
		Items:     items,
	}
}

func TestHandleOrderPlacedMarksEventProcessed(t *testing.T) {
	store := newFakeEventStore()
	store.products[1] = &models.Product{ID: 1, Name: "Mouse", Stock: 3}
	w := NewStockAlertWorker(nil, store, 10)

	require.NoError(t, w.HandleOrderPlaced(context.Background(), placedEvent("evt-1", 1)))
	assert.Equal(t, models.EventTypeOrderPlaced, store.processed["evt-1"])
}

func TestHandleOrderPlacedIsIdempotent(t *testing.T) {
	store := newFakeEventStore()
	store.products[1] = &models.Product{ID: 1, Name: "Mouse", Stock: 3}
	w := NewStockAlertWorker(nil, store, 10)
	ctx := context.Background()

	require.NoError(t, w.HandleOrderPlaced(ctx, placedEvent("evt-1", 1)))
	calls := store.getCalls

	// Re-delivery of the same event must not re-check stock.
	require.NoError(t, w.HandleOrderPlaced(ctx, placedEvent("evt-1", 1)))
	assert.Equal(t, calls, store.getCalls)
}

func TestHandleOrderPlacedSkipsMissingProducts(t *testing.T) {
	store := newFakeEventStore()
	store.products[2] = &models.Product{ID: 2, Name: "Lamp", Stock: 50}
	w := NewStockAlertWorker(nil, store, 10)

	// Product 1 was deleted since the order was placed; the event still
	// completes and is recorded.
	require.NoError(t, w.HandleOrderPlaced(context.Background(), placedEvent("evt-2", 1, 2)))
	assert.Contains(t, store.processed, "evt-2")
}
