package service

import (
	"context"
	"testing"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderFixture() (*fakeRepo, *fakePublisher, *OrderService) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	pricer := pricing.NewEngine(pricing.DefaultWholesaleMinQty, pricing.DefaultWholesaleDiscountPercent)
	ledger := NewStockLedger(repo, newFakeCache())
	svc := NewOrderService(repo, repo, repo, ledger, pricer, pub)
	return repo, pub, svc
}

func TestPlaceRetailOrder(t *testing.T) {
	repo, pub, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "Widget", Price: decimal.RequireFromString("19.99"), Stock: 5})

	order, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		CustomerEmail: "Buyer@Example.com",
		Items:         []ItemRequest{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "buyer@example.com", order.CustomerEmail)
	assert.Equal(t, "59.97", order.Amount.StringFixed(2))
	require.Len(t, order.Items, 1)
	assert.Equal(t, "19.99", order.Items[0].UnitPrice.StringFixed(2))

	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 2, got.Stock)

	require.Len(t, pub.placed, 1)
	assert.Equal(t, models.OrderTypeRetail, pub.placed[0].OrderType)
}

func TestPlaceRetailOrderExhaustsStockThenFails(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	// Product A: stock 5. First order takes all 5, second order for 1 fails
	// and stock stays at 0.
	p := repo.addProduct(models.Product{Name: "A", Price: decimal.NewFromInt(10), Stock: 5})

	_, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{{ProductID: p.ID, Quantity: 5}},
	})
	require.NoError(t, err)

	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 0, got.Stock)

	_, err = svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "A")

	got, _ = repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 0, got.Stock)
}

func TestPlaceRetailOrderCompensatesPartialReservation(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	p1 := repo.addProduct(models.Product{Name: "First", Price: decimal.NewFromInt(5), Stock: 10})
	p2 := repo.addProduct(models.Product{Name: "Second", Price: decimal.NewFromInt(5), Stock: 1})

	_, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{
			{ProductID: p1.ID, Quantity: 4},
			{ProductID: p2.ID, Quantity: 2},
		},
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	// The first line's reservation was rolled back.
	got1, _ := repo.GetProductByID(ctx, p1.ID)
	got2, _ := repo.GetProductByID(ctx, p2.ID)
	assert.Equal(t, 10, got1.Stock)
	assert.Equal(t, 1, got2.Stock)
	assert.Empty(t, repo.orders)
}

func TestPlaceRetailOrderValidation(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	_, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{{ProductID: 999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	p := repo.addProduct(models.Product{Name: "W", Price: decimal.NewFromInt(10), Stock: 5})
	_, err = svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{{ProductID: p.ID, Quantity: 0}},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPlaceRetailOrderResolvesDuplicateLines(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	// Two lines referencing the same product resolve through one batch
	// lookup; each line is priced and reserved separately.
	p := repo.addProduct(models.Product{Name: "W", Price: decimal.NewFromInt(10), Stock: 10})

	order, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "50.00", order.Amount.StringFixed(2))

	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)

	// One unknown ID fails the whole request before anything is reserved.
	_, err = svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: 999, Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	got, _ = repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 5, got.Stock)
}

func TestCancelRestoresSnapshotQuantities(t *testing.T) {
	repo, pub, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "W", Price: decimal.NewFromInt(10), Stock: 8})

	order, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		CustomerEmail: "buyer@example.com",
		Items:         []ItemRequest{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	// Admin edits stock between placement and cancel; the cancel must
	// restore the snapshot quantity, not reconstruct from current stock.
	repo.products[p.ID].Stock = 100

	view, err := svc.Cancel(ctx, order.ID, "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, view.Status)

	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 103, got.Stock)

	require.Len(t, pub.cancelled, 1)
	assert.Equal(t, "customer_cancelled", pub.cancelled[0].Reason)
}

func TestCancelOwnershipAndTerminalStates(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "W", Price: decimal.NewFromInt(10), Stock: 10})
	order, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		CustomerEmail: "owner@example.com",
		Items:         []ItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, order.ID, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Cancel(ctx, order.ID, "intruder@example.com")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, models.StatusDelivered))
	_, err = svc.Cancel(ctx, order.ID, "owner@example.com")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, models.StatusCancelled))
	_, err = svc.Cancel(ctx, order.ID, "owner@example.com")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.Cancel(ctx, 404, "owner@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "W", Price: decimal.NewFromInt(10), Stock: 10})
	order, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{{ProductID: p.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	// pending -> shipped -> out_for_delivery -> delivered
	for _, next := range []string{"shipped", "out_for_delivery", "delivered"} {
		view, err := svc.UpdateStatus(ctx, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, models.Status(next), view.Status)
	}

	// No stock came back on forward transitions.
	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 6, got.Stock)
}

func TestUpdateStatusCancelReleasesStockOnce(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "W", Price: decimal.NewFromInt(10), Stock: 10})
	order, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{{ProductID: p.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	view, err := svc.UpdateStatus(ctx, order.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, view.Status)

	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 10, got.Stock)

	// cancelled is terminal: nothing may leave it, and a repeat cancel must
	// not release stock again.
	_, err = svc.UpdateStatus(ctx, order.ID, "shipped")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, order.ID, "cancelled")
	require.NoError(t, err)
	got, _ = repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 10, got.Stock)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "W", Price: decimal.NewFromInt(10), Stock: 10})
	order, err := svc.PlaceRetailOrder(ctx, &PlaceRetailOrderRequest{
		Items: []ItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, order.ID, "returned")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLifecycleResolvesEitherVariantByID(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "Crate", Price: decimal.NewFromInt(100), Stock: 100})

	retail := &models.Order{
		CustomerEmail: "alice@example.com",
		Amount:        decimal.NewFromInt(100),
		Status:        models.StatusPending,
		Items:         []models.OrderLine{{ProductID: p.ID, Name: "Crate", Quantity: 1, UnitPrice: decimal.NewFromInt(100), LineTotal: decimal.NewFromInt(100)}},
	}
	require.NoError(t, repo.CreateOrder(ctx, retail))

	bulk := &models.BulkOrder{
		BuyerEmail:  "bob@example.com",
		TotalAmount: decimal.NewFromInt(900),
		Status:      models.StatusPending,
		Items:       []models.BulkOrderLine{{ProductID: p.ID, Name: "Crate", Quantity: 12, UnitPrice: decimal.NewFromInt(75), LineTotal: decimal.NewFromInt(900)}},
	}
	require.NoError(t, repo.CreateBulkOrder(ctx, bulk))

	// IDs come from one sequence, never from per-table counters.
	assert.NotEqual(t, retail.ID, bulk.ID)

	// Bob cancels his wholesale order by its bare ID; alice's retail order
	// is untouched and only bob's quantities come back.
	view, err := svc.Cancel(ctx, bulk.ID, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeWholesale, view.OrderType)
	assert.Equal(t, models.StatusCancelled, repo.bulkOrders[bulk.ID].Status)
	assert.Equal(t, models.StatusPending, repo.orders[retail.ID].Status)

	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 112, got.Stock)

	// Admin status change on the retail ID resolves to the retail order.
	view, err = svc.UpdateStatus(ctx, retail.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeRetail, view.OrderType)
	assert.Equal(t, models.StatusShipped, repo.orders[retail.ID].Status)
	assert.Equal(t, models.StatusCancelled, repo.bulkOrders[bulk.ID].Status)
}

func TestUpdateStatusFindsBulkOrders(t *testing.T) {
	repo, _, svc := newOrderFixture()
	ctx := context.Background()

	p := repo.addProduct(models.Product{Name: "Crate", Price: decimal.NewFromInt(100), Stock: 50})

	bulk := &models.BulkOrder{
		BuyerEmail:  "shop@example.com",
		TotalAmount: decimal.NewFromInt(900),
		Status:      models.StatusPending,
		Items: []models.BulkOrderLine{
			{ProductID: p.ID, Name: "Crate", Quantity: 12, BasePrice: decimal.NewFromInt(100), DiscountPercent: 25, UnitPrice: decimal.NewFromInt(75), LineTotal: decimal.NewFromInt(900)},
		},
	}
	require.NoError(t, repo.CreateBulkOrder(ctx, bulk))

	view, err := svc.UpdateStatus(ctx, bulk.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.OrderTypeWholesale, view.OrderType)
	assert.Equal(t, "shop@example.com", view.CustomerEmail)
	assert.True(t, view.Amount.Equal(decimal.NewFromInt(900)))

	got, _ := repo.GetProductByID(ctx, p.ID)
	assert.Equal(t, 62, got.Stock)
}
