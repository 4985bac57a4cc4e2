package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/pricing"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles retail order placement and the shared order
// lifecycle (admin status updates, customer cancellation) for both
// variants.
type OrderService struct {
	products  ProductRepository
	orders    OrderRepository
	bulk      BulkOrderRepository
	ledger    *StockLedger
	pricer    *pricing.Engine
	publisher Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	products ProductRepository,
	orders OrderRepository,
	bulk BulkOrderRepository,
	ledger *StockLedger,
	pricer *pricing.Engine,
	publisher Publisher,
) *OrderService {
	return &OrderService{
		products:  products,
		orders:    orders,
		bulk:      bulk,
		ledger:    ledger,
		pricer:    pricer,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ItemRequest is one requested line. Only productId and qty matter; any
// client-sent price or name is a display hint and is never trusted.
type ItemRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"qty" binding:"required,min=1"`
}

// PlaceRetailOrderRequest represents a retail checkout submission.
type PlaceRetailOrderRequest struct {
	CustomerEmail string         `json:"customerEmail"`
	Address       models.Address `json:"address"`
	Items         []ItemRequest  `json:"items" binding:"required,min=1"`
}

// PlaceRetailOrder prices every line from the current product records,
// reserves stock for all lines (all-or-nothing), and persists the order
// as a pending snapshot.
func (s *OrderService) PlaceRetailOrder(ctx context.Context, req *PlaceRetailOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceRetailOrder")
	defer span.End()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeRetail, "invalid_items").Inc()
		return nil, apperr.Validationf("items are required")
	}

	byID, err := resolveProducts(ctx, s.products, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeRetail, "invalid_items").Inc()
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(req.Items))
	stockLines := make([]StockLine, 0, len(req.Items))
	amount := decimal.Zero

	for _, item := range req.Items {
		product := byID[item.ProductID]
		line, err := s.pricer.RetailLine(product, item.Quantity)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues(models.OrderTypeRetail, "invalid_items").Inc()
			return nil, err
		}

		lines = append(lines, line)
		stockLines = append(stockLines, StockLine{ProductID: product.ID, Name: product.Name, Quantity: item.Quantity})
		amount = amount.Add(line.LineTotal)
	}

	if err := s.ledger.ReserveAll(ctx, stockLines); err != nil {
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeRetail, "reservation_failed").Inc()
		return nil, err
	}

	order := &models.Order{
		CustomerEmail: normalizeEmail(req.CustomerEmail),
		Address:       req.Address,
		Amount:        amount.Round(2),
		Status:        models.StatusPending,
		Items:         lines,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		// The order row never existed; hand the reserved units back.
		s.ledger.ReleaseAll(ctx, stockLines)
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeRetail, "db_error").Inc()
		return nil, err
	}

	util.OrdersPlacedTotal.WithLabelValues(models.OrderTypeRetail).Inc()
	s.logger.Info("Retail order placed",
		zap.Int64("order_id", order.ID),
		zap.String("amount", order.Amount.String()))

	s.publishPlaced(ctx, order.View())
	return order, nil
}

// UpdateStatus is the admin path: any valid status may be set from any
// non-cancelled state. Moving into cancelled releases the order's line
// snapshot quantities back to stock.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, statusValue string) (*models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	status, err := models.ParseStatus(statusValue)
	if err != nil {
		return nil, err
	}

	view, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := view.Status.CanTransitionTo(status); err != nil {
		return nil, err
	}

	if status == models.StatusCancelled && view.Status != models.StatusCancelled {
		s.ledger.ReleaseAll(ctx, stockLinesFromView(view))
		util.OrdersCancelledTotal.WithLabelValues(view.OrderType).Inc()
	}

	if err := s.setStatus(ctx, view, status); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, view, view.Status, status)
	view.Status = status
	return view, nil
}

// Cancel is the customer path: the caller must own the order, and
// delivered or already-cancelled orders cannot be cancelled.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, email string) (*models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	if email == "" {
		return nil, apperr.Validationf("email is required")
	}
	email = normalizeEmail(email)

	view, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if view.CustomerEmail != email {
		return nil, apperr.Unauthorizedf("order does not belong to %s", email)
	}

	if err := view.Status.CancellableByCustomer(); err != nil {
		return nil, err
	}

	s.ledger.ReleaseAll(ctx, stockLinesFromView(view))

	if err := s.setStatus(ctx, view, models.StatusCancelled); err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.WithLabelValues(view.OrderType).Inc()
	s.logger.Info("Order cancelled by customer",
		zap.Int64("order_id", view.ID),
		zap.String("order_type", view.OrderType))

	s.publishCancelled(ctx, view, "customer_cancelled")
	view.Status = models.StatusCancelled
	return view, nil
}

// findOrder looks the ID up in the retail table first, then the wholesale
// table, and returns the normalized view. Both tables draw IDs from the
// shared order_ids sequence (migrations/0001_init.sql), so a bare ID can
// match at most one order.
func (s *OrderService) findOrder(ctx context.Context, orderID int64) (*models.OrderView, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err == nil {
		view := order.View()
		return &view, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	bulkOrder, err := s.bulk.GetBulkOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFoundf("order not found: %d", orderID)
		}
		return nil, err
	}
	view := bulkOrder.View()
	return &view, nil
}

func (s *OrderService) setStatus(ctx context.Context, view *models.OrderView, status models.Status) error {
	if view.OrderType == models.OrderTypeWholesale {
		return s.bulk.UpdateBulkOrderStatus(ctx, view.ID, status)
	}
	return s.orders.UpdateOrderStatus(ctx, view.ID, status)
}

func (s *OrderService) publishPlaced(ctx context.Context, view models.OrderView) {
	if s.publisher == nil {
		return
	}
	items := make([]models.EventItem, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, models.EventItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	event := &models.OrderPlacedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:       view.ID,
		OrderType:     view.OrderType,
		CustomerEmail: view.CustomerEmail,
		Amount:        view.Amount,
		Items:         items,
	}
	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

func (s *OrderService) publishCancelled(ctx context.Context, view *models.OrderView, reason string) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   view.ID,
		OrderType: view.OrderType,
		Reason:    reason,
	}
	if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}
}

func (s *OrderService) publishStatusChanged(ctx context.Context, view *models.OrderView, oldStatus, newStatus models.Status) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   view.ID,
		OrderType: view.OrderType,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

// resolveProducts batch-fetches the distinct products referenced by the
// requested lines, keyed by ID. Any unknown product fails the whole
// request with a not-found error.
func resolveProducts(ctx context.Context, repo ProductRepository, items []ItemRequest) (map[int64]*models.Product, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, item := range items {
		if _, ok := byID[item.ProductID]; !ok {
			return nil, apperr.NotFoundf("product not found: %d", item.ProductID)
		}
	}
	return byID, nil
}

func stockLinesFromView(view *models.OrderView) []StockLine {
	lines := make([]StockLine, 0, len(view.Items))
	for _, it := range view.Items {
		lines = append(lines, StockLine{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity})
	}
	return lines
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
