package service

import (
	"context"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/pricing"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WholesaleService handles wholesale quoting and order placement.
type WholesaleService struct {
	products  ProductRepository
	bulk      BulkOrderRepository
	ledger    *StockLedger
	pricer    *pricing.Engine
	publisher Publisher
	logger    *zap.Logger
}

// NewWholesaleService creates a new wholesale service
func NewWholesaleService(
	products ProductRepository,
	bulk BulkOrderRepository,
	ledger *StockLedger,
	pricer *pricing.Engine,
	publisher Publisher,
) *WholesaleService {
	return &WholesaleService{
		products:  products,
		bulk:      bulk,
		ledger:    ledger,
		pricer:    pricer,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// QuoteRequest asks for wholesale pricing on a set of lines.
type QuoteRequest struct {
	Items []ItemRequest `json:"items" binding:"required,min=1"`
}

// QuoteLine is a priced wholesale line plus availability hints. The
// insufficient flag never blocks quoting, only placement.
type QuoteLine struct {
	models.BulkOrderLine
	AvailableStock int  `json:"availableStock"`
	Insufficient   bool `json:"insufficient"`
}

// QuoteResponse is the read-only wholesale quote.
type QuoteResponse struct {
	Items           []QuoteLine     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	HasInsufficient bool            `json:"hasInsufficient"`
}

// Quote prices the requested lines without any side effects.
func (s *WholesaleService) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	ctx, span := util.StartSpan(ctx, "WholesaleService.Quote")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, apperr.Validationf("items are required")
	}

	byID, err := resolveProducts(ctx, s.products, req.Items)
	if err != nil {
		return nil, err
	}

	resp := &QuoteResponse{
		Items:       make([]QuoteLine, 0, len(req.Items)),
		TotalAmount: decimal.Zero,
	}

	for _, item := range req.Items {
		product := byID[item.ProductID]
		line, insufficient, err := s.pricer.WholesaleLine(product, item.Quantity)
		if err != nil {
			return nil, err
		}

		resp.Items = append(resp.Items, QuoteLine{
			BulkOrderLine:  line,
			AvailableStock: product.Stock,
			Insufficient:   insufficient,
		})
		resp.TotalAmount = resp.TotalAmount.Add(line.LineTotal)
		if insufficient {
			resp.HasInsufficient = true
		}
	}

	resp.TotalAmount = resp.TotalAmount.Round(2)
	util.WholesaleQuotesTotal.Inc()
	return resp, nil
}

// PlaceWholesaleOrderRequest represents a wholesale checkout submission.
type PlaceWholesaleOrderRequest struct {
	BuyerEmail string         `json:"buyerEmail"`
	Address    models.Address `json:"address"`
	Items      []ItemRequest  `json:"items" binding:"required,min=1"`
}

// PlaceWholesaleOrder re-derives all pricing server-side, reserves stock
// for every line (all-or-nothing), and persists the order as pending.
func (s *WholesaleService) PlaceWholesaleOrder(ctx context.Context, req *PlaceWholesaleOrderRequest) (*models.BulkOrder, error) {
	ctx, span := util.StartSpan(ctx, "WholesaleService.PlaceWholesaleOrder")
	defer span.End()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeWholesale, "invalid_items").Inc()
		return nil, apperr.Validationf("items are required")
	}

	byID, err := resolveProducts(ctx, s.products, req.Items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeWholesale, "invalid_items").Inc()
		return nil, err
	}

	lines := make([]models.BulkOrderLine, 0, len(req.Items))
	stockLines := make([]StockLine, 0, len(req.Items))
	total := decimal.Zero

	for _, item := range req.Items {
		product := byID[item.ProductID]
		line, _, err := s.pricer.WholesaleLine(product, item.Quantity)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues(models.OrderTypeWholesale, "invalid_items").Inc()
			return nil, err
		}

		lines = append(lines, line)
		stockLines = append(stockLines, StockLine{ProductID: product.ID, Name: product.Name, Quantity: item.Quantity})
		total = total.Add(line.LineTotal)
	}

	if err := s.ledger.ReserveAll(ctx, stockLines); err != nil {
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeWholesale, "reservation_failed").Inc()
		return nil, err
	}

	order := &models.BulkOrder{
		BuyerEmail:  normalizeEmail(req.BuyerEmail),
		Address:     req.Address,
		TotalAmount: total.Round(2),
		Status:      models.StatusPending,
		Items:       lines,
	}

	if err := s.bulk.CreateBulkOrder(ctx, order); err != nil {
		s.ledger.ReleaseAll(ctx, stockLines)
		util.OrdersFailedTotal.WithLabelValues(models.OrderTypeWholesale, "db_error").Inc()
		return nil, err
	}

	util.OrdersPlacedTotal.WithLabelValues(models.OrderTypeWholesale).Inc()
	s.logger.Info("Wholesale order placed",
		zap.Int64("order_id", order.ID),
		zap.String("total_amount", order.TotalAmount.String()))

	s.publishPlaced(ctx, order.View())
	return order, nil
}

// ListAll returns every wholesale order, newest first (admin view).
func (s *WholesaleService) ListAll(ctx context.Context) ([]models.BulkOrder, error) {
	return s.bulk.ListBulkOrders(ctx, store.OrderFilter{})
}

func (s *WholesaleService) publishPlaced(ctx context.Context, view models.OrderView) {
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
