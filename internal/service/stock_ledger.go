package service

import (
	"context"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// StockLine is one product/quantity pair to reserve or release.
type StockLine struct {
	ProductID int64
	Name      string
	Quantity  int
}

// StockLedger wraps the store's atomic per-product reserve/release with
// multi-line semantics: reserving N lines is N independent conditional
// decrements, and a failure part-way releases the lines already taken so
// no reservation is left stuck.
type StockLedger struct {
	products ProductRepository
	cache    ProductCache
	logger   *zap.Logger
}

// NewStockLedger creates a stock ledger over the product repository.
func NewStockLedger(products ProductRepository, cache ProductCache) *StockLedger {
	return &StockLedger{
		products: products,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// ReserveAll reserves every line or none. On a failed line it releases the
// lines reserved before it and returns an insufficient-stock error naming
// the offending product.
func (l *StockLedger) ReserveAll(ctx context.Context, lines []StockLine) error {
	ctx, span := util.StartSpan(ctx, "StockLedger.ReserveAll")
	defer span.End()

	start := time.Now()
	defer func() {
		util.StockReserveLatency.Observe(time.Since(start).Seconds())
	}()

	for i, line := range lines {
		ok, err := l.products.ReserveStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			util.StockReservationsFailed.WithLabelValues("error").Inc()
			l.ReleaseAll(ctx, lines[:i])
			return err
		}
		if !ok {
			util.StockReservationsFailed.WithLabelValues("insufficient_stock").Inc()
			l.ReleaseAll(ctx, lines[:i])
			return apperr.InsufficientStockf("insufficient stock for %s", line.Name)
		}
	}

	l.invalidate(ctx, lines)
	return nil
}

// ReleaseAll increments stock back for every line. Used on cancellation and
// as the compensation step of a failed multi-line reserve. Release is
// unconditional; failures are logged and the remaining lines still run.
func (l *StockLedger) ReleaseAll(ctx context.Context, lines []StockLine) {
	for _, line := range lines {
		if err := l.products.ReleaseStock(ctx, line.ProductID, line.Quantity); err != nil {
			l.logger.Error("Failed to release stock",
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			continue
		}
		util.StockReleasedTotal.Add(float64(line.Quantity))
	}
	l.invalidate(ctx, lines)
}

func (l *StockLedger) invalidate(ctx context.Context, lines []StockLine) {
	if l.cache == nil || len(lines) == 0 {
		return
	}
	ids := make([]int64, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	if err := l.cache.DeleteProducts(ctx, ids...); err != nil {
		l.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}
