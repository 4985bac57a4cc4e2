package pricing

import (
	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"

	"github.com/shopspring/decimal"
)

// Defaults for the wholesale rules when config does not override them.
const (
	DefaultWholesaleMinQty          = 10
	DefaultWholesaleDiscountPercent = 25
)

// Engine computes per-unit prices and line totals. Retail lines charge the
// catalog price flat; wholesale lines apply a fixed percentage discount.
// All monetary results are rounded to 2 decimals.
type Engine struct {
	minQty          int
	discountPercent int
	discountFactor  decimal.Decimal
}

// NewEngine creates a pricing engine with the given wholesale minimum
// quantity and discount percent.
func NewEngine(minQty, discountPercent int) *Engine {
	factor := decimal.NewFromInt(100 - int64(discountPercent)).Div(decimal.NewFromInt(100))
	return &Engine{
		minQty:          minQty,
		discountPercent: discountPercent,
		discountFactor:  factor,
	}
}

// WholesaleMinQty returns the minimum per-line wholesale quantity.
func (e *Engine) WholesaleMinQty() int { return e.minQty }

// RetailLine prices a retail line against the current product record.
func (e *Engine) RetailLine(p *models.Product, qty int) (models.OrderLine, error) {
	if qty <= 0 {
		return models.OrderLine{}, apperr.Validationf("invalid quantity %d for product %s", qty, p.Name)
	}
	total := p.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
	return models.OrderLine{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.Price,
		LineTotal: total,
		ImageURL:  p.ImageURL,
	}, nil
}

// WholesaleLine prices a wholesale line. The line is rejected when qty is
// below the wholesale minimum or the product's stock is below it (the
// product is not wholesale-eligible). The returned insufficient flag marks
// quantities above current stock; it never blocks quoting, only placement.
func (e *Engine) WholesaleLine(p *models.Product, qty int) (models.BulkOrderLine, bool, error) {
	if qty < e.minQty {
		return models.BulkOrderLine{}, false, apperr.Validationf("minimum quantity for wholesale is %d", e.minQty)
	}
	if p.Stock < e.minQty {
		return models.BulkOrderLine{}, false, apperr.Validationf("%s has stock less than %d, cannot be purchased in wholesale", p.Name, e.minQty)
	}

	unit := p.Price.Mul(e.discountFactor).Round(2)
	total := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)

	line := models.BulkOrderLine{
		ProductID:       p.ID,
		Name:            p.Name,
		Quantity:        qty,
		BasePrice:       p.Price,
		DiscountPercent: e.discountPercent,
		UnitPrice:       unit,
		LineTotal:       total,
		ImageURL:        p.ImageURL,
	}
	return line, qty > p.Stock, nil
}
