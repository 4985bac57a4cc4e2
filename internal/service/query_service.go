package service

import (
	"context"
	"sort"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/shopspring/decimal"
)

// ListFilter carries the raw admin listing filters as received from the
// query string. Dates are day-granular YYYY-MM-DD values.
type ListFilter struct {
	Status string
	From   string
	To     string
	Min    string
	Max    string
}

// QueryService merges retail and wholesale orders into one time-ordered,
// filterable view.
type QueryService struct {
	orders OrderRepository
	bulk   BulkOrderRepository
}

// NewQueryService creates a new query service
func NewQueryService(orders OrderRepository, bulk BulkOrderRepository) *QueryService {
	return &QueryService{orders: orders, bulk: bulk}
}

// ListMine returns the caller's orders across both variants, merged and
// sorted by creation time descending. No other filters apply.
func (s *QueryService) ListMine(ctx context.Context, email string) ([]models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "QueryService.ListMine")
	defer span.End()

	if email == "" {
		return nil, apperr.Validationf("email is required")
	}
	email = normalizeEmail(email)

	retail, err := s.orders.GetOrdersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	bulk, err := s.bulk.GetBulkOrdersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return mergeViews(retail, bulk), nil
}

// ListAll returns all orders across both variants matching the filter,
// merged and sorted by creation time descending (admin view). Amount
// bounds apply to each variant's own total field.
func (s *QueryService) ListAll(ctx context.Context, f ListFilter) ([]models.OrderView, error) {
	ctx, span := util.StartSpan(ctx, "QueryService.ListAll")
	defer span.End()

	filter, err := buildFilter(f)
	if err != nil {
		return nil, err
	}

	retail, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	bulk, err := s.bulk.ListBulkOrders(ctx, filter)
	if err != nil {
		return nil, err
	}

	return mergeViews(retail, bulk), nil
}

// buildFilter validates and normalizes the raw filter. Date bounds expand
// to the whole day: from-00:00:00 through to-23:59:59. Unparseable amount
// bounds are ignored rather than rejected.
func buildFilter(f ListFilter) (store.OrderFilter, error) {
	var out store.OrderFilter

	if f.Status != "" {
		status, err := models.ParseStatus(f.Status)
		if err != nil {
			return out, err
		}
		out.Status = string(status)
	}

	if f.From != "" {
		day, err := time.Parse("2006-01-02", f.From)
		if err != nil {
			return out, apperr.Validationf("invalid from date %q", f.From)
		}
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		out.From = &from
	}
	if f.To != "" {
		day, err := time.Parse("2006-01-02", f.To)
		if err != nil {
			return out, apperr.Validationf("invalid to date %q", f.To)
		}
		to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), day.Location())
		out.To = &to
	}

	if f.Min != "" {
		if min, err := decimal.NewFromString(f.Min); err == nil {
			out.MinAmount = &min
		}
	}
	if f.Max != "" {
		if max, err := decimal.NewFromString(f.Max); err == nil {
			out.MaxAmount = &max
		}
	}

	return out, nil
}

// mergeViews projects both variants to the common shape and sorts the
// union by createdAt descending.
func mergeViews(retail []models.Order, bulk []models.BulkOrder) []models.OrderView {
	views := make([]models.OrderView, 0, len(retail)+len(bulk))
	for i := range retail {
		views = append(views, retail[i].View())
	}
	for i := range bulk {
		views = append(views, bulk[i].View())
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views
}
