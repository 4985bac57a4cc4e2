package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// OrderFilter narrows admin order listings. From/To are inclusive and
// expected to already carry day-boundary times.
type OrderFilter struct {
	Status    string
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// buildOrderWhere renders the filter into a WHERE clause. amountCol differs
// between the retail (amount) and wholesale (total_amount) tables.
func buildOrderWhere(f OrderFilter, amountCol string) (string, []interface{}) {
	where := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if f.MinAmount != nil {
		args = append(args, *f.MinAmount)
		where = append(where, fmt.Sprintf("%s >= $%d", amountCol, len(args)))
	}
	if f.MaxAmount != nil {
		args = append(args, *f.MaxAmount)
		where = append(where, fmt.Sprintf("%s <= $%d", amountCol, len(args)))
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// CreateOrder persists a retail order and its line snapshot in one
// transaction. Line order-of-addition is preserved via position.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (customer_email, address, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	if err := tx.QueryRowxContext(ctx, query,
		order.CustomerEmail, order.Address, order.Amount, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		it := &order.Items[i]
		it.OrderID = order.ID
		it.Position = i
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, quantity, unit_price, line_total, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.OrderID, it.Position, it.ProductID, it.Name, it.Quantity, it.UnitPrice, it.LineTotal, it.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves a retail order with its lines.
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.orderItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	return &order, nil
}

// UpdateOrderStatus updates a retail order's status.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status models.Status) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// GetOrdersByEmail retrieves a customer's retail orders, newest first.
func (s *Store) GetOrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE customer_email = $1 ORDER BY created_at DESC", email)
	if err != nil {
		return nil, err
	}
	return s.attachOrderItems(ctx, orders)
}

// ListOrders retrieves retail orders matching the filter, newest first.
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	where, args := buildOrderWhere(f, "amount")

	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders"+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	return s.attachOrderItems(ctx, orders)
}

func (s *Store) attachOrderItems(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := s.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (s *Store) orderItems(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position",
		pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]models.OrderLine, len(orderIDs))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	return byOrder, nil
}
