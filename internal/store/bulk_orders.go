package store

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"

	"github.com/lib/pq"
)

// CreateBulkOrder persists a wholesale order and its line snapshot in one
// transaction.
func (s *Store) CreateBulkOrder(ctx context.Context, order *models.BulkOrder) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bulk_orders (buyer_email, address, total_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	if err := tx.QueryRowxContext(ctx, query,
		order.BuyerEmail, order.Address, order.TotalAmount, order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert bulk order: %w", err)
	}

	for i := range order.Items {
		it := &order.Items[i]
		it.OrderID = order.ID
		it.Position = i
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bulk_order_items (order_id, position, product_id, name, quantity, base_price, discount_percent, unit_price, line_total, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			it.OrderID, it.Position, it.ProductID, it.Name, it.Quantity,
			it.BasePrice, it.DiscountPercent, it.UnitPrice, it.LineTotal, it.ImageURL)
		if err != nil {
			return fmt.Errorf("failed to insert bulk order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetBulkOrderByID retrieves a wholesale order with its lines.
func (s *Store) GetBulkOrderByID(ctx context.Context, id int64) (*models.BulkOrder, error) {
	var order models.BulkOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM bulk_orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("bulk order not found: %d", id)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.bulkOrderItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	return &order, nil
}

// UpdateBulkOrderStatus updates a wholesale order's status.
func (s *Store) UpdateBulkOrderStatus(ctx context.Context, orderID int64, status models.Status) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE bulk_orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// GetBulkOrdersByEmail retrieves a buyer's wholesale orders, newest first.
func (s *Store) GetBulkOrdersByEmail(ctx context.Context, email string) ([]models.BulkOrder, error) {
	orders := []models.BulkOrder{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM bulk_orders WHERE buyer_email = $1 ORDER BY created_at DESC", email)
	if err != nil {
		return nil, err
	}
	return s.attachBulkOrderItems(ctx, orders)
}

// ListBulkOrders retrieves wholesale orders matching the filter, newest
// first. Amount bounds apply to total_amount.
func (s *Store) ListBulkOrders(ctx context.Context, f OrderFilter) ([]models.BulkOrder, error) {
	where, args := buildOrderWhere(f, "total_amount")

	orders := []models.BulkOrder{}
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM bulk_orders"+where+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	return s.attachBulkOrderItems(ctx, orders)
}

func (s *Store) attachBulkOrderItems(ctx context.Context, orders []models.BulkOrder) ([]models.BulkOrder, error) {
	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := s.bulkOrderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (s *Store) bulkOrderItems(ctx context.Context, orderIDs []int64) (map[int64][]models.BulkOrderLine, error) {
	var lines []models.BulkOrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM bulk_order_items WHERE order_id = ANY($1) ORDER BY order_id, position",
		pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]models.BulkOrderLine, len(orderIDs))
	for _, l := range lines {
		byOrder[l.OrderID] = append(byOrder[l.OrderID], l)
	}
	return byOrder, nil
}
