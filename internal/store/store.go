package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// ProductQuery narrows and sorts catalog listings.
type ProductQuery struct {
	Category string
	Search   string // case-insensitive name substring
	Sort     string // price_asc, price_desc, date_asc, date_desc
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFoundf("product not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ListProducts retrieves catalog products matching the query.
func (s *Store) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)

	if q.Category != "" {
		args = append(args, q.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	query := "SELECT * FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	switch q.Sort {
	case "price_asc":
		query += " ORDER BY price ASC"
	case "price_desc":
		query += " ORDER BY price DESC"
	case "date_asc":
		query += " ORDER BY created_at ASC"
	default:
		query += " ORDER BY created_at DESC"
	}

	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, p, query,
		p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL)
}

// UpdateProduct saves edited product fields
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, category = $5, image_url = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	err := s.db.GetContext(ctx, &p.UpdatedAt, query,
		p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.ID)
	if err == sql.ErrNoRows {
		return apperr.NotFoundf("product not found: %d", p.ID)
	}
	return err
}

// DeleteProduct removes a product. The reference guard lives in the
// catalog service; this is the raw delete.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("product not found: %d", id)
	}
	return nil
}

// Categories returns the distinct non-empty product categories, sorted.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	cats := []string{}
	err := s.db.SelectContext(ctx, &cats,
		"SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category ASC")
	return cats, err
}

// ReserveStock atomically decrements stock iff at least qty units remain.
// The conditional UPDATE is a single statement, so two concurrent orders
// cannot both take the same last units. Returns false when stock was short.
func (s *Store) ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
		quantity, productID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseStock unconditionally increments stock by qty (cancellation path).
func (s *Store) ReleaseStock(ctx context.Context, productID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
		quantity, productID)
	return err
}

// ProductReferenced reports whether any retail or wholesale order line,
// in any status, still references the product.
func (s *Store) ProductReferenced(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id = $1)
		    OR EXISTS(SELECT 1 FROM bulk_order_items WHERE product_id = $1)`,
		productID)
	return exists, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
