package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order type tags used when retail and wholesale orders are merged
// into a single view.
const (
	OrderTypeRetail    = "retail"
	OrderTypeWholesale = "wholesale"
)

// Product represents a product in the catalog. Stock is mutated only
// through the conditional reserve/release statements in the store.
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Category    string          `db:"category" json:"category"`
	ImageURL    string          `db:"image_url" json:"imageUrl"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// Address is an optional structured shipping address, stored as JSONB.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported address scan type %T", src)
	}
}

// OrderLine is a retail order line, immutable once the order is created.
// Price and name are snapshots of the product at placement time.
type OrderLine struct {
	OrderID   int64           `db:"order_id" json:"-"`
	Position  int             `db:"position" json:"-"`
	ProductID int64           `db:"product_id" json:"productId"`
	Name      string          `db:"name" json:"name"`
	Quantity  int             `db:"quantity" json:"qty"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"price"`
	LineTotal decimal.Decimal `db:"line_total" json:"lineTotal"`
	ImageURL  string          `db:"image_url" json:"imageUrl"`
}

// BulkOrderLine is a wholesale order line. It keeps the undiscounted base
// price and the applied discount for display and audit.
type BulkOrderLine struct {
	OrderID         int64           `db:"order_id" json:"-"`
	Position        int             `db:"position" json:"-"`
	ProductID       int64           `db:"product_id" json:"productId"`
	Name            string          `db:"name" json:"name"`
	Quantity        int             `db:"quantity" json:"qty"`
	BasePrice       decimal.Decimal `db:"base_price" json:"basePrice"`
	DiscountPercent int             `db:"discount_percent" json:"discountPercent"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unitPrice"`
	LineTotal       decimal.Decimal `db:"line_total" json:"lineTotal"`
	ImageURL        string          `db:"image_url" json:"imageUrl"`
}

// Order is a retail order. Amount is the sum of the persisted line totals
// at creation time and is never recomputed from live product prices.
type Order struct {
	ID            int64           `db:"id" json:"id"`
	CustomerEmail string          `db:"customer_email" json:"customerEmail"`
	Address       Address         `db:"address" json:"address"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        Status          `db:"status" json:"status"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
	Items         []OrderLine     `db:"-" json:"items"`
}

// BulkOrder is a wholesale order, stored separately from retail orders
// and merged with them only at query time.
type BulkOrder struct {
	ID          int64           `db:"id" json:"id"`
	BuyerEmail  string          `db:"buyer_email" json:"buyerEmail"`
	Address     Address         `db:"address" json:"address"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Status      Status          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
	Items       []BulkOrderLine `db:"-" json:"items"`
}

// ViewLine is the common line shape in a merged order view. Wholesale-only
// fields are omitted for retail lines.
type ViewLine struct {
	ProductID       int64            `json:"productId"`
	Name            string           `json:"name"`
	Quantity        int              `json:"qty"`
	UnitPrice       decimal.Decimal  `json:"price"`
	LineTotal       decimal.Decimal  `json:"lineTotal"`
	BasePrice       *decimal.Decimal `json:"basePrice,omitempty"`
	DiscountPercent *int             `json:"discountPercent,omitempty"`
	ImageURL        string           `json:"imageUrl"`
}

// OrderView is the variant-normalized projection of an order: bulk
// buyerEmail/totalAmount map onto customerEmail/amount, and OrderType
// carries the variant so consumers need no branching.
type OrderView struct {
	ID            int64           `json:"id"`
	OrderType     string          `json:"orderType"`
	CustomerEmail string          `json:"customerEmail"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	Address       Address         `json:"address"`
	CreatedAt     time.Time       `json:"createdAt"`
	Items         []ViewLine      `json:"items"`
}

// View projects a retail order to the common shape.
func (o *Order) View() OrderView {
	items := make([]ViewLine, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ViewLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
			ImageURL:  it.ImageURL,
		})
	}
	return OrderView{
		ID:            o.ID,
		OrderType:     OrderTypeRetail,
		CustomerEmail: o.CustomerEmail,
		Amount:        o.Amount,
		Status:        o.Status,
		Address:       o.Address,
		CreatedAt:     o.CreatedAt,
		Items:         items,
	}
}

// View projects a wholesale order to the common shape.
func (o *BulkOrder) View() OrderView {
	items := make([]ViewLine, 0, len(o.Items))
	for i := range o.Items {
		it := o.Items[i]
		items = append(items, ViewLine{
			ProductID:       it.ProductID,
			Name:            it.Name,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			LineTotal:       it.LineTotal,
			BasePrice:       &it.BasePrice,
			DiscountPercent: &it.DiscountPercent,
			ImageURL:        it.ImageURL,
		})
	}
	return OrderView{
		ID:            o.ID,
		OrderType:     OrderTypeWholesale,
		CustomerEmail: o.BuyerEmail,
		Amount:        o.TotalAmount,
		Status:        o.Status,
		Address:       o.Address,
		CreatedAt:     o.CreatedAt,
		Items:         items,
	}
}

// User roles
const (
	RoleCustomer  = "customer"
	RoleWholesale = "wholesale"
	RoleAdmin     = "admin"
)

// User represents a registered customer or wholesale account.
type User struct {
	ID                 int64     `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Email              string    `db:"email" json:"email"`
	PasswordHash       string    `db:"password_hash" json:"-"`
	Role               string    `db:"role" json:"role"`
	Phone              string    `db:"phone" json:"phone,omitempty"`
	Address            Address   `db:"address" json:"address"`
	IsWholesaleAccount bool      `db:"is_wholesale_account" json:"isWholesaleAccount"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// Admin is a back-office account. Logins issue a signed, expiring token.
type Admin struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// ProcessedEvent records consumed event IDs for worker idempotency.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
