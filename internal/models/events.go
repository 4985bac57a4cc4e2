package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// EventItem is the line data carried in order events.
type EventItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderPlacedEvent is published when a retail or wholesale order is placed
// and its stock reserved.
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	OrderType     string          `json:"order_type"`
	CustomerEmail string          `json:"customer_email"`
	Amount        decimal.Decimal `json:"amount"`
	Items         []EventItem     `json:"items"`
}

// OrderCancelledEvent is published when an order is cancelled and its
// stock released.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OrderType string `json:"order_type"`
	Reason    string `json:"reason"`
}

// OrderStatusChangedEvent is published on admin status updates.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OrderType string `json:"order_type"`
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
}
