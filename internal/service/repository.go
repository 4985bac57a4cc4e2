package service

import (
	"context"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
)

// Narrow repository interfaces implemented by *store.Store. Services depend
// on these so the core logic can be exercised against in-memory fakes.

type ProductRepository interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	ListProducts(ctx context.Context, q store.ProductQuery) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
	ProductReferenced(ctx context.Context, productID int64) (bool, error)
	ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error)
	ReleaseStock(ctx context.Context, productID int64, quantity int) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.Status) error
	GetOrdersByEmail(ctx context.Context, email string) ([]models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
}

type BulkOrderRepository interface {
	CreateBulkOrder(ctx context.Context, order *models.BulkOrder) error
	GetBulkOrderByID(ctx context.Context, id int64) (*models.BulkOrder, error)
	UpdateBulkOrderStatus(ctx context.Context, orderID int64, status models.Status) error
	GetBulkOrdersByEmail(ctx context.Context, email string) ([]models.BulkOrder, error)
	ListBulkOrders(ctx context.Context, f store.OrderFilter) ([]models.BulkOrder, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, u *models.User) error
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	EnsureAdmin(ctx context.Context, username, passwordHash string) error
}

// ProductCache is the Redis-backed product snapshot cache.
type ProductCache interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	DeleteProducts(ctx context.Context, ids ...int64) error
}

// Publisher emits order domain events.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}
