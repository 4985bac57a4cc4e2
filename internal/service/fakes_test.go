package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/shopspring/decimal"
)

// fakeRepo is an in-memory stand-in for *store.Store. ReserveStock keeps
// the conditional check-and-decrement semantics of the SQL statement.
type fakeRepo struct {
	products   map[int64]*models.Product
	orders     map[int64]*models.Order
	bulkOrders map[int64]*models.BulkOrder
	users      map[string]*models.User
	admins     map[string]*models.Admin
	nextID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:   make(map[int64]*models.Product),
		orders:     make(map[int64]*models.Order),
		bulkOrders: make(map[int64]*models.BulkOrder),
		users:      make(map[string]*models.User),
		admins:     make(map[string]*models.Admin),
	}
}

// id mirrors the shared order_ids sequence: retail and bulk orders draw
// from one counter, so an ID never appears in both tables.
func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) addProduct(p models.Product) *models.Product {
	if p.ID == 0 {
		p.ID = f.id()
	}
	f.products[p.ID] = &p
	return &p
}

func (f *fakeRepo) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, apperr.NotFoundf("product not found: %d", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListProducts(_ context.Context, q store.ProductQuery) ([]models.Product, error) {
	out := []models.Product{}
	for _, p := range f.products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) CreateProduct(_ context.Context, p *models.Product) error {
	p.ID = f.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdateProduct(_ context.Context, p *models.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return apperr.NotFoundf("product not found: %d", p.ID)
	}
	cp := *p
	f.products[p.ID] = &cp
	return nil
}

func (f *fakeRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return apperr.NotFoundf("product not found: %d", id)
	}
	delete(f.products, id)
	return nil
}

func (f *fakeRepo) Categories(_ context.Context) ([]string, error) {
	seen := map[string]bool{}
	cats := []string{}
	for _, p := range f.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			cats = append(cats, p.Category)
		}
	}
	sort.Strings(cats)
	return cats, nil
}

func (f *fakeRepo) ProductReferenced(_ context.Context, productID int64) (bool, error) {
	for _, o := range f.orders {
		for _, it := range o.Items {
			if it.ProductID == productID {
				return true, nil
			}
		}
	}
	for _, o := range f.bulkOrders {
		for _, it := range o.Items {
			if it.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeRepo) ReserveStock(_ context.Context, productID int64, quantity int) (bool, error) {
	p, ok := f.products[productID]
	if !ok {
		return false, nil
	}
	if p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	return true, nil
}

func (f *fakeRepo) ReleaseStock(_ context.Context, productID int64, quantity int) error {
	if p, ok := f.products[productID]; ok {
		p.Stock += quantity
	}
	return nil
}

func (f *fakeRepo) CreateOrder(_ context.Context, order *models.Order) error {
	order.ID = f.id()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	cp := *order
	cp.Items = append([]models.OrderLine(nil), order.Items...)
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeRepo) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.NotFoundf("order not found: %d", id)
	}
	cp := *o
	cp.Items = append([]models.OrderLine(nil), o.Items...)
	return &cp, nil
}

func (f *fakeRepo) UpdateOrderStatus(_ context.Context, orderID int64, status models.Status) error {
	o, ok := f.orders[orderID]
	if !ok {
		return apperr.NotFoundf("order not found: %d", orderID)
	}
	o.Status = status
	return nil
}

func (f *fakeRepo) GetOrdersByEmail(_ context.Context, email string) ([]models.Order, error) {
	out := []models.Order{}
	for _, o := range f.orders {
		if o.CustomerEmail == email {
			out = append(out, *o)
		}
	}
	sortOrdersDesc(out)
	return out, nil
}

func (f *fakeRepo) ListOrders(_ context.Context, filter store.OrderFilter) ([]models.Order, error) {
	out := []models.Order{}
	for _, o := range f.orders {
		if !matchFilter(filter, string(o.Status), o.CreatedAt, o.Amount) {
			continue
		}
		out = append(out, *o)
	}
	sortOrdersDesc(out)
	return out, nil
}

func (f *fakeRepo) CreateBulkOrder(_ context.Context, order *models.BulkOrder) error {
	order.ID = f.id()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	cp := *order
	cp.Items = append([]models.BulkOrderLine(nil), order.Items...)
	f.bulkOrders[order.ID] = &cp
	return nil
}

func (f *fakeRepo) GetBulkOrderByID(_ context.Context, id int64) (*models.BulkOrder, error) {
	o, ok := f.bulkOrders[id]
	if !ok {
		return nil, apperr.NotFoundf("bulk order not found: %d", id)
	}
	cp := *o
	cp.Items = append([]models.BulkOrderLine(nil), o.Items...)
	return &cp, nil
}

func (f *fakeRepo) UpdateBulkOrderStatus(_ context.Context, orderID int64, status models.Status) error {
	o, ok := f.bulkOrders[orderID]
	if !ok {
		return apperr.NotFoundf("bulk order not found: %d", orderID)
	}
	o.Status = status
	return nil
}

func (f *fakeRepo) GetBulkOrdersByEmail(_ context.Context, email string) ([]models.BulkOrder, error) {
	out := []models.BulkOrder{}
	for _, o := range f.bulkOrders {
		if o.BuyerEmail == email {
			out = append(out, *o)
		}
	}
	sortBulkOrdersDesc(out)
	return out, nil
}

func (f *fakeRepo) ListBulkOrders(_ context.Context, filter store.OrderFilter) ([]models.BulkOrder, error) {
	out := []models.BulkOrder{}
	for _, o := range f.bulkOrders {
		if !matchFilter(filter, string(o.Status), o.CreatedAt, o.TotalAmount) {
			continue
		}
		out = append(out, *o)
	}
	sortBulkOrdersDesc(out)
	return out, nil
}

func (f *fakeRepo) CreateUser(_ context.Context, u *models.User) error {
	u.ID = f.id()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, apperr.NotFoundf("user not found: %s", email)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpdateUserProfile(_ context.Context, u *models.User) error {
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeRepo) GetAdminByUsername(_ context.Context, username string) (*models.Admin, error) {
	a, ok := f.admins[username]
	if !ok {
		return nil, apperr.NotFoundf("admin not found: %s", username)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) EnsureAdmin(_ context.Context, username, passwordHash string) error {
	if _, ok := f.admins[username]; ok {
		return nil
	}
	f.admins[username] = &models.Admin{ID: f.id(), Username: username, PasswordHash: passwordHash}
	return nil
}

func matchFilter(filter store.OrderFilter, status string, createdAt time.Time, amount decimal.Decimal) bool {
	if filter.Status != "" && status != filter.Status {
		return false
	}
	if filter.From != nil && createdAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && createdAt.After(*filter.To) {
		return false
	}
	if filter.MinAmount != nil && amount.LessThan(*filter.MinAmount) {
		return false
	}
	if filter.MaxAmount != nil && amount.GreaterThan(*filter.MaxAmount) {
		return false
	}
	return true
}

func sortOrdersDesc(out []models.Order) {
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
}

func sortBulkOrdersDesc(out []models.BulkOrder) {
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
}

// fakeCache records invalidations; reads always miss unless primed.
type fakeCache struct {
	items      map[int64]*models.Product
	deleted    []int64
	setCalls   int
	getCalls   int
	deleteErrs error
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[int64]*models.Product)}
}

func (c *fakeCache) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	c.getCalls++
	p, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCache) SetProduct(_ context.Context, p *models.Product) error {
	c.setCalls++
	cp := *p
	c.items[p.ID] = &cp
	return nil
}

func (c *fakeCache) DeleteProducts(_ context.Context, ids ...int64) error {
	for _, id := range ids {
		delete(c.items, id)
		c.deleted = append(c.deleted, id)
	}
	return c.deleteErrs
}

// fakePublisher records published events.
type fakePublisher struct {
	placed        []*models.OrderPlacedEvent
	cancelled     []*models.OrderCancelledEvent
	statusChanged []*models.OrderStatusChangedEvent
}

func (p *fakePublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.placed = append(p.placed, e)
	return nil
}

func (p *fakePublisher) PublishOrderCancelled(_ context.Context, e *models.OrderCancelledEvent) error {
	p.cancelled = append(p.cancelled, e)
	return nil
}

func (p *fakePublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.statusChanged = append(p.statusChanged, e)
	return nil
}
