package service

import (
	"context"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles product CRUD for the admin collaborator and
// cached catalog reads. Stock is never edited here beyond the admin's
// explicit stock field; reservations go through the stock ledger.
type CatalogService struct {
	products ProductRepository
	cache    ProductCache
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products ProductRepository, cache ProductCache) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// List returns catalog products matching the query.
func (s *CatalogService) List(ctx context.Context, q store.ProductQuery) ([]models.Product, error) {
	return s.products.ListProducts(ctx, q)
}

// Get returns one product, preferring the cache. The cached stock value
// is advisory only; placement always checks the database.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, id)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
		} else if cached != nil {
			util.ProductCacheHits.Inc()
			return cached, nil
		}
		util.ProductCacheMisses.Inc()
	}

	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		go func(p models.Product) {
			bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := s.cache.SetProduct(bgCtx, &p); err != nil {
				s.logger.Warn("Failed to cache product in background", zap.Error(err))
			}
		}(*product)
	}

	return product, nil
}

// CreateProductRequest carries the admin product form.
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
}

// Create validates and inserts a product.
func (s *CatalogService) Create(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, apperr.Validationf("name is required")
	}
	if !req.Price.IsPositive() {
		return nil, apperr.Validationf("price must be positive")
	}
	if req.Stock < 0 {
		return nil, apperr.Validationf("stock cannot be negative")
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProductRequest carries a partial product edit; nil fields are
// left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"imageUrl"`
}

// Update applies a partial edit and invalidates the cached snapshot.
func (s *CatalogService) Update(ctx context.Context, id int64, req *UpdateProductRequest) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return nil, apperr.Validationf("price must be positive")
		}
		product.Price = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, apperr.Validationf("stock cannot be negative")
		}
		product.Stock = *req.Stock
	}
	if req.Category != nil && *req.Category != "" {
		product.Category = *req.Category
	}
	if req.ImageURL != nil && *req.ImageURL != "" {
		product.ImageURL = *req.ImageURL
	}

	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return product, nil
}

// Delete removes a product unless any order, in any status, still
// references it; historical order lines must keep resolvable snapshots.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if _, err := s.products.GetProductByID(ctx, id); err != nil {
		return err
	}

	referenced, err := s.products.ProductReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return apperr.Validationf("cannot delete product: it is present in one or more orders")
	}

	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Categories returns the distinct non-empty categories, sorted.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	return s.products.Categories(ctx)
}

func (s *CatalogService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteProducts(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.Int64("product_id", id), zap.Error(err))
	}
}
