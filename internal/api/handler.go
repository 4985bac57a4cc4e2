package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/service"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	orders    *service.OrderService
	wholesale *service.WholesaleService
	query     *service.QueryService
	auth      *service.AuthService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	orders *service.OrderService,
	wholesale *service.WholesaleService,
	query *service.QueryService,
	auth *service.AuthService,
) *Handler {
	return &Handler{
		catalog:   catalog,
		orders:    orders,
		wholesale: wholesale,
		query:     query,
		auth:      auth,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", h.listProducts)
			products.GET("/categories", h.listCategories)
			products.GET("/:id", h.getProduct)
			products.POST("", h.adminOnly(), h.createProduct)
			products.PUT("/:id", h.adminOnly(), h.updateProduct)
			products.DELETE("/:id", h.adminOnly(), h.deleteProduct)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", h.placeRetailOrder)
			orders.GET("/mine", h.listMyOrders)
			orders.POST("/:id/cancel", h.cancelOrder)
			orders.GET("", h.adminOnly(), h.listAllOrders)
			orders.PUT("/:id/status", h.adminOnly(), h.updateOrderStatus)
		}

		wholesale := v1.Group("/wholesale")
		{
			wholesale.POST("/quote", h.quoteWholesale)
			wholesale.POST("/orders", h.placeWholesaleOrder)
			wholesale.GET("/orders", h.adminOnly(), h.listWholesaleOrders)
		}

		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
			auth.GET("/profile", h.getProfile)
			auth.PUT("/profile", h.updateProfile)
		}

		v1.POST("/admin/login", h.adminLogin)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// adminOnly verifies the signed admin token on back-office routes.
func (h *Handler) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Admin-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not authenticated"})
			return
		}
		if err := h.auth.VerifyAdminToken(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// respondError maps typed error kinds to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrInsufficientStock):
		status = http.StatusConflict
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
