package api

import (
	"net/http"

	"marketplace-service/internal/service"

	"github.com/gin-gonic/gin"
)

// placeRetailOrder handles retail order placement
func (h *Handler) placeRetailOrder(c *gin.Context) {
	var req service.PlaceRetailOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.orders.PlaceRetailOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// listMyOrders returns the caller's retail and wholesale orders merged,
// newest first.
func (h *Handler) listMyOrders(c *gin.Context) {
	views, err := h.query.ListMine(c.Request.Context(), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// listAllOrders is the admin view over both order variants with status,
// date and amount filters.
func (h *Handler) listAllOrders(c *gin.Context) {
	filter := service.ListFilter{
		Status: c.Query("status"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Min:    c.Query("minAmount"),
		Max:    c.Query("maxAmount"),
	}

	views, err := h.query.ListAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

// updateOrderStatus handles admin lifecycle transitions on either variant.
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	view, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// cancelOrder handles customer-initiated cancellation. Ownership is
// checked against the email query parameter.
func (h *Handler) cancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.orders.Cancel(c.Request.Context(), id, c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// quoteWholesale prices a wholesale cart without reserving stock.
func (h *Handler) quoteWholesale(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	quote, err := h.wholesale.Quote(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// placeWholesaleOrder handles bulk order placement
func (h *Handler) placeWholesaleOrder(c *gin.Context) {
	var req service.PlaceWholesaleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	order, err := h.wholesale.PlaceWholesaleOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// listWholesaleOrders returns all bulk orders (admin).
func (h *Handler) listWholesaleOrders(c *gin.Context) {
	orders, err := h.wholesale.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
