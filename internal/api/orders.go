package api

import (
	"net/http"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.deps.Orders.CreateOrder(c.Request.Context(), &req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.respondError(c, err, "Order creation failed")
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) listUserOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListUserOrders(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.respondError(c, err, "Failed to fetch orders")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) listAllOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListAllOrders(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to fetch orders")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.deps.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		h.respondError(c, err, "Update failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
