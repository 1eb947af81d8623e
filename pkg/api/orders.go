package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fooddelivery/pkg/orders"
)

func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrDuplicateDish),
		errors.Is(err, orders.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrUnknownCustomer),
		errors.Is(err, orders.ErrUnknownDish),
		errors.Is(err, orders.ErrUnknownCourier):
		return http.StatusUnprocessableEntity
	case errors.Is(err, orders.ErrOrderNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req orders.NewOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	details, err := h.orders.Place(c.Request.Context(), req)
	if err != nil {
		c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, details)
}

func (h *Handler) listOrders(c *gin.Context) {
	rows, err := h.orders.Overview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *Handler) getOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	details, err := h.orders.Details(c.Request.Context(), id)
	if err != nil {
		c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, details)
}

type statusRequest struct {
	StatusID uint `json:"status_id" binding:"required"`
}

func (h *Handler) setOrderStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orders.SetStatus(c.Request.Context(), id, req.StatusID); err != nil {
		c.JSON(orderErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status_id": req.StatusID})
}
