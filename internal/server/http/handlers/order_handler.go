package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
	"github.com/polkiloo/orderflow/internal/server/http/middleware"
)

// OrderFacadeWithCheckout combines the facades OrderHandler depends on.
type OrderFacadeWithCheckout interface {
	CheckoutFacade
	OrderFacade
}

// OrderHandler manages order-related endpoints.
type OrderHandler struct {
	facade OrderFacadeWithCheckout
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacadeWithCheckout) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	order, err := h.facade.CreateOrder(c.Request.Context(), principal.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewOrderResponse(*order))
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)
	orders, err := h.facade.Orders(c.Request.Context(), principal.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderListResponse(orders))
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := h.facade.Order(c.Request.Context(), middleware.CurrentPrincipal(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(*order))
}

// ListAll handles GET /admin/orders.
func (h *OrderHandler) ListAll(c *gin.Context) {
	orders, err := h.facade.AllOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderListResponse(orders))
}

// UpdateStatus handles PATCH /orders/:id/status.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeValidation, Message: "status is required"})
		return
	}
	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}

	order, err := h.facade.UpdateOrderStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewOrderResponse(*order))
}
