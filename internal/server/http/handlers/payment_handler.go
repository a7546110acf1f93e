package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/domain/model"
	"github.com/polkiloo/orderflow/internal/server/http/dto"
	"github.com/polkiloo/orderflow/internal/server/http/middleware"
)

const maxWebhookBody = 1 << 20

// PaymentHandler manages gateway checkout and callback endpoints.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// CreatePreference handles POST /payments/create-preference.
func (h *PaymentHandler) CreatePreference(c *gin.Context) {
	var req dto.CreatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeValidation, Message: "orderId is required"})
		return
	}

	items := make([]model.PaymentItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.PaymentItem{
			ProductID: item.ProductID,
			Title:     strings.TrimSpace(item.Name),
			Quantity:  item.Quantity,
		})
	}

	intent, err := h.facade.CreatePaymentIntent(c.Request.Context(), middleware.CurrentPrincipal(c), req.OrderID, items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PreferenceResponse{RedirectURL: intent.RedirectURL, PreferenceID: intent.PreferenceID})
}

// Webhook handles POST /payments/webhook. The gateway always gets 200 so it stops redelivering;
// unapplied notifications are retried from the inbox.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		body = nil
	}
	h.facade.ReceiveWebhook(c.Request.Context(), model.WebhookDelivery{
		Body:      body,
		Query:     c.Request.URL.Query(),
		Signature: c.GetHeader("X-Signature"),
		RequestID: c.GetHeader(middleware.RequestIDHeader),
	})
	c.JSON(http.StatusOK, dto.WebhookAck{Received: true})
}
