package api

import (
	"errors"
	"net/http"
	"time"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type orderCreatedResponse struct {
	OrderNumber string    `json:"orderNumber"`
	ID          int64     `json:"id"`
	Status      string    `json:"status"`
	Total       float64   `json:"total"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"createdAt"`
	WhatsAppURL string    `json:"whatsappUrl"`
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid order body", zap.Error(err))
		fail(c, http.StatusBadRequest, "Invalid request data")
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeOrderError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}

	c.JSON(status, gin.H{
		"success": true,
		"data": orderCreatedResponse{
			OrderNumber: resp.OrderNumber,
			ID:          resp.ID,
			Status:      resp.Status,
			Total:       resp.Total.InexactFloat64(),
			Currency:    resp.Currency,
			CreatedAt:   resp.CreatedAt,
			WhatsAppURL: resp.WhatsAppURL,
		},
	})
}

func (h *Handler) writeOrderError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var cerr *service.CustomerPersistenceError
	var oerr *service.OrderPersistenceError

	switch {
	case errors.As(err, &verr):
		fail(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrOrderInProgress):
		fail(c, http.StatusConflict, "Order is already being processed")
	case errors.As(err, &cerr):
		h.logger.Error("Error creating/updating customer", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to create customer")
	case errors.As(err, &oerr):
		h.logger.Error("Error creating order", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to create order")
	default:
		h.logger.Error("Orders API error", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to create order")
	}
}
