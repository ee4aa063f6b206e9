package api

import (
	"errors"
	"net/http"
	"time"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type trackedItemResponse struct {
	ProductName   string  `json:"productName"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	Subtotal      float64 `json:"subtotal"`
	SelectedSize  string  `json:"selectedSize,omitempty"`
	SelectedColor string  `json:"selectedColor,omitempty"`
}

type trackedOrderResponse struct {
	ID            int64                 `json:"id"`
	OrderNumber   string                `json:"orderNumber"`
	CustomerName  string                `json:"customerName"`
	OrderStatus   string                `json:"orderStatus"`
	PaymentStatus string                `json:"paymentStatus"`
	OrderTotal    float64               `json:"orderTotal"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
	OrderItems    []trackedItemResponse `json:"orderItems"`
	Shipping      service.Shipment      `json:"shipping"`
}

func (h *Handler) trackOrderQuery(c *gin.Context) {
	var req service.TrackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request data")
		return
	}
	h.trackOrder(c, req)
}

func (h *Handler) trackOrderBody(c *gin.Context) {
	var req service.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request data")
		return
	}
	h.trackOrder(c, req)
}

// trackOrder answers 200 for both found and not found
func (h *Handler) trackOrder(c *gin.Context, req service.TrackRequest) {
	res, err := h.trackingService.Track(c.Request.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			fail(c, http.StatusBadRequest, verr.Message)
			return
		}
		h.logger.Error("Order tracking error", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !res.Found {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"found":   false,
			"message": res.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"found":   true,
		"order":   toTrackedOrderResponse(res.Order),
	})
}

func toTrackedOrderResponse(o *service.TrackedOrder) trackedOrderResponse {
	items := make([]trackedItemResponse, 0, len(o.OrderItems))
	for _, item := range o.OrderItems {
		items = append(items, trackedItemResponse{
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice.InexactFloat64(),
			Subtotal:      item.Subtotal.InexactFloat64(),
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
		})
	}

	return trackedOrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.CustomerName,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		OrderTotal:    o.OrderTotal.InexactFloat64(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		OrderItems:    items,
		Shipping:      o.Shipping,
	}
}
