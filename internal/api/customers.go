package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/models"
	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type customerResponse struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	Addresses models.Addresses `json:"addresses"`
}

// upsertCustomer registers a customer or merges new details into an existing one
func (h *Handler) upsertCustomer(c *gin.Context) {
	var in service.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request data")
		return
	}

	// explicit registration opts in unless told otherwise
	if in.MarketingOptIn == nil {
		optIn := true
		in.MarketingOptIn = &optIn
	}

	res, err := h.customerService.Upsert(c.Request.Context(), in)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			fail(c, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("Error creating/updating customer", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Failed to create/update customer")
		return
	}

	customer := res.Customer
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": customerResponse{
			ID:        customer.ID,
			Name:      customer.Name,
			Email:     customer.Email,
			Phone:     customer.PrimaryPhone,
			Addresses: customer.Addresses,
		},
	})
}
