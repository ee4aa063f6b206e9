package api

import (
	"errors"
	"net/http"

	"storefront-service/internal/cart"
	"storefront-service/internal/pricing"

	"github.com/gin-gonic/gin"
)

type quoteResponse struct {
	Subtotal     float64           `json:"subtotal"`
	Shipping     float64           `json:"shipping"`
	Tax          float64           `json:"tax"`
	Total        float64           `json:"total"`
	ExchangeRate float64           `json:"exchangeRate"`
	Currency     string            `json:"currency"`
	RateSource   string            `json:"rateSource"`
	Display      map[string]string `json:"display"`
}

// checkoutQuote prices a cart snapshot at the current rate
func (h *Handler) checkoutQuote(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid request data")
		return
	}

	cs, err := cart.Decode(body)
	if err != nil {
		if errors.Is(err, cart.ErrUnsupportedSchema) {
			fail(c, http.StatusBadRequest, "Unsupported cart version")
			return
		}
		fail(c, http.StatusBadRequest, "Invalid request data")
		return
	}
	if cs.IsEmpty() {
		fail(c, http.StatusBadRequest, "Cart is empty")
		return
	}

	rate := h.rates.Rate(c.Request.Context())
	q := h.policy.Quote(cs.Subtotal(), rate.Rate)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": quoteResponse{
			Subtotal:     q.Subtotal.InexactFloat64(),
			Shipping:     q.Shipping.InexactFloat64(),
			Tax:          q.Tax.InexactFloat64(),
			Total:        q.Total.InexactFloat64(),
			ExchangeRate: q.ExchangeRate.InexactFloat64(),
			Currency:     q.Currency,
			RateSource:   rate.Source,
			Display: map[string]string{
				"subtotal": pricing.Format(q.Subtotal),
				"shipping": pricing.Format(q.Shipping),
				"tax":      pricing.Format(q.Tax),
				"total":    pricing.Format(q.Total),
			},
		},
	})
}

// exchangeRate reports the rate checkout will use
func (h *Handler) exchangeRate(c *gin.Context) {
	rate := h.rates.Rate(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"base":     pricing.BaseCurrency,
			"target":   pricing.DisplayCurrency,
			"rate":     rate.Rate.InexactFloat64(),
			"source":   rate.Source,
			"fallback": rate.IsFallback(),
		},
	})
}
