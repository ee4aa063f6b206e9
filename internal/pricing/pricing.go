// Package pricing converts base-currency (USD) prices into LKR and computes
// the shipping, tax and total shown at checkout. All LKR amounts are whole
// rupees.
package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency codes
const (
	BaseCurrency    = "USD"
	DisplayCurrency = "LKR"
)

// Policy holds the configured pricing values
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
	FallbackRate          decimal.Decimal
}

// DefaultPolicy returns the storefront defaults: free shipping from LKR 23,625,
// LKR 500 flat fee below it, 15% tax and 315 LKR per USD when no live rate is known.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(23625),
		ShippingFee:           decimal.NewFromInt(500),
		TaxRate:               decimal.RequireFromString("0.15"),
		FallbackRate:          decimal.NewFromInt(315),
	}
}

// Quote is a priced checkout in LKR
type Quote struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	Currency     string          `json:"currency"`
}

// Convert multiplies amount by rate and rounds to the nearest whole unit
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(0)
}

// Shipping returns zero at or above the free-shipping threshold, the flat fee otherwise
func (p Policy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// Tax applies the tax rate to taxable (subtotal + shipping)
func (p Policy) Tax(taxable decimal.Decimal) decimal.Decimal {
	return taxable.Mul(p.TaxRate).Round(0)
}

// Quote prices a base-currency subtotal at rate. A non-positive rate falls back
// to the policy's fallback rate.
func (p Policy) Quote(baseSubtotal, rate decimal.Decimal) Quote {
	if !rate.IsPositive() {
		rate = p.FallbackRate
	}

	subtotal := Convert(baseSubtotal, rate)
	shipping := p.Shipping(subtotal)
	tax := p.Tax(subtotal.Add(shipping))

	return Quote{
		Subtotal:     subtotal,
		Shipping:     shipping,
		Tax:          tax,
		Total:        subtotal.Add(shipping).Add(tax),
		ExchangeRate: rate,
		Currency:     DisplayCurrency,
	}
}

var printer = message.NewPrinter(language.English)

// Format renders an LKR amount with digit grouping and no decimals, e.g. "LKR 23,625"
func Format(amount decimal.Decimal) string {
	return printer.Sprintf("%s %d", DisplayCurrency, amount.Round(0).IntPart())
}
