// Package notify builds the WhatsApp order hand-off: the confirmation message,
// the wa.me deep link and the Sri Lankan phone helpers used around them.
//
// The hand-off is one way. Nothing here can tell whether a message was sent.
package notify

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront-service/internal/pricing"

	"github.com/shopspring/decimal"
)

// StoreName heads every confirmation message
const StoreName = "RALHUM SPORTS"

// CustomerDetails is the contact block of a message
type CustomerDetails struct {
	FullName            string
	Email               string
	Phone               string
	Address             string
	SpecialInstructions string
}

// MessageLine is one product line. UnitPrice is in the base currency.
type MessageLine struct {
	Title       string
	VariantName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// OrderSummary is everything the confirmation message shows
type OrderSummary struct {
	OrderNumber string
	Customer    CustomerDetails
	Lines       []MessageLine
	Pricing     pricing.Quote
}

var colombo = loadLocation("Asia/Colombo")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatOrderMessage renders the order confirmation text for chat. at is shown
// in Sri Lanka time.
func FormatOrderMessage(s OrderSummary, at time.Time) string {
	var products strings.Builder
	for i, line := range s.Lines {
		if i > 0 {
			products.WriteString("\n")
		}
		lineTotal := pricing.Convert(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))), s.Pricing.ExchangeRate)

		products.WriteString("• ")
		products.WriteString(line.Title)
		if line.VariantName != "" {
			fmt.Fprintf(&products, " (%s)", line.VariantName)
		}
		fmt.Fprintf(&products, " x%d - %s", line.Quantity, pricing.Format(lineTotal))
	}

	instructions := strings.TrimSpace(s.Customer.SpecialInstructions)
	if instructions == "" {
		instructions = "None"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏏 *%s - Order Confirmation*\n\n", StoreName)

	b.WriteString("*Customer Details:*\n")
	fmt.Fprintf(&b, "Name: %s\n", s.Customer.FullName)
	fmt.Fprintf(&b, "Email: %s\n", s.Customer.Email)
	fmt.Fprintf(&b, "Phone: %s\n", s.Customer.Phone)
	fmt.Fprintf(&b, "Address: %s\n\n", s.Customer.Address)

	b.WriteString("*Order Summary:*\n")
	b.WriteString(products.String())
	b.WriteString("\n\n")

	b.WriteString("*Pricing:*\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", pricing.Format(s.Pricing.Subtotal))
	fmt.Fprintf(&b, "Shipping: %s\n", pricing.Format(s.Pricing.Shipping))
	fmt.Fprintf(&b, "Tax (15%%): %s\n", pricing.Format(s.Pricing.Tax))
	fmt.Fprintf(&b, "*Total: %s*\n\n", pricing.Format(s.Pricing.Total))

	fmt.Fprintf(&b, "Order ID: #%s\n", s.OrderNumber)
	fmt.Fprintf(&b, "Date: %s\n\n", at.In(colombo).Format("02/01/2006, 15:04"))

	fmt.Fprintf(&b, "Special Instructions: %s\n\n", instructions)
	fmt.Fprintf(&b, "Please confirm this order and provide payment instructions. Thank you for choosing %s! 🏆",
		titleCase(StoreName))

	return b.String()
}

// DeepLink builds https://wa.me/<digits>?text=<message>
func DeepLink(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	// wa.me wants %20, QueryEscape gives +
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")

	return "https://wa.me/" + digits + "?text=" + text
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
