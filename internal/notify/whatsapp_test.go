package notify

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() OrderSummary {
	rate := decimal.NewFromInt(315)
	quote := pricing.DefaultPolicy().Quote(decimal.RequireFromString("15.873"), rate)

	return OrderSummary{
		OrderNumber: "RSM1ABCDE12345",
		Customer: CustomerDetails{
			FullName: "Nimal Silva",
			Email:    "nimal@example.com",
			Phone:    "+94771234567",
			Address:  "12 Galle Rd, Colombo, 00300, Western Province",
		},
		Lines: []MessageLine{
			{Title: "Gray-Nicolls Bat", VariantName: "SH", Quantity: 1, UnitPrice: decimal.RequireFromString("15.873")},
		},
		Pricing: quote,
	}
}

func TestFormatOrderMessage(t *testing.T) {
	at := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

	msg := FormatOrderMessage(sampleSummary(), at)

	assert.True(t, strings.HasPrefix(msg, "🏏 *RALHUM SPORTS - Order Confirmation*\n\n"))
	assert.Contains(t, msg, "Name: Nimal Silva\n")
	assert.Contains(t, msg, "Address: 12 Galle Rd, Colombo, 00300, Western Province\n")
	assert.Contains(t, msg, "• Gray-Nicolls Bat (SH) x1 - LKR 5,000")
	assert.Contains(t, msg, "Subtotal: LKR 5,000\n")
	assert.Contains(t, msg, "Shipping: LKR 500\n")
	assert.Contains(t, msg, "Tax (15%): LKR 825\n")
	assert.Contains(t, msg, "*Total: LKR 6,325*")
	assert.Contains(t, msg, "Order ID: #RSM1ABCDE12345\n")
	assert.Contains(t, msg, "Special Instructions: None")
	assert.True(t, strings.HasSuffix(msg, "Thank you for choosing Ralhum Sports! 🏆"))
}

func TestFormatOrderMessageDateIsColomboTime(t *testing.T) {
	if colombo == time.UTC {
		t.Skip("tzdata not available")
	}
	at := time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC)

	msg := FormatOrderMessage(sampleSummary(), at)

	// UTC+05:30 rolls over to the next day
	assert.Contains(t, msg, "Date: 06/03/2024, 01:30\n")
}

func TestFormatOrderMessageWithoutVariantAndWithInstructions(t *testing.T) {
	s := sampleSummary()
	s.Lines[0].VariantName = ""
	s.Lines[0].Quantity = 2
	s.Customer.SpecialInstructions = "Call before delivery"

	msg := FormatOrderMessage(s, time.Now())

	assert.Contains(t, msg, "• Gray-Nicolls Bat x2 - LKR 10,000")
	assert.Contains(t, msg, "Special Instructions: Call before delivery")
}

func TestDeepLink(t *testing.T) {
	link := DeepLink("+94772350712", "Hello world & 100% sure?\nLine 2 +")

	assert.True(t, strings.HasPrefix(link, "https://wa.me/94772350712?text="))
	assert.NotContains(t, link, "+")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Hello world & 100% sure?\nLine 2 +", u.Query().Get("text"))
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	a := GenerateOrderNumber(now)
	b := GenerateOrderNumber(now)

	assert.True(t, strings.HasPrefix(a, "RSLOYW3V28"))
	assert.Len(t, a, len("RSLOYW3V28")+5)
	assert.NotEqual(t, a, b)

	_, ok := NormalizeOrderNumber(a)
	assert.True(t, ok)
}

func TestNormalizeOrderNumber(t *testing.T) {
	n, ok := NormalizeOrderNumber("  rs-abc123 ")
	assert.True(t, ok)
	assert.Equal(t, "RS-ABC123", n)

	_, ok = NormalizeOrderNumber("ab")
	assert.False(t, ok)

	_, ok = NormalizeOrderNumber("RS_123!")
	assert.False(t, ok)
}
