package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/cart"
	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/util"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	customers *fakeCustomerRepo
	orders    *fakeOrderRepo
	publisher *fakePublisher
	idem      *fakeIdempotencyStore
	svc       *OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		customers: newFakeCustomerRepo(),
		orders:    newFakeOrderRepo(),
		publisher: &fakePublisher{},
		idem:      newFakeIdempotencyStore(),
	}
	f.svc = NewOrderService(
		f.orders,
		NewCustomerService(f.customers, f.publisher),
		f.publisher,
		f.idem,
		OrderServiceConfig{
			Policy:         pricing.DefaultPolicy(),
			WhatsAppNumber: "+94772350712",
			IdempotencyTTL: time.Hour,
		},
	)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// One bat worth LKR 5,000 at 315
func singleItemRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		Customer: OrderCustomerInput{
			FullName: "Nimal Silva",
			Email:    "nimal@example.com",
			Phone:    "0771234567",
			Address:  colomboAddress,
		},
		Items: []cart.LineItem{
			{
				Kind:        cart.KindVariant,
				Product:     cart.Product{ID: "p-1", Title: "Gray-Nicolls Bat", SKU: "GN-BAT"},
				VariantID:   "v-sh",
				VariantName: "SH",
				Size:        "SH",
				Price:       dec("15.873"),
				Quantity:    1,
			},
		},
		Pricing: OrderPricingInput{
			Subtotal:     dec("5000"),
			Shipping:     dec("500"),
			Tax:          dec("825"),
			Total:        dec("6325"),
			ExchangeRate: dec("315"),
			Currency:     "LKR",
		},
	}
}

func TestCreateOrderNewCustomerBelowThreshold(t *testing.T) {
	f := newOrderFixture()
	req := singleItemRequest()

	resp, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.NotZero(t, resp.ID)
	assert.True(t, strings.HasPrefix(resp.OrderNumber, "RS"))
	assert.Equal(t, models.OrderStatusPending, resp.Status)
	assert.Equal(t, models.CurrencyLKR, resp.Currency)
	assert.True(t, dec("6325").Equal(resp.Total))
	assert.True(t, strings.HasPrefix(resp.WhatsAppURL, "https://wa.me/94772350712?text="))

	order, err := f.orders.GetOrderByNumber(context.Background(), resp.OrderNumber)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.OrderSourceWebsite, order.OrderSource)
	assert.False(t, order.MessageSent)
	assert.Equal(t, models.TemplateOrderConfirmation, order.MessageTemplate)
	assert.True(t, order.ShippingCost.IsPositive())
	assert.True(t, order.Discount.IsZero())
	assert.True(t, order.Total.Equal(dec("5000").Add(dec("500")).Add(dec("825"))))
	assert.Equal(t, "12 Galle Rd, Colombo, 00300, Western Province", order.DeliveryAddress)
	assert.Equal(t, "+94771234567", order.CustomerPhone)

	customer := f.customers.get("nimal@example.com")
	require.NotNil(t, customer)
	assert.Equal(t, customer.ID, order.CustomerID)

	assert.Equal(t, 1, f.orders.stats["p-1"])
	assert.Len(t, f.publisher.placed, 1)
	require.Len(t, f.publisher.intents, 1)
	assert.Equal(t, resp.WhatsAppURL, f.publisher.intents[0].DeepLink)
	assert.Contains(t, f.publisher.intents[0].Message, "*Total: LKR 6,325*")
}

func TestCreateOrderWhatsAppMessage(t *testing.T) {
	f := newOrderFixture()

	resp, err := f.svc.CreateOrder(context.Background(), singleItemRequest())
	require.NoError(t, err)

	u, err := url.Parse(resp.WhatsAppURL)
	require.NoError(t, err)
	text := u.Query().Get("text")

	assert.Contains(t, text, "• Gray-Nicolls Bat (SH) x1 - LKR 5,000")
	assert.Contains(t, text, "Tax (15%): LKR 825")
	assert.Contains(t, text, "Order ID: #"+resp.OrderNumber)
}

func TestCreateOrderLineSubtotalsAndSuppliedTotal(t *testing.T) {
	f := newOrderFixture()
	req := singleItemRequest()
	req.Items = append(req.Items, cart.LineItem{
		Kind:     cart.KindSimple,
		Product:  cart.Product{ID: "p-2", Title: "Grip", SKU: "GRIP"},
		Price:    dec("2.35"),
		Quantity: 3,
	})
	// client total disagrees with the server quote
	req.Pricing.Total = dec("9999")

	before := testutil.ToFloat64(util.PricingDriftTotal)

	resp, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	order, _ := f.orders.GetOrderByNumber(context.Background(), resp.OrderNumber)
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.True(t, item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Equal(item.Subtotal))
	}
	assert.True(t, dec("7.05").Equal(order.Items[1].Subtotal))
	assert.True(t, dec("9999").Equal(order.Total))
	assert.Equal(t, before+1, testutil.ToFloat64(util.PricingDriftTotal))
}

func TestCreateOrderCustomerFailureWritesNoOrder(t *testing.T) {
	f := newOrderFixture()
	f.customers.findErr = errors.New("customer store unavailable")

	_, err := f.svc.CreateOrder(context.Background(), singleItemRequest())

	var perr *CustomerPersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, f.orders.count())
	assert.Empty(t, f.publisher.placed)
}

func TestCreateOrderCustomerCreateFailureWritesNoOrder(t *testing.T) {
	f := newOrderFixture()
	f.customers.createErr = errors.New("insert failed")

	_, err := f.svc.CreateOrder(context.Background(), singleItemRequest())

	var perr *CustomerPersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, f.orders.count())
}

func TestCreateOrderMissingProductIdentity(t *testing.T) {
	f := newOrderFixture()
	req := singleItemRequest()
	req.Items[0].Product = cart.Product{Title: "Mystery Ball"}

	resp, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	order, _ := f.orders.GetOrderByNumber(context.Background(), resp.OrderNumber)
	require.Len(t, order.Items, 1)
	assert.Equal(t, models.UnknownProductID, order.Items[0].ProductID)
	assert.Equal(t, models.UnknownProductSKU, order.Items[0].ProductSKU)
	assert.Equal(t, "Mystery Ball", order.Items[0].ProductName)
	assert.Empty(t, f.orders.stats)
}

func TestCreateOrderMissingProductName(t *testing.T) {
	f := newOrderFixture()
	req := singleItemRequest()
	req.Items[0].Product = cart.Product{}

	resp, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	order, _ := f.orders.GetOrderByNumber(context.Background(), resp.OrderNumber)
	assert.Equal(t, models.UnknownProductName, order.Items[0].ProductName)
}

func TestCreateOrderPersistenceError(t *testing.T) {
	f := newOrderFixture()
	f.orders.createErr = errors.New("deadlock detected")

	_, err := f.svc.CreateOrder(context.Background(), singleItemRequest())

	var perr *OrderPersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, f.publisher.intents)
}

func TestCreateOrderAnalyticsFailureIsSwallowed(t *testing.T) {
	f := newOrderFixture()
	f.orders.statsErr = errors.New("stats table locked")

	before := testutil.ToFloat64(util.AnalyticsFailuresTotal)

	resp, err := f.svc.CreateOrder(context.Background(), singleItemRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, resp.OrderNumber)
	assert.Equal(t, before+1, testutil.ToFloat64(util.AnalyticsFailuresTotal))
}

func TestCreateOrderPublishFailureIsSwallowed(t *testing.T) {
	f := newOrderFixture()
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.CreateOrder(context.Background(), singleItemRequest())
	assert.NoError(t, err)
}

func TestCreateOrderUsesClientOrderID(t *testing.T) {
	f := newOrderFixture()
	req := singleItemRequest()
	req.OrderID = " rs-abc123 "

	resp, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "RS-ABC123", resp.OrderNumber)
}

func TestCreateOrderIdempotentReplay(t *testing.T) {
	f := newOrderFixture()

	req := singleItemRequest()
	req.IdempotencyKey = "checkout-1"
	first, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	req = singleItemRequest()
	req.IdempotencyKey = "checkout-1"
	second, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, first.WhatsAppURL, second.WhatsAppURL)
	assert.Equal(t, 1, f.orders.count())
}

func TestCreateOrderWithoutKeyDuplicates(t *testing.T) {
	f := newOrderFixture()

	_, err := f.svc.CreateOrder(context.Background(), singleItemRequest())
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(context.Background(), singleItemRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, f.orders.count())
}

func TestCreateOrderKeyHeldByUnfinishedOrder(t *testing.T) {
	f := newOrderFixture()
	f.idem.keys["checkout-2"] = "RSPENDING1"

	req := singleItemRequest()
	req.IdempotencyKey = "checkout-2"
	_, err := f.svc.CreateOrder(context.Background(), req)

	assert.ErrorIs(t, err, ErrOrderInProgress)
	assert.Zero(t, f.orders.count())
	assert.Nil(t, f.customers.get("nimal@example.com"))
}

func TestCreateOrderReleasesKeyWhenWriteFails(t *testing.T) {
	f := newOrderFixture()
	f.orders.createErr = errors.New("connection reset")

	req := singleItemRequest()
	req.IdempotencyKey = "checkout-3"
	_, err := f.svc.CreateOrder(context.Background(), req)

	var perr *OrderPersistenceError
	require.ErrorAs(t, err, &perr)
	_, held := f.idem.bound("checkout-3")
	assert.False(t, held)

	// a retry with the same key goes through once the store is back
	f.orders.createErr = nil
	req = singleItemRequest()
	req.IdempotencyKey = "checkout-3"
	resp, err := f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, resp.Replayed)
	bound, _ := f.idem.bound("checkout-3")
	assert.Equal(t, resp.OrderNumber, bound)
}

func TestCreateOrderConcurrentSameKey(t *testing.T) {
	f := newOrderFixture()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := singleItemRequest()
			req.IdempotencyKey = "checkout-4"
			_, errs[i] = f.svc.CreateOrder(context.Background(), req)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.orders.count())
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrOrderInProgress)
		}
	}
}

func TestCreateOrderIdempotencyStoreDown(t *testing.T) {
	f := newOrderFixture()
	f.idem.setErr = errors.New("redis: connection refused")

	req := singleItemRequest()
	req.IdempotencyKey = "checkout-5"
	resp, err := f.svc.CreateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, resp.Replayed)
	assert.Equal(t, 1, f.orders.count())
}

func TestMapLineItemsKeepsSubCentPricesExact(t *testing.T) {
	f := newOrderFixture()
	line := singleItemRequest().Items[0]
	line.Quantity = 3

	items := f.svc.mapLineItems([]cart.LineItem{line})
	require.Len(t, items, 1)
	item := items[0]
	assert.True(t, dec("47.619").Equal(item.Subtotal))

	// order_items keeps cart.PriceScale decimals for both columns
	storedPrice := item.UnitPrice.Round(cart.PriceScale)
	storedSubtotal := item.Subtotal.Round(cart.PriceScale)
	assert.True(t, storedPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Equal(storedSubtotal))
}

func TestCreateOrderRejectsPriceFinerThanStored(t *testing.T) {
	f := newOrderFixture()
	req := singleItemRequest()
	req.Items[0].Price = dec("15.87301")

	_, err := f.svc.CreateOrder(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Field)
	assert.Zero(t, f.orders.count())
}

func TestCreateOrderSecondOrderMergesCustomer(t *testing.T) {
	f := newOrderFixture()

	_, err := f.svc.CreateOrder(context.Background(), singleItemRequest())
	require.NoError(t, err)

	req := singleItemRequest()
	req.Customer.Address = AddressInput{Street: "5 Hill St", City: "Kandy", PostalCode: "20000", Province: "Central Province"}
	_, err = f.svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	customer := f.customers.get("nimal@example.com")
	require.Len(t, customer.Addresses, 2)
	assert.Equal(t, colomboAddress.Format(), customer.Addresses[0].Address)
	assert.Equal(t, 1, f.customers.creates)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
		field  string
	}{
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, "items"},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, "items"},
		{"no name", func(r *CreateOrderRequest) { r.Customer.FullName = " " }, "customer.fullName"},
		{"no email", func(r *CreateOrderRequest) { r.Customer.Email = "" }, "customer.email"},
		{"no phone", func(r *CreateOrderRequest) { r.Customer.Phone = "" }, "customer.phone"},
		{"bad phone", func(r *CreateOrderRequest) { r.Customer.Phone = "12" }, "phone"},
		{"no street", func(r *CreateOrderRequest) { r.Customer.Address.Street = "" }, "customer.address"},
		{"zero total", func(r *CreateOrderRequest) { r.Pricing.Total = decimal.Zero }, "pricing.total"},
		{"negative shipping", func(r *CreateOrderRequest) { r.Pricing.Shipping = dec("-1") }, "pricing"},
		{"bad currency", func(r *CreateOrderRequest) { r.Pricing.Currency = "EUR" }, "pricing.currency"},
		{"bad order id", func(r *CreateOrderRequest) { r.OrderID = "#1" }, "orderId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			req := singleItemRequest()
			tt.mutate(req)

			_, err := f.svc.CreateOrder(context.Background(), req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, f.orders.count())
			assert.Equal(t, 0, f.customers.creates)
		})
	}
}
