package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Total number of orders persisted",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_failed_total",
		Help: "Total number of failed order submissions",
	}, []string{"reason"})

	OrdersReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_replayed_total",
		Help: "Order submissions answered from a previously seen idempotency key",
	})

	OrderCreateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_order_create_latency_seconds",
		Help:    "Latency of the customer upsert plus order persistence flow",
		Buckets: prometheus.DefBuckets,
	})

	PricingDriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_pricing_drift_total",
		Help: "Orders whose submitted total differs from the server-side quote",
	})

	CustomersUpsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_customers_upserted_total",
		Help: "Customer upserts by outcome",
	}, []string{"result"})

	CustomerUpsertConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_customer_upsert_conflicts_total",
		Help: "Customer writes retried after a concurrent modification",
	})

	TrackingLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_tracking_lookups_total",
		Help: "Order tracking lookups by result",
	}, []string{"result"})

	AnalyticsFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_analytics_failures_total",
		Help: "Product order-count increments that failed and were skipped",
	})

	ExchangeRateFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_exchange_rate_fallback_total",
		Help: "Exchange rate lookups answered with the fallback rate",
	}, []string{"reason"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_events_publish_failed_total",
		Help: "Domain events that could not be published",
	}, []string{"event_type"})

	NotificationIntentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_notification_intents_total",
		Help: "Hand-off intents recorded by the worker",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
