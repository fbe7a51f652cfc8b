package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the marketplace core.
type Metrics struct {
	UsersRegistered prometheus.Counter
	SessionsIssued  prometheus.Counter
	SessionsExpired prometheus.Counter

	OrdersCreated   prometheus.Counter
	OrdersConfirmed prometheus.Counter
	OrdersCanceled  prometheus.Counter
	StockConflicts  prometheus.Counter

	PaymentIntents   prometheus.Counter
	CheckoutSessions prometheus.Counter

	OrderDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics against a caller-supplied registerer so tests
// can use private registries.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_users_registered_total",
			Help: "Total number of users registered.",
		}),
		SessionsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_sessions_issued_total",
			Help: "Total number of sessions issued at login or refresh.",
		}),
		SessionsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_sessions_expired_total",
			Help: "Total number of sessions rejected and removed as expired.",
		}),
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Total number of orders created from carts.",
		}),
		OrdersConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_orders_confirmed_total",
			Help: "Total number of orders confirmed by sellers.",
		}),
		OrdersCanceled: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_orders_canceled_total",
			Help: "Total number of orders canceled by buyers.",
		}),
		StockConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_stock_conflicts_total",
			Help: "Total number of confirmations rejected for insufficient stock.",
		}),
		PaymentIntents: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_payment_intents_total",
			Help: "Total number of payment intents created.",
		}),
		CheckoutSessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketplace_checkout_sessions_total",
			Help: "Total number of checkout sessions created.",
		}),
		OrderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketplace_order_operation_seconds",
			Help:    "Latency of order workflow operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
