package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticpos_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opticpos_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	InvoicesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opticpos_invoices_created_total",
		Help: "Invoices persisted.",
	})

	StockDecrementUnitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opticpos_stock_decrement_units_total",
		Help: "Units removed from stock by reduce-stock calls.",
	})

	ItemsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opticpos_items_created_total",
			Help: "Catalog items created, by mode (single or bulk).",
		},
		[]string{"mode"},
	)
)
