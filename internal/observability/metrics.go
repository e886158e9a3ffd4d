package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequestedTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_requested_total", Help: "Total ride requests created"})
	RidesAcceptedTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_accepted_total", Help: "Total rides accepted by a driver"})
	AcceptConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "accept_conflicts_total", Help: "Accept attempts that lost the race for a ride"})

	RidesCancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "rides_cancelled_total", Help: "Total cancellations"},
		[]string{"cancelled_by"},
	)
	PaymentsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "payments_settled_total", Help: "Total settled payments"},
		[]string{"mode"},
	)
	PaymentFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "payment_failures_total", Help: "Card charges declined or errored"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_hailing",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
