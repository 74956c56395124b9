package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "isafari"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_created_total",
		Help:      "Bookings created.",
	})

	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transitions_total",
		Help:      "Booking status changes by target status and outcome.",
	}, []string{"to", "outcome"})

	PromotionsPurchased = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotions_purchased_total",
		Help:      "Promotion purchases by type.",
	}, []string{"type"})

	PromotionRevenue = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotion_revenue_total",
		Help:      "Sum of promotion costs charged.",
	})

	RankingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ranking_cache_lookups_total",
		Help:      "Ranking candidate cache lookups by view and result.",
	}, []string{"view", "result"})

	ExpiredPromotionsCleared = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expired_promotions_cleared_total",
		Help:      "Services whose lapsed featured flag was cleared by the sweep.",
	})
)
