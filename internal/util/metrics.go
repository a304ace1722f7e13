package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuctionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_created_total",
		Help: "Total number of auctions created",
	})

	AuctionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_started_total",
		Help: "Total number of auctions transitioned to active",
	})

	AuctionsEndedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_ended_total",
		Help: "Total number of auctions transitioned to ended",
	})

	AuctionsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auctions_completed_total",
		Help: "Total number of auctions finalized as completed",
	})

	BidsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_accepted_total",
		Help: "Total number of accepted bids",
	})

	BidsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Total number of rejected bids",
	}, []string{"reason"})

	BidCommitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bid_commit_latency_seconds",
		Help:    "Latency of the bid validate-and-commit critical section",
		Buckets: prometheus.DefBuckets,
	})

	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_sweep_runs_total",
		Help: "Total number of lifecycle scheduler sweeps",
	})

	SweepLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lifecycle_sweep_latency_seconds",
		Help:    "Latency of a full lifecycle scheduler sweep",
		Buckets: prometheus.DefBuckets,
	})

	SweepTransitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_sweep_transition_errors_total",
		Help: "Total number of failed lifecycle transitions",
	}, []string{"transition"})

	NotificationsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_published_total",
		Help: "Total number of notification messages published",
	})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of notification messages that failed to publish",
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
