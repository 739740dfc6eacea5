package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climatebot_provider_api_calls_total",
			Help: "Total upstream data provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	ProviderAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climatebot_provider_api_latency_seconds",
			Help:    "Upstream data provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climatebot_commands_total",
			Help: "Total bot commands dispatched",
		},
		[]string{"command"},
	)

	ComparisonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climatebot_comparisons_total",
			Help: "Total comparison renders by outcome",
		},
		[]string{"outcome"},
	)

	PollerRestartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "climatebot_poller_restarts_total",
			Help: "Total supervised restarts of the update poller",
		},
	)
)
