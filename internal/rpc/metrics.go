package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_indexer_rpc_calls_total",
			Help: "Total number of JSON-RPC calls",
		},
		[]string{"method"},
	)

	rpcErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_indexer_rpc_errors_total",
			Help: "Total number of failed JSON-RPC calls",
		},
		[]string{"method"},
	)

	rpcCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raffle_indexer_rpc_call_duration_seconds",
			Help:    "Duration of JSON-RPC calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func observeCall(method string, start time.Time, err error) {
	rpcCalls.WithLabelValues(method).Inc()
	rpcCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		rpcErrors.WithLabelValues(method).Inc()
	}
}
