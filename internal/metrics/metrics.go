// Package metrics exposes the pipeline's Prometheus counters/gauges and
// mounts promhttp.Handler() the way the teacher's cmd/kcn/main.go starts
// its Prometheus exporter (client_golang + promhttp on a plain
// http.Handle("/metrics", ...)).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TokensClaimed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glisk",
		Name:      "tokens_claimed_total",
		Help:      "Tokens leased by a stage worker, by stage.",
	}, []string{"stage"})

	TokensAdvanced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glisk",
		Name:      "tokens_advanced_total",
		Help:      "Tokens that completed a stage successfully, by stage.",
	}, []string{"stage"})

	TokensFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glisk",
		Name:      "tokens_failed_total",
		Help:      "Tokens marked failed, by stage and cause kind; stage reveal, kind reverted counts tokens of a reverted batch, which stay ready.",
	}, []string{"stage", "kind"})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "glisk",
		Name:      "stage_duration_seconds",
		Help:      "Wall-clock time spent processing one token in a stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	RevealBatchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "glisk",
		Name:      "reveal_batch_size",
		Help:      "Number of tokens in each submitted reveal transaction.",
		Buckets:   []float64{1, 5, 10, 20, 30, 40, 50},
	})

	ChainRPCErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glisk",
		Name:      "chain_rpc_errors_total",
		Help:      "RPC call failures against the L2 node, by method.",
	}, []string{"method"})

	WebhookEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "glisk",
		Name:      "webhook_events_total",
		Help:      "Webhook pushes processed, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		TokensClaimed,
		TokensAdvanced,
		TokensFailed,
		StageDuration,
		RevealBatchSize,
		ChainRPCErrors,
		WebhookEvents,
	)
}

// Handler returns the promhttp handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
