// internal/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	pushesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitsync",
		Subsystem: "pipeline",
		Name:      "pushes_processed_total",
		Help:      "Webhook push deliveries processed, by outcome.",
	}, []string{"outcome"})

	summarySource = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitsync",
		Subsystem: "summarizer",
		Name:      "reports_total",
		Help:      "Standup reports produced, by source.",
	}, []string{"source"})

	deliveryOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gitsync",
		Subsystem: "delivery",
		Name:      "attempts_total",
		Help:      "Chat delivery attempts, by outcome.",
	}, []string{"outcome"})

	pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gitsync",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "End-to-end webhook pipeline duration.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(pushesProcessed, summarySource, deliveryOutcomes, pipelineDuration)
}

func PushProcessed() { pushesProcessed.WithLabelValues("processed").Inc() }
func PushDuplicate() { pushesProcessed.WithLabelValues("duplicate").Inc() }
func PushEmpty() { pushesProcessed.WithLabelValues("empty").Inc() }
func PushRejected() { pushesProcessed.WithLabelValues("rejected").Inc() }
func PushFailed() { pushesProcessed.WithLabelValues("failed").Inc() }

func SummaryFromModel() { summarySource.WithLabelValues("model").Inc() }
func SummaryFallback() { summarySource.WithLabelValues("fallback").Inc() }

func DeliverySucceeded() { deliveryOutcomes.WithLabelValues("success").Inc() }
func DeliveryTransient() { deliveryOutcomes.WithLabelValues("transient").Inc() }
func DeliveryPermanent() { deliveryOutcomes.WithLabelValues("permanent").Inc() }

// ObservePipeline records one pipeline run's duration in seconds.
func ObservePipeline(seconds float64) { pipelineDuration.Observe(seconds) }
