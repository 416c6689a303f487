package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecouncil_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"mode", "outcome"}, // mode: full|analysts, outcome: success|error
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradecouncil_pipeline_duration_seconds",
			Help:    "End-to-end pipeline latency in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradecouncil_stage_duration_seconds",
			Help:    "Per-stage latency in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 20, 60},
		},
		[]string{"stage"},
	)

	// Inference metrics
	InferenceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecouncil_inference_requests_total",
			Help: "Total number of inference calls",
		},
		[]string{"provider", "model", "task", "outcome"}, // outcome: success|timeout|rate_limited|network|provider
	)

	InferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradecouncil_inference_latency_seconds",
			Help:    "Inference call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "model"},
	)

	InferenceTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecouncil_inference_tokens_total",
			Help: "Total tokens consumed",
		},
		[]string{"provider", "model", "type"}, // type: input|output
	)

	// Cache metrics
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecouncil_report_cache_lookups_total",
			Help: "Report cache lookups by result",
		},
		[]string{"category", "result"}, // result: hit|miss|error
	)

	// Risk and debate metrics
	RiskDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecouncil_risk_decisions_total",
			Help: "Risk rule engine decisions",
		},
		[]string{"decision"},
	)

	DebateFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecouncil_debate_fallbacks_total",
			Help: "Debate outputs replaced by deterministic defaults",
		},
		[]string{"kind"}, // kind: round|assessment
	)

	// Messaging metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradecouncil_kafka_messages_total",
			Help: "Total Kafka messages processed",
		},
		[]string{"topic", "status"}, // status: success|failed
	)
)

var initOnce sync.Once

// Init registers all metrics with Prometheus
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(PipelineRuns)
		prometheus.MustRegister(PipelineDuration)
		prometheus.MustRegister(StageDuration)

		prometheus.MustRegister(InferenceRequests)
		prometheus.MustRegister(InferenceLatency)
		prometheus.MustRegister(InferenceTokens)

		prometheus.MustRegister(CacheLookups)

		prometheus.MustRegister(RiskDecisions)
		prometheus.MustRegister(DebateFallbacks)

		prometheus.MustRegister(KafkaMessages)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPipelineRun records one orchestrator run
func RecordPipelineRun(mode string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	PipelineRuns.WithLabelValues(mode, outcome).Inc()
	PipelineDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordStage records the latency of a single stage
func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordInference records an inference call
func RecordInference(provider, model, task, outcome string, latency time.Duration, inputTokens, outputTokens int) {
	InferenceRequests.WithLabelValues(provider, model, task, outcome).Inc()
	InferenceLatency.WithLabelValues(provider, model).Observe(latency.Seconds())

	if inputTokens > 0 {
		InferenceTokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		InferenceTokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// RecordCacheLookup records a report cache lookup
func RecordCacheLookup(category, result string) {
	CacheLookups.WithLabelValues(category, result).Inc()
}

// RecordRiskDecision records the final decision of the rule engine
func RecordRiskDecision(decision string) {
	RiskDecisions.WithLabelValues(decision).Inc()
}

// RecordDebateFallback records a substituted debate output
func RecordDebateFallback(kind string) {
	DebateFallbacks.WithLabelValues(kind).Inc()
}

// RecordKafkaMessage records a consumed or produced Kafka message
func RecordKafkaMessage(topic string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	KafkaMessages.WithLabelValues(topic, status).Inc()
}
