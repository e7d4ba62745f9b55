package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UsageSink receives token-usage observations from model calls. The counters
// are diagnostic only and never gate behavior.
type UsageSink interface {
	ObserveUsage(operation string, promptTokens, completionTokens int)
}

type PrometheusSink struct {
	promptTokens     *prometheus.CounterVec
	completionTokens *prometheus.CounterVec
	modelCalls       *prometheus.CounterVec
}

func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{
		promptTokens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_llm_prompt_tokens_total",
			Help: "Total prompt tokens consumed by model calls.",
		}, []string{"operation"}),
		completionTokens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_llm_completion_tokens_total",
			Help: "Total completion tokens produced by model calls.",
		}, []string{"operation"}),
		modelCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "learnpath_llm_calls_total",
			Help: "Total model calls issued.",
		}, []string{"operation"}),
	}
}

func (s *PrometheusSink) ObserveUsage(operation string, promptTokens, completionTokens int) {
	s.modelCalls.WithLabelValues(operation).Inc()
	s.promptTokens.WithLabelValues(operation).Add(float64(promptTokens))
	s.completionTokens.WithLabelValues(operation).Add(float64(completionTokens))
}

// NopSink is used in tests and when metrics are disabled.
type NopSink struct{}

func (NopSink) ObserveUsage(string, int, int) {}
