package metrics

import "github.com/prometheus/client_golang/prometheus"

// CompletionMetrics exposes counters/histograms for calls to the generation endpoint.
type CompletionMetrics struct {
	attemptsTotal  *prometheus.CounterVec
	outcomesTotal  *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
}

func NewCompletionMetrics(reg prometheus.Registerer) *CompletionMetrics {
	m := &CompletionMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_assistant",
			Subsystem: "completion",
			Name:      "attempts_total",
			Help:      "Completion attempts by provider and attempt result",
		}, []string{"provider", "result"}),
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_assistant",
			Subsystem: "completion",
			Name:      "outcomes_total",
			Help:      "Terminal completion outcomes by provider",
		}, []string{"provider", "outcome"}),
		attemptLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rfid_assistant",
			Subsystem: "completion",
			Name:      "attempt_latency_seconds",
			Help:      "Latency of a single completion attempt",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.outcomesTotal, m.attemptLatency)
	return m
}

func (m *CompletionMetrics) ObserveAttempt(provider, result string, seconds float64) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(provider, result).Inc()
	m.attemptLatency.WithLabelValues(provider).Observe(seconds)
}

func (m *CompletionMetrics) ObserveOutcome(provider, outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(provider, outcome).Inc()
}

// ChatMetrics counts questions handled by the chat service.
type ChatMetrics struct {
	questionsTotal *prometheus.CounterVec
	contextTotal   *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		questionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_assistant",
			Subsystem: "chat",
			Name:      "questions_total",
			Help:      "Questions received by status",
		}, []string{"status"}),
		contextTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_assistant",
			Subsystem: "chat",
			Name:      "context_captured_total",
			Help:      "Context keys captured from user input",
		}, []string{"key"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.questionsTotal, m.contextTotal)
	return m
}

func (m *ChatMetrics) ObserveQuestion(status string) {
	if m == nil {
		return
	}
	m.questionsTotal.WithLabelValues(status).Inc()
}

func (m *ChatMetrics) ObserveContext(key string) {
	if m == nil {
		return
	}
	m.contextTotal.WithLabelValues(key).Inc()
}
