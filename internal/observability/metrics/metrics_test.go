package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestCompletionMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCompletionMetrics(reg)
	m.ObserveAttempt("gemini-rest", "server_error", 0.5)
	m.ObserveAttempt("gemini-rest", "server_error", 0.4)
	m.ObserveAttempt("gemini-rest", "success", 1.2)
	m.ObserveOutcome("gemini-rest", "success")

	if got := counterValue(t, reg, "rfid_assistant_completion_attempts_total",
		map[string]string{"provider": "gemini-rest", "result": "server_error"}); got != 2 {
		t.Fatalf("expected 2 server_error attempts, got %v", got)
	}
	if got := counterValue(t, reg, "rfid_assistant_completion_outcomes_total",
		map[string]string{"outcome": "success"}); got != 1 {
		t.Fatalf("expected 1 success outcome, got %v", got)
	}
}

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveQuestion("ok")
	m.ObserveContext("location")

	if got := counterValue(t, reg, "rfid_assistant_chat_context_captured_total",
		map[string]string{"key": "location"}); got != 1 {
		t.Fatalf("expected 1 location capture, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var c *CompletionMetrics
	c.ObserveAttempt("p", "success", 0.1)
	c.ObserveOutcome("p", "success")

	var m *ChatMetrics
	m.ObserveQuestion("ok")
	m.ObserveContext("promotion")
}
