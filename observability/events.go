package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type journalMetrics struct {
	writes *prometheus.CounterVec
}

var (
	journalMetricsOnce sync.Once
	journalRegistry    *journalMetrics
)

// Journal returns the metrics registry tracking verification journal writes.
func Journal() *journalMetrics {
	journalMetricsOnce.Do(func() {
		journalRegistry = &journalMetrics{
			writes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lendoracle",
				Subsystem: "journal",
				Name:      "writes_total",
				Help:      "Verification reports persisted, segmented by reserve and result.",
			}, []string{"reserve", "result"}),
		}
		prometheus.MustRegister(journalRegistry.writes)
	})
	return journalRegistry
}

// RecordWrite increments the write counter for the supplied reserve symbol.
func (m *journalMetrics) RecordWrite(reserve string, err error) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToUpper(reserve))
	if normalized == "" {
		normalized = "UNKNOWN"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.writes.WithLabelValues(normalized, result).Inc()
}
