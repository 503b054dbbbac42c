package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "lendoracle/verify"

var (
	verifierMetricsOnce sync.Once
	verifierRegistry    *VerifierMetrics
)

// VerifierMetrics records the outcome of every projection checked against
// observed chain state.
type VerifierMetrics struct {
	verifications *prometheus.CounterVec
	mismatches    *prometheus.CounterVec
	errors        *prometheus.CounterVec
	latency       *prometheus.HistogramVec

	meter          metric.Meter
	outcomeCounter metric.Int64Counter
	driftHistogram metric.Int64Histogram
}

// Verifier returns the lazily-initialised verifier metrics registered with the
// default prometheus registry.
func Verifier() *VerifierMetrics {
	verifierMetricsOnce.Do(func() {
		verifierRegistry = NewVerifierMetrics(prometheus.DefaultRegisterer)
	})
	return verifierRegistry
}

// NewVerifierMetrics builds a metrics set registered with reg. A nil reg
// leaves the collectors unregistered, which is what tests want.
func NewVerifierMetrics(reg prometheus.Registerer) *VerifierMetrics {
	m := &VerifierMetrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lendoracle",
			Subsystem: "verifier",
			Name:      "verifications_total",
			Help:      "Projected actions compared against observed state, segmented by reserve, action and outcome.",
		}, []string{"reserve", "action", "outcome"}),
		mismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lendoracle",
			Subsystem: "verifier",
			Name:      "field_mismatches_total",
			Help:      "Fields whose observed value fell outside tolerance.",
		}, []string{"reserve", "scope", "field"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lendoracle",
			Subsystem: "verifier",
			Name:      "errors_total",
			Help:      "Verifications aborted before comparison.",
		}, []string{"reserve", "reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lendoracle",
			Subsystem: "verifier",
			Name:      "duration_seconds",
			Help:      "Latency of projection plus comparison.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"action"}),
	}
	if reg != nil {
		reg.MustRegister(m.verifications, m.mismatches, m.errors, m.latency)
	}
	m.initMeter()
	return m
}

func (m *VerifierMetrics) initMeter() {
	meter := otel.GetMeterProvider().Meter(meterName)
	counter, err := meter.Int64Counter("lendoracle.verifier.outcomes")
	if err != nil {
		meter = noop.NewMeterProvider().Meter(meterName)
		counter, _ = meter.Int64Counter("lendoracle.verifier.outcomes")
	}
	drift, err := meter.Int64Histogram("lendoracle.verifier.mismatched_fields")
	if err != nil {
		meter = noop.NewMeterProvider().Meter(meterName)
		drift, _ = meter.Int64Histogram("lendoracle.verifier.mismatched_fields")
	}
	m.meter = meter
	m.outcomeCounter = counter
	m.driftHistogram = drift
}

// ObserveVerification records one completed comparison. mismatched lists the
// fields that drifted, prefixed with their scope ("reserve." or "user.").
func (m *VerifierMetrics) ObserveVerification(ctx context.Context, reserve, action string, mismatched []string, duration time.Duration) {
	if m == nil {
		return
	}
	reserve = labelOrUnknown(reserve)
	action = labelOrUnknown(action)
	outcome := "match"
	if len(mismatched) > 0 {
		outcome = "mismatch"
	}
	m.verifications.WithLabelValues(reserve, action, outcome).Inc()
	for _, field := range mismatched {
		scope, name, found := strings.Cut(field, ".")
		if !found {
			scope, name = "reserve", field
		}
		m.mismatches.WithLabelValues(reserve, scope, name).Inc()
	}
	m.latency.WithLabelValues(action).Observe(duration.Seconds())

	attrs := metric.WithAttributes(
		attribute.String("reserve", reserve),
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	)
	m.outcomeCounter.Add(ctx, 1, attrs)
	m.driftHistogram.Record(ctx, int64(len(mismatched)), attrs)
}

// RecordError counts a verification that failed before comparison. Reasons
// should be stable strings such as "unknown_reserve" or "projection".
func (m *VerifierMetrics) RecordError(reserve, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.errors.WithLabelValues(labelOrUnknown(reserve), reason).Inc()
}

func labelOrUnknown(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return "unknown"
}
