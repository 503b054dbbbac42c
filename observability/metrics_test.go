package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestVerifierMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewVerifierMetrics(reg)

	m.ObserveVerification(context.Background(), "DAI", "deposit", nil, time.Millisecond)
	m.ObserveVerification(context.Background(), "DAI", "borrow", []string{"reserve.liquidityRate", "user.currentVariableDebt"}, time.Millisecond)
	m.RecordError("", "unknown_reserve")

	require.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("DAI", "deposit", "match")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("DAI", "borrow", "mismatch")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.mismatches.WithLabelValues("DAI", "user", "currentVariableDebt")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("unknown", "unknown_reserve")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *VerifierMetrics
	m.ObserveVerification(context.Background(), "DAI", "deposit", nil, 0)
	m.RecordError("DAI", "")

	var j *journalMetrics
	j.RecordWrite("DAI", errors.New("boom"))
}

func TestJournalMetrics(t *testing.T) {
	j := Journal()
	j.RecordWrite(" dai ", nil)
	require.Equal(t, 1.0, testutil.ToFloat64(j.writes.WithLabelValues("DAI", "ok")))
}
