package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/metrics"
)

func TestProgressFunc(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())

	progress := m.ProgressFunc("wesolowski")
	progress(1024, 4000)
	progress(2048, 4000)
	progress(4000, 4000)

	assert.Equal(t, 4000.0, testutil.ToFloat64(m.Squarings.WithLabelValues("wesolowski")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Progress.WithLabelValues("wesolowski")))
}

func TestRegisterOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	a := metrics.NewMetricsWith(registry)
	b := metrics.NewMetricsWith(registry)

	a.ObserveVerification("wesolowski", true)
	b.ObserveVerification("wesolowski", true)
	b.ObserveVerification("wesolowski", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.Verifications.WithLabelValues("wesolowski", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Verifications.WithLabelValues("wesolowski", "false")))

	b.Timer("solve", "wesolowski").ObserveDuration()
	count, err := testutil.GatherAndCount(registry, "timelock_operation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	assert.Nil(t, m.ProgressFunc("wesolowski"))
	m.ObserveVerification("wesolowski", true)
	m.Timer("solve", "wesolowski").ObserveDuration()
}
