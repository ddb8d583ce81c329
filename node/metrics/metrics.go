package metrics

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/vdf"
)

const namespace = "timelock"

var (
	constructionLabels = []string{"construction"}
	operationLabels    = []string{"operation", "construction"}
	verificationLabels = []string{"construction", "result"}
)

// Metrics instruments the delay computations and verifications of the
// time-lock service.
type Metrics struct {
	// Squarings performed, partitioned by construction.
	Squarings *prometheus.CounterVec

	// Latencies of encrypt, decrypt, solve and verify.
	Operations *prometheus.HistogramVec

	// Fraction of the running delay computation that is done.
	Progress *prometheus.GaugeVec

	// Verification outcomes, partitioned by construction and result.
	Verifications *prometheus.CounterVec
}

// NewMetrics registers the collectors with the default prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the collectors with the given registerer, reusing
// collectors that are already registered.
func NewMetricsWith(registerer prometheus.Registerer) *Metrics {
	return &Metrics{
		Squarings: registerOnce(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "squarings_total",
				Help:      "How many sequential squarings were performed, partitioned by construction.",
			},
			constructionLabels,
		)).(*prometheus.CounterVec),
		Operations: registerOnce(registerer, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_seconds",
				Help:      "How long operations take, partitioned by operation and construction.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
			},
			operationLabels,
		)).(*prometheus.HistogramVec),
		Progress: registerOnce(registerer, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "delay_progress_ratio",
				Help:      "Completed fraction of the running delay computation, partitioned by construction.",
			},
			constructionLabels,
		)).(*prometheus.GaugeVec),
		Verifications: registerOnce(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "verifications_total",
				Help:      "How many outputs were verified, partitioned by construction and result.",
			},
			verificationLabels,
		)).(*prometheus.CounterVec),
	}
}

// Timer starts a latency timer for the operation.
func (m *Metrics) Timer(operation, construction string) *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}

	return prometheus.NewTimer(
		m.Operations.WithLabelValues(operation, construction),
	)
}

// ObserveVerification counts a verification outcome.
func (m *Metrics) ObserveVerification(construction string, ok bool) {
	if m == nil {
		return
	}

	m.Verifications.WithLabelValues(construction, strconv.FormatBool(ok)).Inc()
}

// ProgressFunc returns a progress hook feeding the squaring counter and the
// progress gauge. Computations reporting through it must not overlap.
func (m *Metrics) ProgressFunc(construction string) vdf.ProgressFunc {
	if m == nil {
		return nil
	}

	squarings := m.Squarings.WithLabelValues(construction)
	progress := m.Progress.WithLabelValues(construction)

	var mx sync.Mutex
	var last uint64
	return func(done, total uint64) {
		mx.Lock()
		defer mx.Unlock()

		// a new computation on the same construction starts over
		if done < last {
			last = 0
		}

		squarings.Add(float64(done - last))
		last = done

		if total == 0 {
			progress.Set(1)
			return
		}

		progress.Set(float64(done) / float64(total))
	}
}

// Registers the collector, returning the existing collector when an
// identical one is already registered. Panics on any other failure.
func registerOnce(
	registerer prometheus.Registerer,
	collector prometheus.Collector,
) prometheus.Collector {
	if err := registerer.Register(collector); err != nil {
		are := prometheus.AlreadyRegisteredError{}
		if errors.As(err, &are) {
			return are.ExistingCollector
		}

		panic(err)
	}

	return collector
}
