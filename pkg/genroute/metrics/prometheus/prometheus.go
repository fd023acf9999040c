package prommetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cinexa/genroute/pkg/genroute"
)

// Metrics implements genroute.Metrics using Prometheus.
type Metrics struct {
	generationsTotal     *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec
	providerCallErrors   *prometheus.CounterVec
	debitsTotal          *prometheus.CounterVec
	debitAmount          *prometheus.HistogramVec
	cacheHitsTotal       prometheus.Counter
	cacheMissesTotal     prometheus.Counter
	recordEvictionsTotal prometheus.Counter
}

// NewMetrics creates a new Prometheus metrics implementation.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		generationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of finished generation requests by outcome.",
		}, []string{"mode", "outcome"}),

		providerCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of individual provider invocation attempts.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "mode", "success"}),

		providerCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_call_errors_total",
			Help:      "Total number of failed provider invocation attempts.",
		}, []string{"provider", "mode"}),

		debitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_debits_total",
			Help:      "Total number of credit debits.",
		}, []string{"provider"}),

		debitAmount: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "credit_debit_amount",
			Help:      "Distribution of credit debit amounts.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}, []string{"provider"}),

		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_hits_total",
			Help:      "Total number of result cache hits.",
		}),

		cacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_misses_total",
			Help:      "Total number of result cache misses.",
		}),

		recordEvictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_evictions_total",
			Help:      "Total number of generation records evicted under capacity pressure.",
		}),
	}
}

func (m *Metrics) RecordGeneration(mode genroute.Mode, outcome string) {
	m.generationsTotal.WithLabelValues(string(mode), outcome).Inc()
}

func (m *Metrics) RecordProviderCall(provider string, mode genroute.Mode, duration time.Duration, err error) {
	success := strconv.FormatBool(err == nil)
	m.providerCallDuration.WithLabelValues(provider, string(mode), success).Observe(duration.Seconds())
	if err != nil {
		m.providerCallErrors.WithLabelValues(provider, string(mode)).Inc()
	}
}

func (m *Metrics) RecordDebit(provider string, amount int) {
	m.debitsTotal.WithLabelValues(provider).Inc()
	m.debitAmount.WithLabelValues(provider).Observe(float64(amount))
}

func (m *Metrics) RecordCacheHit() {
	m.cacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.cacheMissesTotal.Inc()
}

func (m *Metrics) RecordEviction(count int) {
	m.recordEvictionsTotal.Add(float64(count))
}
