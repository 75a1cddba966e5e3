// Package metrics holds the Prometheus metrics of the verification service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sitetrust/internal/domain/models"
)

// Namespace is the namespace for all service metrics
const Namespace = "sitetrust"

// Metrics holds all Prometheus metrics of the service
type Metrics struct {
	VerificationsTotal   *prometheus.CounterVec
	VerificationDuration prometheus.Histogram
	TrustScore           prometheus.Histogram
	RelationshipsTotal   *prometheus.CounterVec
	ImitationsTotal      *prometheus.CounterVec
	CorpusUnavailable    prometheus.Counter
	CorpusScanTruncated  prometheus.Counter
	CorpusScanned        prometheus.Histogram
	CacheLookupsTotal    *prometheus.CounterVec
	EventPublishFailures prometheus.Counter
}

// New creates and registers every metric. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		VerificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "verifications_total",
				Help:      "Completed verifications by risk level",
			},
			[]string{"risk_level"},
		),
		VerificationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "verification_duration_seconds",
				Help:      "Time spent in one verification, persistence included",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
		),
		TrustScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "trust_score",
				Help:      "Distribution of computed trust scores",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
		RelationshipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "similar_sites_total",
				Help:      "Similarity candidates reported, by relationship",
			},
			[]string{"relationship"},
		),
		ImitationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "imitations_total",
				Help:      "Potential imitations detected, by target brand",
			},
			[]string{"brand"},
		),
		CorpusUnavailable: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "corpus_unavailable_total",
				Help:      "Verifications that ran without the corpus",
			},
		),
		CorpusScanTruncated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "corpus_scan_truncated_total",
				Help:      "Corpus scans cut short by the candidate or time budget",
			},
		),
		CorpusScanned: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "corpus_entries_scanned",
				Help:      "Corpus entries compared per verification",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		EventPublishFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "event_publish_failures_total",
				Help:      "Verification events that could not be published",
			},
		),
	}
}

// ObserveVerification records one completed verification
func (m *Metrics) ObserveVerification(result *models.WebsiteVerificationResult, elapsed time.Duration) {
	m.VerificationsTotal.WithLabelValues(string(result.RiskLevel)).Inc()
	m.VerificationDuration.Observe(elapsed.Seconds())
	m.TrustScore.Observe(float64(result.TrustScore))

	for _, c := range result.SimilarSites {
		m.RelationshipsTotal.WithLabelValues(string(c.RelationshipType)).Inc()
	}
	if result.Imitation.IsPotentialImitation {
		brand := "unknown"
		if result.Imitation.TargetBrand != nil {
			brand = *result.Imitation.TargetBrand
		}
		m.ImitationsTotal.WithLabelValues(brand).Inc()
	}

	if !result.CorpusChecked {
		m.CorpusUnavailable.Inc()
	}
	if result.Scan.Truncated {
		m.CorpusScanTruncated.Inc()
	}
	m.CorpusScanned.Observe(float64(result.Scan.Scanned))
}

// CacheHit records a result cache hit
func (m *Metrics) CacheHit() {
	m.CacheLookupsTotal.WithLabelValues("hit").Inc()
}

// CacheMiss records a result cache miss
func (m *Metrics) CacheMiss() {
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// PoolStats is a snapshot of database connection pool usage
type PoolStats struct {
	Acquired int32
	Idle     int32
	Total    int32
	Max      int32
}

// RegisterPoolStats exposes connection pool usage as gauges read at scrape time
func RegisterPoolStats(reg prometheus.Registerer, snapshot func() PoolStats) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	gauge := func(name, help string, pick func(PoolStats) int32) {
		factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "db_pool",
				Name:      name,
				Help:      help,
			},
			func() float64 { return float64(pick(snapshot())) },
		)
	}

	gauge("acquired_connections", "Connections currently in use", func(s PoolStats) int32 { return s.Acquired })
	gauge("idle_connections", "Idle connections in the pool", func(s PoolStats) int32 { return s.Idle })
	gauge("total_connections", "Open connections in the pool", func(s PoolStats) int32 { return s.Total })
	gauge("max_connections", "Configured pool size", func(s PoolStats) int32 { return s.Max })
}
