// Package monitoring keeps in-process counters for the estimation service.
package monitoring

import (
	"errors"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"osteosex/ml"
)

// ElementStat counts the outcomes of one method and element.
type ElementStat struct {
	Method  ml.Method `json:"method"`
	Element string    `json:"element"`
	Female  int64     `json:"female"`
	Male    int64     `json:"male"`
	Failed  int64     `json:"failed"`
}

// EstimationMetrics aggregates request outcomes for the JSON snapshot and
// mirrors them into a Prometheus registry. It is safe for concurrent use.
type EstimationMetrics struct {
	metricsLock sync.RWMutex

	registry         *prometheus.Registry
	requestsTotal    prometheus.Counter
	estimationsTotal *prometheus.CounterVec
	failuresTotal    *prometheus.CounterVec
	requestDuration  prometheus.Histogram

	requests      int64
	estimations   int64
	failures      map[string]int64
	totalDuration time.Duration
	maxDuration   time.Duration
	elements      map[string]*ElementStat

	startTime time.Time
}

// NewEstimationMetrics creates an empty collector with its own registry.
func NewEstimationMetrics() *EstimationMetrics {
	em := &EstimationMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osteosex_requests_total",
			Help: "Estimation requests handled",
		}),
		estimationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "osteosex_estimations_total",
			Help: "Classifier slots evaluated",
		}, []string{"method", "element", "sex"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "osteosex_failures_total",
			Help: "Rejected requests by error kind",
		}, []string{"kind"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "osteosex_request_duration_seconds",
			Help:    "Time spent evaluating one request",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		failures:  make(map[string]int64),
		elements:  make(map[string]*ElementStat),
		startTime: time.Now(),
	}
	em.registry.MustRegister(
		em.requestsTotal,
		em.estimationsTotal,
		em.failuresTotal,
		em.requestDuration,
		collectors.NewGoCollector(),
	)
	return em
}

// RecordSuccess counts one answered request and its per-slot results.
func (em *EstimationMetrics) RecordSuccess(method ml.Method, element string, results []ml.Estimation, d time.Duration) {
	em.metricsLock.Lock()
	defer em.metricsLock.Unlock()

	em.observe(d)
	stat := em.element(method, element)
	for _, r := range results {
		em.estimations++
		if r.Sex == ml.Male {
			stat.Male++
		} else {
			stat.Female++
		}
		em.estimationsTotal.WithLabelValues(string(method), element, r.Sex.String()).Inc()
	}
}

// RecordFailure counts a rejected request under its error kind.
func (em *EstimationMetrics) RecordFailure(method ml.Method, element string, err error, d time.Duration) {
	em.metricsLock.Lock()
	defer em.metricsLock.Unlock()

	em.observe(d)
	kind := ErrorKind(err)
	em.failures[kind]++
	em.failuresTotal.WithLabelValues(kind).Inc()
	em.element(method, element).Failed++
}

func (em *EstimationMetrics) observe(d time.Duration) {
	em.requests++
	em.requestsTotal.Inc()
	em.requestDuration.Observe(d.Seconds())
	em.totalDuration += d
	if d > em.maxDuration {
		em.maxDuration = d
	}
}

func (em *EstimationMetrics) element(method ml.Method, element string) *ElementStat {
	key := string(method) + "\x00" + element
	stat, ok := em.elements[key]
	if !ok {
		stat = &ElementStat{Method: method, Element: element}
		em.elements[key] = stat
	}
	return stat
}

// ErrorKind names the engine error class of err.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ml.ErrDatatype):
		return "datatype"
	case errors.Is(err, ml.ErrConfig):
		return "config"
	case errors.Is(err, ml.ErrLookup):
		return "lookup"
	case errors.Is(err, ml.ErrDimension):
		return "dimension"
	case errors.Is(err, ml.ErrData):
		return "data"
	default:
		return "other"
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Uptime        string           `json:"uptime"`
	Requests      int64            `json:"requests"`
	Estimations   int64            `json:"estimations"`
	Failures      map[string]int64 `json:"failures"`
	AvgDurationMs float64          `json:"avg_duration_ms"`
	MaxDurationMs float64          `json:"max_duration_ms"`
	Elements      []ElementStat    `json:"elements"`
	Goroutines    int              `json:"goroutines"`
	HeapAlloc     uint64           `json:"heap_alloc"`
}

// Snapshot copies the counters, sorted by method and element.
func (em *EstimationMetrics) Snapshot() Snapshot {
	em.metricsLock.RLock()
	defer em.metricsLock.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	s := Snapshot{
		Uptime:        time.Since(em.startTime).Round(time.Second).String(),
		Requests:      em.requests,
		Estimations:   em.estimations,
		Failures:      make(map[string]int64, len(em.failures)),
		MaxDurationMs: float64(em.maxDuration) / float64(time.Millisecond),
		Elements:      make([]ElementStat, 0, len(em.elements)),
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     m.HeapAlloc,
	}
	if em.requests > 0 {
		s.AvgDurationMs = float64(em.totalDuration) / float64(em.requests) / float64(time.Millisecond)
	}
	for kind, n := range em.failures {
		s.Failures[kind] = n
	}
	for _, stat := range em.elements {
		s.Elements = append(s.Elements, *stat)
	}
	sort.Slice(s.Elements, func(i, j int) bool {
		if s.Elements[i].Method != s.Elements[j].Method {
			return s.Elements[i].Method < s.Elements[j].Method
		}
		return s.Elements[i].Element < s.Elements[j].Element
	})
	return s
}

// Handler serves the registry in the Prometheus exposition format.
func (em *EstimationMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(em.registry, promhttp.HandlerOpts{})
}
