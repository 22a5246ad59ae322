// Package telemetry exports location controller activity as Prometheus
// metrics.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/beacon/internal/locate"
)

const namespace = "beacon"

// Recorder is a locate.Observer that counts transitions.
type Recorder struct {
	registry *prometheus.Registry

	cycles        prometheus.Counter
	attempts      *prometheus.CounterVec
	failures      prometheus.Counter
	fixes         prometheus.Counter
	exhausted     prometheus.Counter
	loading       prometheus.Gauge
	lastFix       prometheus.Gauge
	cycleDuration *prometheus.HistogramVec

	mu         sync.Mutex
	cycleStart map[string]time.Time
}

// Ensure Recorder implements locate.Observer at compile time.
var _ locate.Observer = (*Recorder)(nil)

// NewRecorder builds a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of acquisition cycles started",
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of provider attempts",
		}, []string{"kind"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempt_failures_total",
			Help:      "Total number of failed provider attempts",
		}),
		fixes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fixes_total",
			Help:      "Total number of cycles that produced a position",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exhausted_total",
			Help:      "Total number of cycles that ran out of retries",
		}),
		loading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loading",
			Help:      "1 while a cycle is in progress",
		}),
		lastFix: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_fix_timestamp_seconds",
			Help:      "Unix time of the most recent fix",
		}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time from request to a terminal outcome",
			Buckets:   []float64{0.1, 0.5, 1, 3, 6, 10, 20, 40},
		}, []string{"outcome"}),
		cycleStart: make(map[string]time.Time),
	}
	r.registry.MustRegister(
		r.cycles,
		r.attempts,
		r.failures,
		r.fixes,
		r.exhausted,
		r.loading,
		r.lastFix,
		r.cycleDuration,
	)
	return r
}

// Registry exposes the recorder's registry for the metrics endpoint.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Notify updates metrics for one controller snapshot.
func (r *Recorder) Notify(s locate.Snapshot) {
	if s.Loading {
		r.loading.Set(1)
	} else {
		r.loading.Set(0)
	}

	switch s.Event {
	case locate.EventRequested:
		r.cycles.Inc()
		r.attempts.WithLabelValues("initial").Inc()
		r.startCycle(s.CycleID, s.UpdatedAt)
	case locate.EventRetryStarted:
		r.attempts.WithLabelValues("retry").Inc()
	case locate.EventRetryScheduled:
		r.failures.Inc()
	case locate.EventFound:
		r.fixes.Inc()
		r.lastFix.Set(float64(s.UpdatedAt.Unix()))
		r.endCycle(s.CycleID, s.UpdatedAt, "found")
	case locate.EventExhausted:
		r.failures.Inc()
		r.exhausted.Inc()
		r.endCycle(s.CycleID, s.UpdatedAt, "exhausted")
	}
}

func (r *Recorder) startCycle(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Superseded cycles never reach a terminal event.
	clear(r.cycleStart)
	r.cycleStart[id] = at
}

func (r *Recorder) endCycle(id string, at time.Time, outcome string) {
	r.mu.Lock()
	start, ok := r.cycleStart[id]
	delete(r.cycleStart, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.cycleDuration.WithLabelValues(outcome).Observe(at.Sub(start).Seconds())
}
