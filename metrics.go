package loader

import (
	"github.com/goliatone/go-scriptloader/loaderr"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes bootstrap counters and load latencies to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	discovered prometheus.Counter
	loads      *prometheus.HistogramVec
	registered prometheus.Counter
	failures   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, falling
// back to the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scriptloader_sources_discovered_total",
			Help: "Script sources found under the load root.",
		}),
		loads: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scriptloader_source_load_seconds",
			Help:    "Time spent compiling one script source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scriptloader_components_registered_total",
			Help: "Definitions inserted into the host registry.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scriptloader_bootstrap_failures_total",
			Help: "Aborted bootstrap passes by failure class.",
		}, []string{"class"}),
	}
	for _, collector := range []prometheus.Collector{m.discovered, m.loads, m.registered, m.failures} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LogLoad implements LoadLogger.
func (m *Metrics) LogLoad(event LoadEvent) {
	if m == nil {
		return
	}
	outcome := "ok"
	if event.Err != nil {
		outcome = "error"
	}
	m.loads.WithLabelValues(outcome).Observe(event.Duration.Seconds())
}

func (m *Metrics) observeDiscovered(n int) {
	if m == nil {
		return
	}
	m.discovered.Add(float64(n))
}

func (m *Metrics) observeRegistered() {
	if m == nil {
		return
	}
	m.registered.Inc()
}

func (m *Metrics) observeFailure(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(failureLabel(err)).Inc()
}

func failureLabel(err error) string {
	if class, ok := loaderr.ClassOf(err); ok {
		return class.String()
	}
	return "UNCLASSIFIED"
}
