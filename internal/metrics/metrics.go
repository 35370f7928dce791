package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fallback paths reported by the resolver.
const (
	PathComponent = "component"
	PathFactory   = "factory"
	PathRegistry  = "registry"
	PathNaming    = "naming"
	PathDefault   = "default"
	PathNone      = "none"
)

// Collector records naming engine activity.
type Collector interface {
	Lookup(level, outcome string)
	Resolution(path string)
	SharedBindings(delta int)
	PendingDeferred(delta int)
	FactoryWaitDegraded()
}

// Prometheus is a Collector backed by prometheus collectors.
type Prometheus struct {
	lookups     *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	shared      prometheus.Gauge
	pending     prometheus.Gauge
	degraded    prometheus.Gauge
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(namespace string, reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Lookups by namespace level and outcome.",
		}, []string{"level", "outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Indirect reference resolutions by the fallback path that produced the object.",
		}, []string{"path"}),
		shared: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shared_bindings",
			Help:      "Shared bindings currently held across module, application and global namespaces.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_deferred_references",
			Help:      "Deferred references registered and not yet resolved.",
		}),
		degraded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "factory_wait_degraded",
			Help:      "1 once the factory wait timeout has been exhausted for this process.",
		}),
	}

	for _, c := range []prometheus.Collector{p.lookups, p.resolutions, p.shared, p.pending, p.degraded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Lookup(level, outcome string) {
	p.lookups.WithLabelValues(level, outcome).Inc()
}

func (p *Prometheus) Resolution(path string) {
	p.resolutions.WithLabelValues(path).Inc()
}

func (p *Prometheus) SharedBindings(delta int) {
	p.shared.Add(float64(delta))
}

func (p *Prometheus) PendingDeferred(delta int) {
	p.pending.Add(float64(delta))
}

func (p *Prometheus) FactoryWaitDegraded() {
	p.degraded.Set(1)
}

// Noop discards everything.
type Noop struct{}

// NewNoop returns a Collector that records nothing.
func NewNoop() Collector { return Noop{} }

func (Noop) Lookup(string, string) {}
func (Noop) Resolution(string) {}
func (Noop) SharedBindings(int) {}
func (Noop) PendingDeferred(int) {}
func (Noop) FactoryWaitDegraded() {}
