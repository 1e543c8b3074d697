package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider implements Provider on top of client_golang, registering
// one collector per instrument name the first time it is requested and
// reusing it afterward, the same on-demand-create-once discipline as
// BasicProvider.
type PrometheusProvider struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	updowns    map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusProvider constructs a PrometheusProvider that registers its
// instruments against reg. Pass prometheus.NewRegistry() for an isolated
// registry, or nil to use prometheus.DefaultRegisterer's registry.
func NewPrometheusProvider(reg *prometheus.Registry) *PrometheusProvider {
	return &PrometheusProvider{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		updowns:    make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *PrometheusProvider) register(c prometheus.Collector) {
	if p.reg != nil {
		p.reg.MustRegister(c)
		return
	}
	prometheus.MustRegister(c)
}

// Counter returns a Prometheus-backed Counter for name, created on first use.
func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: cfg.Description,
		}, labelNames(cfg.Attributes))
		p.register(vec)
		p.counters[name] = vec
	}
	return promCounter{vec.With(cfg.Attributes)}
}

// UpDownCounter returns a Prometheus gauge for name, created on first use.
func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.updowns[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: cfg.Description,
		}, labelNames(cfg.Attributes))
		p.register(vec)
		p.updowns[name] = vec
	}
	return promUpDown{vec.With(cfg.Attributes)}
}

// Histogram returns a Prometheus histogram for name, created on first use.
func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: name,
			Help: cfg.Description,
		}, labelNames(cfg.Attributes))
		p.register(vec)
		p.histograms[name] = vec
	}
	return promHistogram{vec.With(cfg.Attributes)}
}

func labelNames(attrs map[string]string) []string {
	if len(attrs) == 0 {
		return nil
	}
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	return names
}

type promCounter struct{ c prometheus.Counter }

func (p promCounter) Add(n int64) { p.c.Add(float64(n)) }

type promUpDown struct{ g prometheus.Gauge }

func (p promUpDown) Add(n int64) { p.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Observer }

func (p promHistogram) Record(v float64) { p.h.Observe(v) }
