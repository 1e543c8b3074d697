// Package metrics instruments the broker, backend, and task envelope builder
// packages: publish counts and failures, in-flight task gauges, and pending
// result gauges. names.go also defines publish/result latency histogram
// names, which no package in this module records. Instrument names are
// centralized in names.go so every Provider implementation records under the
// same keys regardless of which component touched it.
package metrics

// Provider constructs the instruments celeryq records against. A
// BuilderConfig, AMQPConfig, RedisConfig, or RPCConfig with no Metrics set
// falls back to NoopProvider; callers that want visibility into publish
// throughput or result latency supply BasicProvider (tests, simple
// deployments) or PrometheusProvider (production) instead.
//
// Implementations must be safe for concurrent use, since broker and backend
// publish/get paths record from arbitrary goroutines.
//
// Keep this interface minimal and stable. If you need new capabilities later,
// introduce separate optional interfaces rather than expanding this surface.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts, e.g. PublishTotal or PublishFailuresTotal.
// Methods must be safe for concurrent use.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records values that can move up or down, e.g. InflightTasks
// or PendingResults.
// Methods must be safe for concurrent use.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of float64 measurements, e.g.
// PublishLatencySecs or ResultLatencySecs.
// Methods must be safe for concurrent use.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries optional instrument metadata. It's advisory only.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes are static key-value pairs associated with the instrument
	// itself, e.g. {"broker": "amqp"} distinguishing the AMQP and Redis
	// brokers' publish counters under the same PublishTotal name. Keep
	// cardinality bounded. Implementations may ignore attributes.
	Attributes map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

// WithDescription sets an advisory description for the instrument.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets an advisory unit for the instrument (e.g., "1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes attaches static attributes to the instrument (bounded cardinality only).
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		// copy to avoid external mutation
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}
