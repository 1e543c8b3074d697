package celeryq

import (
	"github.com/rs/zerolog"

	"github.com/celeryq/celeryq/broker"
	"github.com/celeryq/celeryq/metrics"
)

// DeliveryMode selects the AMQP delivery-mode property stamped on a task.
type DeliveryMode int

const (
	// Persistent is delivery_mode 2: the broker should survive a restart
	// with the message intact (subject to queue durability).
	Persistent DeliveryMode = 2
	// Transient is delivery_mode 1: no persistence guarantee.
	Transient DeliveryMode = 1
)

// BuilderConfig holds the TaskBuilder's static configuration.
type BuilderConfig struct {
	// Queue is the default routing key/queue name for tasks that don't
	// override it per call. Defaults to "celery".
	Queue string
	// AppID identifies this application; it becomes properties.reply_to. The
	// builder does not configure the RPC backend: that backend's reply queue
	// is set separately through backend.RPCConfig.ReplyQueue.
	AppID string
	// DeliveryMode defaults to Persistent.
	DeliveryMode DeliveryMode
	// SoftTimeLimit and HardTimeLimit are stamped into every task's
	// headers.timelimit tuple as [soft, hard], in seconds. Zero means null
	// (no limit) for that half of the tuple.
	SoftTimeLimit uint32
	HardTimeLimit uint32
	// Metrics receives instrumentation. Defaults to a no-op provider.
	Metrics metrics.Provider
	// Logger receives structured diagnostics. Defaults to a disabled logger.
	Logger zerolog.Logger

	failover broker.Strategy
}

func (c BuilderConfig) withDefaults() BuilderConfig {
	if c.Queue == "" {
		c.Queue = "celery"
	}
	if c.DeliveryMode == 0 {
		c.DeliveryMode = Persistent
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NewNoopProvider()
	}
	if c.failover == nil {
		c.failover = broker.RoundRobin()
	}
	return c
}

// Option mutates a BuilderConfig at construction time.
type Option func(*BuilderConfig)

// WithQueue overrides the default queue name.
func WithQueue(name string) Option {
	return func(c *BuilderConfig) { c.Queue = name }
}

// WithAppID sets the application id used as reply_to.
func WithAppID(id string) Option {
	return func(c *BuilderConfig) { c.AppID = id }
}

// WithDeliveryMode overrides the default delivery mode.
func WithDeliveryMode(mode DeliveryMode) Option {
	return func(c *BuilderConfig) { c.DeliveryMode = mode }
}

// WithTimeLimits sets the soft and hard time limits (seconds) stamped into
// every task's headers.timelimit. Pass 0 for either to leave it null.
func WithTimeLimits(soft, hard uint32) Option {
	return func(c *BuilderConfig) {
		c.SoftTimeLimit = soft
		c.HardTimeLimit = hard
	}
}

// WithMetrics installs a metrics.Provider.
func WithMetrics(mp metrics.Provider) Option {
	return func(c *BuilderConfig) { c.Metrics = mp }
}

// WithFailoverStrategy overrides the default round-robin broker.Strategy.
func WithFailoverStrategy(s broker.Strategy) Option {
	return func(c *BuilderConfig) { c.failover = s }
}

// WithLogger installs a zerolog.Logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *BuilderConfig) { c.Logger = l }
}
