package celeryq

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/celeryq/celeryq/backend"
	"github.com/celeryq/celeryq/broker"
	"github.com/celeryq/celeryq/envelope"
	"github.com/celeryq/celeryq/metrics"
	"github.com/celeryq/celeryq/packer"
)

// TaskBuilder serializes task invocations into Celery protocol-2 envelopes
// and publishes them through a rotation of brokers, failing over to the
// next one (per its Strategy) on publish error.
type TaskBuilder struct {
	name    string
	cfg     BuilderConfig
	backend backend.Backend
	log     zerolog.Logger

	mu        sync.Mutex
	brokers   []broker.Broker
	lastIndex int

	inflight metrics.UpDownCounter
}

// NewTaskBuilder builds a TaskBuilder bound to the named task (the dotted
// name a Celery worker dispatches on, stamped as headers["task"] on every
// envelope this builder produces — mirroring createTask(name) binding one
// builder to one task name) over brokers (tried in the given order, then
// rotated per the configured failover Strategy) and a default result
// backend.
func NewTaskBuilder(name string, brokers []broker.Broker, b backend.Backend, opts ...Option) (*TaskBuilder, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	cfg := BuilderConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	cfg = cfg.withDefaults()

	return &TaskBuilder{
		name:      name,
		cfg:       cfg,
		backend:   b,
		log:       cfg.Logger,
		brokers:   brokers,
		lastIndex: -1,
		inflight:  cfg.Metrics.UpDownCounter(metrics.InflightTasks),
	}, nil
}

// currentBroker returns the broker currently selected for publishing.
func (t *TaskBuilder) currentBroker() broker.Broker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastIndex < 0 {
		t.lastIndex = 0
	}
	return t.brokers[t.lastIndex]
}

// failover advances to the next broker per the configured Strategy and
// returns it.
func (t *TaskBuilder) failover() broker.Broker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastIndex = t.cfg.failover.Next(t.brokers, t.lastIndex)
	return t.brokers[t.lastIndex]
}

// Apply builds a fresh task id, constructs the envelope for opts, and
// publishes it, retrying against the failover strategy indefinitely until
// ctx is done. It returns a ResultHandle immediately; the handle's Get call
// does the actual waiting for a result.
func (t *TaskBuilder) Apply(ctx context.Context, opts TaskOptions) (*ResultHandle, error) {
	opts = opts.withDefaults()
	taskID := uuid.NewString()

	effectiveBackend := t.backend
	if opts.IgnoreResult {
		effectiveBackend = backend.NewNoop()
	}
	handle := newResultHandle(taskID, effectiveBackend)

	queue := t.cfg.Queue
	if opts.Queue != "" {
		queue = opts.Queue
	}

	pk, err := packer.New(opts.Serializer, opts.Compression)
	if err != nil {
		return nil, err
	}

	env, err := buildEnvelope(taskID, t.name, queue, t.cfg.DeliveryMode, t.cfg.AppID, t.cfg.SoftTimeLimit, t.cfg.HardTimeLimit, opts, pk)
	if err != nil {
		return nil, err
	}

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Add(-1)
		if err := t.publishWithFailover(ctx, env); err != nil {
			handle.setPublishErr(err)
		}
	}()

	return handle, nil
}

// publishWithFailover publishes env on the current broker, asking the
// failover strategy for a new broker and retrying on every error, until
// publish succeeds or ctx is done.
func (t *TaskBuilder) publishWithFailover(ctx context.Context, env envelope.Envelope) error {
	b := t.currentBroker()
	for {
		_, err := b.Publish(ctx, env)
		if err == nil {
			return nil
		}
		t.log.Warn().Err(err).Msg("publish failed, failing over")

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b = t.failover()
	}
}
