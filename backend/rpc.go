package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/celeryq/celeryq/envelope"
	"github.com/celeryq/celeryq/metrics"
	"github.com/celeryq/celeryq/promise"
	"github.com/celeryq/celeryq/respool"
)

const rpcQueueExpiresMillis = 86_400_000

// RPCConfig configures an RPC result backend.
type RPCConfig struct {
	URL string
	// ReplyQueue names this client's dedicated reply queue, typically the
	// application id. It doubles as "properties.reply_to" on published
	// tasks so the worker knows where to send results.
	ReplyQueue string
	// PoolSize bounds the channel pool. Defaults to 2.
	PoolSize int
	Logger   zerolog.Logger
	Metrics  metrics.Provider
}

// RPC is the Backend implementation that collects results from a dedicated
// RabbitMQ reply queue, dispatching deliveries by correlation id into a
// promise.Map, grounded on the bryk-io-pkg rpc type's
// "resp map[string]chan Message" / "responseHandler(ctx, id)" shape. A
// background goroutine watches the connection and transparently redials
// with exponential backoff if it drops, reattaching the consumer on the new
// connection.
type RPC struct {
	url        string
	replyQueue string
	poolSize   int
	log        zerolog.Logger

	connMu    sync.RWMutex
	conn      *amqp.Connection
	pool      *respool.Pool[*amqp.Channel]
	consumeCh *amqp.Channel

	results *promise.Map[string, string]

	watchCtx    context.Context
	watchCancel context.CancelFunc
	watchDone   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewRPC connects to RabbitMQ, declares the reply queue, and begins
// consuming it with noAck.
func NewRPC(cfg RPCConfig) (*RPC, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", Namespace, err)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	b := &RPC{
		url:         cfg.URL,
		replyQueue:  cfg.ReplyQueue,
		poolSize:    poolSize,
		log:         cfg.Logger,
		conn:        conn,
		results:     promise.New[string, string](0),
		watchCtx:    watchCtx,
		watchCancel: watchCancel,
		watchDone:   make(chan struct{}),
	}
	b.pool = b.newPool(conn)

	if err := b.attachConsumer(conn); err != nil {
		return nil, err
	}
	go b.watch()

	return b, nil
}

func (b *RPC) newPool(conn *amqp.Connection) *respool.Pool[*amqp.Channel] {
	return respool.New(b.poolSize, func(context.Context) (*amqp.Channel, error) {
		return conn.Channel()
	})
}

// attachConsumer opens a fresh channel on conn, declares the reply queue,
// and begins consuming with noAck, starting the delivery-dispatch and
// consumer-cancel-watch goroutines against it.
func (b *RPC) attachConsumer(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%s: open consume channel: %w", Namespace, err)
	}
	if _, err := ch.QueueDeclare(
		b.replyQueue, false, false, false, false,
		amqp.Table{"x-expires": int32(rpcQueueExpiresMillis)},
	); err != nil {
		return fmt.Errorf("%s: queue declare: %w", Namespace, err)
	}
	deliveries, err := ch.Consume(b.replyQueue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: consume: %w", Namespace, err)
	}

	b.consumeCh = ch
	go b.dispatch(deliveries)
	go b.watchConsumerCancel(ch.NotifyCancel(make(chan string, 1)))
	return nil
}

func (b *RPC) dispatch(deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		b.results.Resolve(d.CorrelationId, string(d.Body))
	}
}

// watchConsumerCancel rejects every pending result once RabbitMQ itself
// cancels this consumer (distinct from this backend's own Close, which
// rejects with ErrDisconnecting instead).
func (b *RPC) watchConsumerCancel(cancelCh <-chan string) {
	tag, ok := <-cancelCh
	if !ok {
		return
	}
	b.log.Warn().Str("consumer_tag", tag).Msg("RabbitMQ cancelled consumer")
	b.results.RejectAll(ErrConsumerCancelled)
}

// watch redials the connection for as long as it keeps dropping, replacing
// conn, pool, and the reply-queue consumer each time, until the backend is
// Closed or backoff gives up permanently.
func (b *RPC) watch() {
	defer close(b.watchDone)
	for {
		b.connMu.RLock()
		conn := b.conn
		b.connMu.RUnlock()

		newConn := watchAMQPConnection(b.watchCtx, conn, b.url, b.log)
		if newConn == nil {
			return
		}

		b.connMu.Lock()
		b.conn = newConn
		b.pool = b.newPool(newConn)
		if err := b.attachConsumer(newConn); err != nil {
			b.log.Error().Err(err).Msg("rpc backend: failed to reattach consumer after reconnect")
		}
		b.connMu.Unlock()
	}
}

func (b *RPC) currentPool() *respool.Pool[*amqp.Channel] {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.pool
}

// Put declares this client's reply queue and sends the result envelope to
// it, with the task id as the correlation id.
func (b *RPC) Put(ctx context.Context, env envelope.ResultEnvelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%s: marshal result: %w", Namespace, err)
	}

	return respool.Use(ctx, b.currentPool(), func(ch *amqp.Channel) (string, error) {
		if _, err := ch.QueueDeclare(
			b.replyQueue, false, false, false, false,
			amqp.Table{"x-expires": int32(rpcQueueExpiresMillis)},
		); err != nil {
			return "", fmt.Errorf("%s: queue declare: %w", Namespace, err)
		}

		err := ch.PublishWithContext(ctx, "", b.replyQueue, false, false, amqp.Publishing{
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			CorrelationId:   env.TaskID,
			DeliveryMode:    amqp.Transient,
			Priority:        0,
			Body:            data,
		})
		if err != nil {
			return "", fmt.Errorf("%s: sendToQueue: %w", Namespace, err)
		}
		return "sendToQueue", nil
	})
}

// Get awaits taskID's delivery, dispatched by dispatch via correlation id.
func (b *RPC) Get(ctx context.Context, taskID string, timeout time.Duration) (envelope.ResultEnvelope, error) {
	var out envelope.ResultEnvelope

	fut := b.results.Get(taskID)

	getCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		getCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload, err := fut.Get(getCtx)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, fmt.Errorf("%s: unmarshal result: %w", Namespace, err)
	}
	return out, nil
}

// Delete removes taskID's keyed-future entry. The reply queue itself is not
// purged; it expires on its own.
func (b *RPC) Delete(_ context.Context, taskID string) (string, error) {
	if b.results.Delete(taskID) {
		return "deleted", nil
	}
	return "no result found", nil
}

// Close stops the reconnect watcher, rejects every pending entry, cancels
// the consumer, drains the channel pool, and closes the connection.
func (b *RPC) Close() error {
	b.closeOnce.Do(func() {
		b.watchCancel()
		b.results.RejectAll(ErrDisconnecting)

		b.connMu.RLock()
		pool, conn, consumeCh := b.pool, b.conn, b.consumeCh
		b.connMu.RUnlock()

		b.closeErr = newShutdownSteps(
			func() error { return consumeCh.Cancel("", false) },
			func() error { return consumeCh.Close() },
			func() error {
				_, err := pool.DrainAll(context.Background(), func(ch *amqp.Channel) error { return ch.Close() })
				return err
			},
			func() error { return conn.Close() },
		)()
		<-b.watchDone
	})
	return b.closeErr
}

// URI is not supported by the RPC backend.
func (b *RPC) URI() (string, error) {
	return "", ErrURINotSupported
}
