package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/celeryq/celeryq/envelope"
	"github.com/celeryq/celeryq/metrics"
	"github.com/celeryq/celeryq/promise"
	"github.com/celeryq/celeryq/respool"
)

const (
	redisKeyPrefix = "celery-task-meta-"
	redisTTL       = 24 * time.Hour
)

var redisChannelPattern = regexp.MustCompile(
	`^celery-task-meta-([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`)

// RedisConfig configures a Redis result backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// PoolSize bounds the command connection pool. Defaults to 2.
	PoolSize int
	Logger   zerolog.Logger
	Metrics  metrics.Provider
}

// Redis is the Backend implementation that stores results via SETEX,
// announces them via PUBLISH, and collects them via a dedicated
// PSUBSCRIBE subscriber backed by a promise.Map, falling back to an
// immediate GET for results that arrived before the subscription took
// effect.
type Redis struct {
	addr     string
	password string
	db       int

	pool       *respool.Pool[*redis.Client]
	subscriber *redis.Client
	pubsub     *redis.PubSub
	results    *promise.Map[string, string]

	log zerolog.Logger

	pending metrics.UpDownCounter

	closeOnce sync.Once
	closeErr  error
}

// NewRedis constructs a Redis backend, dials a dedicated subscriber
// connection, and PSUBSCRIBEs to "celery-task-meta-*" before returning.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}
	mp := cfg.Metrics
	if mp == nil {
		mp = metrics.NewNoopProvider()
	}

	b := &Redis{
		addr:     cfg.Addr,
		password: cfg.Password,
		db:       cfg.DB,
		results:  promise.New[string, string](redisTTL),
		log:      cfg.Logger,
		pending:  mp.UpDownCounter(metrics.PendingResults),
	}
	b.pool = respool.New(poolSize, func(context.Context) (*redis.Client, error) {
		return b.newClient(), nil
	})

	b.subscriber = b.newClient()
	b.pubsub = b.subscriber.PSubscribe(ctx, redisKeyPrefix+"*")
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("%s: psubscribe: %w", Namespace, err)
	}
	go b.listen()

	return b, nil
}

func (b *Redis) newClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: b.addr, Password: b.password, DB: b.db})
}

func (b *Redis) listen() {
	for msg := range b.pubsub.Channel() {
		m := redisChannelPattern.FindStringSubmatch(msg.Channel)
		if m == nil {
			continue
		}
		taskID := m[1]
		if b.results.Resolve(taskID, msg.Payload) {
			b.pending.Add(1)
		}
	}
}

// Put SETEXes the result envelope under its task id key (TTL 24h) and
// PUBLISHes it on the same key, so any subscriber already armed observes it
// immediately.
func (b *Redis) Put(ctx context.Context, env envelope.ResultEnvelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%s: marshal result: %w", Namespace, err)
	}
	key := redisKeyPrefix + env.TaskID

	return respool.Use(ctx, b.pool, func(c *redis.Client) (string, error) {
		pipe := c.TxPipeline()
		pipe.SetEx(ctx, key, data, redisTTL)
		pipe.Publish(ctx, key, data)
		if _, err := pipe.Exec(ctx); err != nil {
			return "", fmt.Errorf("%s: put: %w", Namespace, err)
		}
		return "OK", nil
	})
}

// Get awaits taskID's result, first consulting the keyed future map; if no
// entry exists yet it performs an immediate GET fallback for a result that
// arrived (and was stored) before the subscription observed its PUBLISH.
func (b *Redis) Get(ctx context.Context, taskID string, timeout time.Duration) (envelope.ResultEnvelope, error) {
	var out envelope.ResultEnvelope

	existed := b.results.Has(taskID)
	fut := b.results.Get(taskID)

	if !existed {
		if payload, ok, err := b.getFallback(ctx, taskID); err != nil {
			return out, err
		} else if ok {
			b.results.Resolve(taskID, payload)
		}
	}

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

// getFallback performs the immediate GET Get uses when no future was
// already pending: it only short-circuits on a SUCCESS result, per the
// guarantee that an incomplete result recovered this way still needs the
// subscriber to observe its eventual terminal PUBLISH.
func (b *Redis) getFallback(ctx context.Context, taskID string) (payload string, ok bool, err error) {
	payload, err = respool.Use(ctx, b.pool, func(c *redis.Client) (string, error) {
		return c.Get(ctx, redisKeyPrefix+taskID).Result()
	})
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: get fallback: %w", Namespace, err)
	}
	var env envelope.ResultEnvelope
	if jerr := json.Unmarshal([]byte(payload), &env); jerr != nil || env.Status != envelope.StatusSuccess {
		return "", false, nil
	}
	return payload, true, nil
}

// Delete removes taskID's keyed-future entry and DELs its Redis key.
func (b *Redis) Delete(ctx context.Context, taskID string) (string, error) {
	b.results.Delete(taskID)

	n, err := respool.Use(ctx, b.pool, func(c *redis.Client) (int64, error) {
		return c.Del(ctx, redisKeyPrefix+taskID).Result()
	})
	if err != nil {
		return "", fmt.Errorf("%s: delete: %w", Namespace, err)
	}
	if n == 0 {
		return "0", nil
	}
	return "1", nil
}

// Close unsubscribes, closes the subscriber connection, and drains the
// command pool.
func (b *Redis) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = newShutdownSteps(
			func() error { return b.pubsub.PUnsubscribe(context.Background(), redisKeyPrefix+"*") },
			func() error { return b.pubsub.Close() },
			func() error { return b.subscriber.Close() },
			func() error {
				_, err := b.pool.DrainAll(context.Background(), func(c *redis.Client) error { return c.Close() })
				return err
			},
		)()
	})
	return b.closeErr
}

// URI returns a lossy reconstruction of the configured address.
func (b *Redis) URI() (string, error) {
	return fmt.Sprintf("redis://%s/%d", b.addr, b.db), nil
}
