package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/celeryq/celeryq/envelope"
	"github.com/celeryq/celeryq/metrics"
)

// celeryQueueKey is the Redis list Celery workers BRPOP from.
const celeryQueueKey = "celery"

// RedisConfig configures a Redis broker instance.
type RedisConfig struct {
	// Addr is the Redis server address, e.g. "localhost:6379".
	Addr     string
	Password string
	DB       int
	Logger   zerolog.Logger
	Metrics  metrics.Provider
}

// Redis is the Broker implementation that LPUSHes task envelopes onto the
// "celery" list.
type Redis struct {
	client *redis.Client
	log    zerolog.Logger

	published metrics.Counter
	failures  metrics.Counter
}

// NewRedis constructs a Redis broker.
func NewRedis(cfg RedisConfig) *Redis {
	mp := cfg.Metrics
	if mp == nil {
		mp = metrics.NewNoopProvider()
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		log: cfg.Logger,
		published: mp.Counter(metrics.PublishTotal,
			metrics.WithAttributes(map[string]string{"broker": "redis"})),
		failures: mp.Counter(metrics.PublishFailuresTotal,
			metrics.WithAttributes(map[string]string{"broker": "redis"})),
	}
}

// Publish JSON-encodes env and LPUSHes it onto the "celery" list, returning
// the resulting list length as Redis reports it.
func (b *Redis) Publish(ctx context.Context, env envelope.Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		b.failures.Add(1)
		return "", fmt.Errorf("%s: marshal envelope: %w", Namespace, err)
	}

	n, err := b.client.LPush(ctx, celeryQueueKey, data).Result()
	if err != nil {
		b.failures.Add(1)
		b.log.Warn().Err(err).Msg("LPUSH failed")
		return "", fmt.Errorf("%s: lpush: %w", Namespace, err)
	}
	b.published.Add(1)
	return strconv.FormatInt(n, 10), nil
}

// Close synchronously disconnects the Redis client.
func (b *Redis) Close() error {
	return b.client.Close()
}
