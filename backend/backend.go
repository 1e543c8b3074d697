// Package backend implements the result-collection side of the task queue:
// a Redis backend using pub/sub plus a GET fallback, and an RPC backend
// using a per-client RabbitMQ reply queue with correlation-id dispatch.
package backend

import (
	"context"
	"time"

	"github.com/celeryq/celeryq/envelope"
)

// Backend stores and retrieves task results.
type Backend interface {
	Put(ctx context.Context, env envelope.ResultEnvelope) (string, error)
	Get(ctx context.Context, taskID string, timeout time.Duration) (envelope.ResultEnvelope, error)
	Delete(ctx context.Context, taskID string) (string, error)
	Close() error
	// URI returns a lossy reconstruction of the backend's connection
	// address, or an error for backends that don't support it.
	URI() (string, error)
}
