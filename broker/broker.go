// Package broker implements the publish side of the task queue: an AMQP
// 0-9-1 broker and a Redis broker, both behind the Broker interface so the
// task envelope builder can fail over between them transparently.
package broker

import (
	"context"

	"github.com/celeryq/celeryq/envelope"
)

// Broker publishes task envelopes to a transport and reports the transport's
// raw response string on success.
type Broker interface {
	Publish(ctx context.Context, env envelope.Envelope) (string, error)
	Close() error
}

// Strategy picks the next broker to try, given the full rotation and the
// index most recently attempted. It is consulted by the task envelope
// builder on publish failure.
type Strategy interface {
	Next(brokers []Broker, lastIndex int) int
}

// roundRobin is the built-in Strategy: advance to the next index, wrapping
// around.
type roundRobin struct{}

// RoundRobin is the default Strategy: always advance to (lastIndex+1) mod
// len(brokers).
func RoundRobin() Strategy { return roundRobin{} }

func (roundRobin) Next(brokers []Broker, lastIndex int) int {
	if len(brokers) == 0 {
		return 0
	}
	return (lastIndex + 1) % len(brokers)
}
