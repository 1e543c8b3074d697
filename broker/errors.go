package broker

import "errors"

const Namespace = "broker"

var (
	// ErrClosed reports a closed broker. Neither AMQP nor Redis returns it:
	// after Close, AMQP.Publish fails with respool.ErrClosed from its drained
	// channel pool and Redis.Publish with the Redis client's own error.
	ErrClosed = errors.New(Namespace + ": broker is closed")
)
