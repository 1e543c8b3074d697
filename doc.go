// Package celeryq implements the client-side core of a Celery protocol-2
// compatible task queue: a task envelope builder that serializes, compresses,
// and encodes a task invocation into the wire envelope Celery workers expect,
// a broker abstraction with failover across AMQP and Redis transports
// (package broker), two result backend implementations (package backend),
// and the concurrency primitives both depend on — a bounded resource pool
// (package respool) and a keyed future map (package promise).
//
// Constructors
//   - NewTaskBuilder(name string, brokers []broker.Broker, backend
//     backend.Backend, opts ...Option): builds a TaskBuilder bound to the
//     named task (stamped as headers["task"] on every envelope) with a
//     round-robin failover strategy by default. Use WithFailoverStrategy to
//     supply a custom one.
//
// Applying a task
// TaskBuilder.Apply constructs a fresh task id, builds the packer for the
// requested serializer/compression, computes the envelope, and publishes it
// through the currently selected broker, retrying against the failover
// strategy on publish error. It returns a ResultHandle immediately; the
// handle's Get call blocks until the matching backend entry settles or the
// supplied timeout elapses.
//
// Result handles
// ResultHandle.Get is idempotent: the first call that observes a terminal
// status memoizes it, and later calls return the memoized outcome without
// touching the backend again.
package celeryq
