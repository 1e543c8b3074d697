package backend

import "errors"

const Namespace = "backend"

var (
	// ErrURINotSupported is returned by RPC.URI: the RPC backend has no
	// single reconstructible connection URI to report.
	ErrURINotSupported = errors.New(Namespace + ": URI is not supported by this backend")

	// ErrDisconnecting is the rejection reason used when Close rejects every
	// pending entry in the RPC backend's keyed future map.
	ErrDisconnecting = errors.New(Namespace + ": backend is disconnecting")

	// ErrConsumerCancelled is the rejection reason used when RabbitMQ itself
	// cancels the RPC backend's reply-queue consumer (e.g. the queue was
	// deleted out from under it); every pending entry is rejected since no
	// further deliveries will arrive on that consumer.
	ErrConsumerCancelled = errors.New(Namespace + ": RabbitMQ cancelled consumer")

	// ErrResultIgnored is the rejection reason Noop.Get always returns.
	ErrResultIgnored = errors.New(Namespace + ": result was ignored for this task")
)
