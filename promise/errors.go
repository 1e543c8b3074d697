package promise

import "errors"

const Namespace = "promise"

var (
	// ErrDeleted is the rejection reason used when a pending entry is removed via Delete.
	ErrDeleted = errors.New(Namespace + ": entry deleted")

	// ErrCleared is the rejection reason used when Clear rejects all pending entries.
	ErrCleared = errors.New(Namespace + ": map cleared")

	// ErrTimeout is a timed-out rejection reason. Nothing in this package
	// returns it: Future.Get reports an elapsed deadline as ctx.Err().
	ErrTimeout = errors.New(Namespace + ": timed out waiting for value")
)
