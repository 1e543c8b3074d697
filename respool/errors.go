package respool

import "errors"

const Namespace = "respool"

var (
	// ErrForeignRelease is raised when Release is called with a resource that
	// is not currently checked out of this pool. It is a programmer error and
	// is never expected to be handled by well-behaved callers.
	ErrForeignRelease = errors.New(Namespace + ": release of resource not owned by this pool")

	// ErrClosed is returned by Acquire once the pool has been drained.
	ErrClosed = errors.New(Namespace + ": pool is closed")
)
