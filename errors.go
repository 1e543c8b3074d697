package celeryq

import "errors"

const Namespace = "celeryq"

var (
	// ErrNoBrokers is returned by NewTaskBuilder when given an empty broker list.
	ErrNoBrokers = errors.New(Namespace + ": at least one broker is required")
)
