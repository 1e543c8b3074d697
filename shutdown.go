package celeryq

import (
	"sync"

	"go.uber.org/multierr"
)

// shutdownSequence runs a fixed list of teardown steps exactly once, in
// order, aggregating every step's error. The broker and backend packages do
// not use it: the Redis and RPC backends compose their Close steps with
// backend's own newShutdownSteps, and the AMQP broker's Close runs its
// teardown inline.
type shutdownSequence struct {
	steps []func() error
	once  sync.Once
	err   error
}

// newShutdownSequence builds a shutdownSequence that runs steps in order the
// first time Close is called.
func newShutdownSequence(steps ...func() error) *shutdownSequence {
	return &shutdownSequence{steps: steps}
}

// Close runs every step exactly once, in order, continuing past a step that
// errors so that later teardown (e.g. closing the connection) still runs.
// It returns the combined error from every step, or nil if all succeeded.
func (s *shutdownSequence) Close() error {
	s.once.Do(func() {
		var errs error
		for _, step := range s.steps {
			if step == nil {
				continue
			}
			errs = multierr.Append(errs, step())
		}
		s.err = errs
	})
	return s.err
}
