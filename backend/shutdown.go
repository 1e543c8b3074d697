package backend

import "go.uber.org/multierr"

// newShutdownSteps composes steps into a single func that runs each in
// order, continuing past a failing step so later teardown still runs, and
// returns the combined error.
func newShutdownSteps(steps ...func() error) func() error {
	return func() error {
		var errs error
		for _, step := range steps {
			if step == nil {
				continue
			}
			errs = multierr.Append(errs, step())
		}
		return errs
	}
}
