package backend

import (
	"context"
	"time"

	"github.com/celeryq/celeryq/envelope"
)

// Noop is the Backend used for tasks built with ignoreResult: Put discards
// the result, Get always rejects with ErrResultIgnored, and Delete is a
// no-op success.
type Noop struct{}

// NewNoop constructs a Noop backend.
func NewNoop() Noop { return Noop{} }

func (Noop) Put(context.Context, envelope.ResultEnvelope) (string, error) {
	return "ignored", nil
}

func (Noop) Get(context.Context, string, time.Duration) (envelope.ResultEnvelope, error) {
	return envelope.ResultEnvelope{}, ErrResultIgnored
}

func (Noop) Delete(context.Context, string) (string, error) {
	return "no result found", nil
}

func (Noop) Close() error { return nil }

func (Noop) URI() (string, error) { return "", ErrURINotSupported }
