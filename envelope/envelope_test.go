package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope_TaskID(t *testing.T) {
	e := Envelope{Headers: map[string]any{"id": "abc-123"}}
	assert.Equal(t, "abc-123", e.TaskID())
}

func TestEnvelope_TaskID_Missing(t *testing.T) {
	e := Envelope{Headers: map[string]any{}}
	assert.Equal(t, "", e.TaskID())
}

func TestStatus_Done(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:  false,
		StatusReceived: false,
		StatusStarted:  false,
		StatusRetry:    false,
		StatusSuccess:  true,
		StatusFailure:  true,
		StatusRevoked:  true,
	}
	for status, want := range cases {
		assert.Equal(t, want, status.Done(), "status %q", status)
	}
}
