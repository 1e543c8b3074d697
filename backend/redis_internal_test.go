package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisChannelPattern_ExtractsTaskID(t *testing.T) {
	m := redisChannelPattern.FindStringSubmatch("celery-task-meta-3fa85f64-5717-4562-b3fc-2c963f66afa6")
	if assert.NotNil(t, m) {
		assert.Equal(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", m[1])
	}
}

func TestRedisChannelPattern_RejectsOtherChannels(t *testing.T) {
	assert.Nil(t, redisChannelPattern.FindStringSubmatch("some-other-channel"))
	assert.Nil(t, redisChannelPattern.FindStringSubmatch("celery-task-meta-not-a-uuid"))
}

func TestNewShutdownSteps_AggregatesErrorsAndRunsAll(t *testing.T) {
	var ran []int
	steps := newShutdownSteps(
		func() error { ran = append(ran, 1); return assertErr },
		func() error { ran = append(ran, 2); return nil },
		func() error { ran = append(ran, 3); return assertErr },
	)

	err := steps()
	assert.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, ran)
}

type testErr string

func (e testErr) Error() string { return string(e) }

var assertErr = testErr("boom")
