package promise

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_GetThenResolve(t *testing.T) {
	m := New[string, string](0)

	fut := m.Get("T1")
	assert.True(t, m.IsPending("T1"))

	created := m.Resolve("T1", "foo")
	assert.False(t, created, "entry already existed from Get")

	v, err := fut.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "foo", v)
	assert.True(t, m.IsFulfilled("T1"))
}

func TestMap_ResolveThenGet(t *testing.T) {
	m := New[string, string](0)

	created := m.Resolve("T2", "bar")
	assert.True(t, created)

	fut := m.Get("T2")
	v, err := fut.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bar", v)
}

func TestMap_ResolveOverwritesSettled(t *testing.T) {
	m := New[string, int](0)

	m.Resolve("T3", 1)
	created := m.Resolve("T3", 2)
	assert.False(t, created)

	v, err := m.Get("T3").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestMap_RejectAllOnlyTouchesPending(t *testing.T) {
	m := New[string, int](0)

	pendingFut := m.Get("pending")
	m.Resolve("settled", 42)

	n := m.RejectAll(context.Canceled)
	assert.Equal(t, 1, n)

	_, err := pendingFut.Get(context.Background())
	assert.ErrorIs(t, err, context.Canceled)

	v, err := m.Get("settled").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestMap_Delete(t *testing.T) {
	m := New[string, int](0)

	fut := m.Get("T4")
	assert.True(t, m.Delete("T4"))
	assert.False(t, m.Has("T4"))

	_, err := fut.Get(context.Background())
	assert.ErrorIs(t, err, ErrDeleted)

	assert.False(t, m.Delete("T4"))
}

func TestMap_Clear(t *testing.T) {
	m := New[string, int](0)

	fut := m.Get("a")
	m.Resolve("b", 1)

	n := m.Clear()
	assert.Equal(t, 2, n)
	assert.False(t, m.Has("a"))
	assert.False(t, m.Has("b"))

	_, err := fut.Get(context.Background())
	assert.ErrorIs(t, err, ErrCleared)
}

func TestMap_TTLExpiresEntry(t *testing.T) {
	m := New[string, int](20 * time.Millisecond)

	m.Resolve("T5", 7)
	assert.True(t, m.Has("T5"))

	assert.Eventually(t, func() bool { return !m.Has("T5") }, time.Second, time.Millisecond)
}

func TestMap_TTLResetOnTouch(t *testing.T) {
	m := New[string, int](40 * time.Millisecond)

	m.Resolve("T6", 1)
	time.Sleep(25 * time.Millisecond)
	m.Resolve("T6", 2) // touch resets the timer

	time.Sleep(25 * time.Millisecond)
	assert.True(t, m.Has("T6"), "entry should still be alive after reset")

	assert.Eventually(t, func() bool { return !m.Has("T6") }, time.Second, time.Millisecond)
}

func TestFuture_GetRespectsTimeout(t *testing.T) {
	m := New[string, int](0)
	fut := m.Get("never")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()

	_, err := fut.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The future is untouched: a later resolve still reaches the map.
	m.Resolve("never", 9)
	v, err := m.Get("never").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}
