// Package respool implements a bounded resource pool: at most Max resources
// are ever created, callers block FIFO when none are free, and a resource
// handed back is forwarded directly to the longest-waiting caller rather than
// being recycled through the idle queue. It backs the channel pools used by
// the AMQP broker, the RPC result backend, and the Redis result backend's
// client pool.
package respool

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// NewFunc creates a new resource on demand. It may perform network I/O (e.g.
// opening a channel or a connection) and is only ever called while the pool
// has not yet reached its capacity.
type NewFunc[T comparable] func(ctx context.Context) (T, error)

// DestroyFunc releases a single idle resource during DrainAll. It may be
// asynchronous; DrainAll waits for every call to return before returning
// itself.
type DestroyFunc[T comparable] func(T) error

// Pool lends at most Max resources of type T to concurrent callers. T must be
// comparable (typically a pointer or interface) so Release can recognize
// resources that genuinely belong to this pool.
type Pool[T comparable] struct {
	max   int
	newFn NewFunc[T]

	mu         sync.Mutex
	available  []T          // idle resources, FIFO
	checkedOut map[T]bool   // resources currently on loan
	owned      int          // len(available) + len(checkedOut)
	waiters    []chan T     // FIFO queue of suspended Acquire calls
	emptyCh    chan struct{} // closed when checkedOut becomes empty; replaced on next Acquire
	closed     bool
}

// New constructs a Pool bounded at max resources, created lazily via newFn.
func New[T comparable](max int, newFn NewFunc[T]) *Pool[T] {
	if max <= 0 {
		max = 1
	}
	p := &Pool[T]{
		max:        max,
		newFn:      newFn,
		checkedOut: make(map[T]bool, max),
		emptyCh:    make(chan struct{}),
	}
	close(p.emptyCh) // pool starts empty: the "empty" signal is already latched
	return p
}

// Acquire returns an unused resource, creating one if the pool has not yet
// reached its capacity. Otherwise it suspends on a FIFO waiter queue until
// some caller releases a resource, or until ctx is done.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, ErrClosed
	}

	if n := len(p.available); n > 0 {
		r := p.available[0]
		p.available = p.available[1:]
		p.armInUseLocked()
		p.checkedOut[r] = true
		p.mu.Unlock()
		return r, nil
	}

	if p.owned < p.max {
		p.owned++
		p.armInUseLocked()
		p.mu.Unlock()

		r, err := p.newFn(ctx)
		if err != nil {
			p.mu.Lock()
			p.owned--
			if len(p.checkedOut) == 0 {
				select {
				case <-p.emptyCh:
					// already closed/latched by a concurrent release
				default:
					close(p.emptyCh)
				}
			}
			p.mu.Unlock()
			return zero, err
		}

		p.mu.Lock()
		p.armInUseLocked()
		p.checkedOut[r] = true
		p.mu.Unlock()
		return r, nil
	}

	// Pool exhausted: enqueue a FIFO waiter and suspend.
	wait := make(chan T, 1)
	p.waiters = append(p.waiters, wait)
	p.mu.Unlock()

	select {
	case r := <-wait:
		return r, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, w := range p.waiters {
			if w == wait {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				break
			}
		}
		p.mu.Unlock()

		// A release may have raced us and already sent a resource into wait
		// just before we removed it from the queue; if so, forward it on
		// rather than leaking it.
		select {
		case r := <-wait:
			p.Release(r)
		default:
		}
		return zero, ctx.Err()
	}
}

// armInUseLocked replaces the latched empty signal with a fresh, open one.
// Must be called with p.mu held, exactly when checkedOut transitions from
// empty to non-empty.
func (p *Pool[T]) armInUseLocked() {
	if len(p.checkedOut) == 0 {
		select {
		case <-p.emptyCh:
			p.emptyCh = make(chan struct{})
		default:
		}
	}
}

// Release returns resource to the pool. If a waiter is suspended, the
// resource is forwarded directly to the longest-waiting one without ever
// joining the idle queue. Otherwise it joins the idle queue FIFO, and if the
// in-use set becomes empty, the "empty" signal latches open for DrainAll.
//
// Calling Release with a resource this pool did not hand out is a fatal
// programmer error: it panics, mirroring how AddTask panics on a saturated
// unbuffered channel in the teacher's worker pool.
func (p *Pool[T]) Release(resource T) {
	p.mu.Lock()

	if !p.checkedOut[resource] {
		p.mu.Unlock()
		panic(ErrForeignRelease)
	}
	delete(p.checkedOut, resource)

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.checkedOut[resource] = true
		p.mu.Unlock()
		w <- resource
		return
	}

	p.available = append(p.available, resource)
	if len(p.checkedOut) == 0 {
		close(p.emptyCh)
	}
	p.mu.Unlock()
}

// Use acquires a resource, invokes fn, and always releases the resource
// afterward, propagating fn's return value or panic.
func Use[T comparable, R any](ctx context.Context, p *Pool[T], fn func(T) (R, error)) (R, error) {
	var zero R
	r, err := p.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer p.Release(r)
	return fn(r)
}

// DrainAll waits for the in-use set to become empty, then destroys every idle
// resource via destroy and returns the per-resource outcomes plus a combined
// error (nil if every destruction succeeded). After DrainAll returns without
// a context error, the pool is closed: further Acquire calls fail with
// ErrClosed. If ctx is done first, it returns ctx.Err() and the pool stays
// open.
func (p *Pool[T]) DrainAll(ctx context.Context, destroy DestroyFunc[T]) ([]error, error) {
	p.mu.Lock()
	emptyCh := p.emptyCh
	p.mu.Unlock()

	select {
	case <-emptyCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	idle := p.available
	p.available = nil
	p.owned -= len(idle)
	p.closed = true
	p.mu.Unlock()

	results := make([]error, len(idle))
	var wg sync.WaitGroup
	for i, r := range idle {
		wg.Add(1)
		go func(i int, r T) {
			defer wg.Done()
			results[i] = destroy(r)
		}(i, r)
	}
	wg.Wait()

	return results, multierr.Combine(results...)
}

// Owned reports how many resources (idle + checked out) currently exist.
func (p *Pool[T]) Owned() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owned
}
