// Package sync provides the spinlock used to serialize writers of shared
// kernel tables.
package sync

import "sync/atomic"

// attemptsBeforeYielding bounds the busy-wait between calls to yieldFn.
const attemptsBeforeYielding = 64

var (
	// yieldFn is invoked while waiting for a contended lock. It stays nil
	// until the kernel can switch between tasks.
	yieldFn func()
)

// Spinlock is a lock whose waiters busy-wait until it becomes available. The
// zero value is an unlocked Spinlock.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock is held by the caller. Re-acquiring a lock the
// caller already holds deadlocks.
func (l *Spinlock) Acquire() {
	for !l.TryToAcquire() {
		for attempts := 0; atomic.LoadUint32(&l.state) != 0; attempts++ {
			if attempts == attemptsBeforeYielding {
				if yieldFn != nil {
					yieldFn()
				}
				attempts = 0
			}
		}
	}
}

// TryToAcquire attempts to take the lock without waiting and reports whether
// it succeeded.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.CompareAndSwapUint32(&l.state, 0, 1)
}

// Release frees the lock. Releasing a free lock has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
