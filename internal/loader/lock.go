package loader

import "sync/atomic"

// runLock guards a Loader against overlapping runs. Callers that lose the
// race get ErrLoadInProgress instead of queueing behind the active run.
type runLock struct {
	held atomic.Bool
}

// tryAcquire takes the lock if it is free.
func (l *runLock) tryAcquire() bool {
	return l.held.CompareAndSwap(false, true)
}

// release frees the lock. Only the holder may call it.
func (l *runLock) release() {
	l.held.Store(false)
}
