package internal

import "sync"

// Lifecycle runs at most one listening goroutine at a time. It has two
// states, stopped and running, and can cycle between them indefinitely.
type Lifecycle struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Start stops any previous loop and spawns run on a new goroutine. run
// must return once stop is closed; it may also return on its own.
func (l *Lifecycle) Start(run func(stop <-chan struct{})) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(stop)
	}()

	l.stop = stop
	l.done = done
}

// Stop signals the loop and waits for its goroutine to return. It is a
// no-op when nothing is running. Stop must not be called from inside run.
func (l *Lifecycle) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()
}

func (l *Lifecycle) stopLocked() {
	if l.stop == nil {
		return
	}

	close(l.stop)
	<-l.done

	l.stop = nil
	l.done = nil
}

// Running reports whether the listening goroutine is still alive.
func (l *Lifecycle) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done == nil {
		return false
	}

	select {
	case <-l.done:
		return false
	default:
		return true
	}
}
