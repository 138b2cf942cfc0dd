// Package notifytest provides a scripted notify.Backend for tests that
// must not depend on real filesystem events.
package notifytest

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/ManouchehrRasoulli/freespeed/pkg/notify"
)

var ErrNotWatched = errors.New("notifytest: path is not watched")

// Fake records subscriptions and delivers events pushed with Emit. Paths
// listed in Fail are refused by Add.
type Fake struct {
	mu      sync.Mutex
	watches map[string]int
	adds    map[string]int
	fail    map[string]error
	events  chan notify.Event
	errs    chan error
	closed  bool
}

var _ notify.Backend = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		watches: make(map[string]int),
		adds:    make(map[string]int),
		fail:    make(map[string]error),
		events:  make(chan notify.Event, 64),
		errs:    make(chan error, 8),
	}
}

// Fail makes subsequent Add calls for path return err; a nil err clears it.
func (f *Fake) Fail(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if err == nil {
		delete(f.fail, path)
		return
	}
	f.fail[path] = err
}

func (f *Fake) Add(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if f.closed {
		return notify.ErrWatcherClosed
	}
	if err, ok := f.fail[path]; ok {
		return err
	}
	f.watches[path]++
	f.adds[path]++
	return nil
}

func (f *Fake) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	path = filepath.Clean(path)
	if f.watches[path] == 0 {
		return ErrNotWatched
	}
	delete(f.watches, path)
	return nil
}

// Watched reports whether path currently has an active subscription.
func (f *Fake) Watched(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watches[filepath.Clean(path)] > 0
}

// Adds returns how many times path was successfully subscribed.
func (f *Fake) Adds(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds[filepath.Clean(path)]
}

// Emit queues an event for path. Ignored events detach the watch the way
// the kernel does.
func (f *Fake) Emit(path string, op notify.Op) {
	path = filepath.Clean(path)
	if op.Has(notify.Ignored) {
		f.mu.Lock()
		delete(f.watches, path)
		f.mu.Unlock()
	}
	f.events <- notify.Event{Name: path, Op: op, AbsolutePath: path}
}

func (f *Fake) EmitError(err error) { f.errs <- err }

func (f *Fake) Events() <-chan notify.Event { return f.events }

func (f *Fake) Errors() <-chan error { return f.errs }

// Pending is the number of emitted events not yet consumed.
func (f *Fake) Pending() int { return len(f.events) }

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
