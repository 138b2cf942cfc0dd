// Package checker detects changes in a fixed set of files and runs a
// callback when one of them was modified.
//
// A Checker watches the resolved files from construction on. Updated
// reports whether a modification was seen since the last consumed change,
// ExecuteIfUpdated consumes it by running the callback. Detection pauses
// between the first modification and its consumption.
package checker

import (
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManouchehrRasoulli/freespeed/internal"
	"github.com/ManouchehrRasoulli/freespeed/pkg/glob"
	"github.com/ManouchehrRasoulli/freespeed/pkg/notify"
)

var (
	ErrCallback = errors.New("checker: callback failed")
	ErrClosed   = errors.New("checker: closed")
)

type Option func(c *Checker)

func WithLogger(logger *log.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBackend replaces the fsnotify backend. The checker takes ownership
// and closes it on Close.
func WithBackend(backend notify.Backend) Option {
	return func(c *Checker) {
		c.backend = backend
	}
}

func WithStat(stat internal.StatFunc) Option {
	return func(c *Checker) {
		c.stat = stat
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

type Checker struct {
	watchSet internal.WatchSet
	pattern  string
	callback func() error

	backend   notify.Backend
	registry  *internal.Registry
	lifecycle internal.Lifecycle

	dirty      atomic.Bool
	checkpoint atomic.Int64 // unix nanoseconds

	execM  sync.Mutex
	closed bool

	stat   internal.StatFunc
	now    func() time.Time
	logger *log.Logger
}

// New resolves files and dirs into the watch set, subscribes every path
// and starts listening. dirs maps a directory to the extensions watched
// below it; an empty list watches every file. Paths that cannot be
// subscribed are logged and skipped.
func New(files []string, dirs map[string][]string, callback func() error, options ...Option) (*Checker, error) {
	c := Checker{
		pattern:  glob.Compile(dirs),
		callback: callback,
		now:      time.Now,
		logger:   log.New(io.Discard, "", 0),
	}

	for _, op := range options {
		op(&c)
	}

	paths, err := glob.Resolve(files, dirs)
	if err != nil {
		if c.backend != nil {
			_ = c.backend.Close()
		}
		return nil, err
	}
	c.watchSet = internal.NewWatchSet(paths)

	if c.backend == nil {
		c.backend, err = notify.NewWatcher()
		if err != nil {
			return nil, err
		}
	}

	c.registry = internal.NewRegistry(c.backend, c.Checkpoint,
		internal.WithLogger(c.logger),
		internal.WithStat(c.stat))

	if err := c.registry.AddAll(c.watchSet.Paths()); err != nil {
		c.logger.Printf("ERROR checker :: some paths are not watched: %v\n", err)
	}

	c.logger.Printf("checker :: watching %d of %d files, pattern %q\n",
		len(c.registry.Paths()), c.watchSet.Len(), c.pattern)

	c.setCheckpoint(c.now())
	c.start()

	return &c, nil
}

// Updated reports whether a modification is waiting to be consumed.
func (c *Checker) Updated() bool {
	return c.dirty.Load()
}

// ExecuteIfUpdated runs the callback when Updated is true and reports
// whether it did. After a successful callback the checkpoint moves to now
// and listening resumes. A failing callback leaves the change pending, so
// the next call runs it again; the error wraps ErrCallback.
func (c *Checker) ExecuteIfUpdated() (bool, error) {
	c.execM.Lock()
	defer c.execM.Unlock()

	if c.closed {
		return false, ErrClosed
	}

	if !c.Updated() {
		return false, nil
	}

	// the listener stays stopped while the callback runs, so a failing or
	// panicking callback leaves nothing running behind
	c.lifecycle.Stop()

	if c.callback != nil {
		if err := c.callback(); err != nil {
			c.logger.Printf("ERROR checker :: callback failed: %v\n", err)
			return true, errors.Join(ErrCallback, err)
		}
	}

	c.setCheckpoint(c.now())
	c.start()

	return true, nil
}

func (c *Checker) Checkpoint() time.Time {
	return time.Unix(0, c.checkpoint.Load())
}

func (c *Checker) setCheckpoint(t time.Time) {
	c.checkpoint.Store(t.UnixNano())
}

// Pattern is the compiled directory glob, empty without directories.
func (c *Checker) Pattern() string { return c.pattern }

func (c *Checker) WatchSet() internal.WatchSet { return c.watchSet }

// Watching lists the paths with an active subscription.
func (c *Checker) Watching() []string { return c.registry.Paths() }

// Listening reports whether the background listener is running.
func (c *Checker) Listening() bool { return c.lifecycle.Running() }

// Close stops listening and releases the backend.
func (c *Checker) Close() error {
	c.execM.Lock()
	defer c.execM.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.lifecycle.Stop()
	return c.backend.Close()
}

func (c *Checker) start() {
	c.lifecycle.Stop()
	c.dirty.Store(false)
	c.lifecycle.Start(c.listen)
}

// listen delivers backend events to the registry until stopped or until
// the first modification.
func (c *Checker) listen(stop <-chan struct{}) {
	for {
		select {
		case e, ok := <-c.backend.Events():
			if !ok {
				return
			}
			if c.registry.Dispatch(e) == internal.Modified {
				c.dirty.Store(true)
				c.logger.Printf("checker :: modification detected, on event %s\n", e)
				return
			}
		case err, ok := <-c.backend.Errors():
			if !ok {
				return
			}
			c.logger.Printf("ERROR checker :: backend error %v\n", err)
		case <-stop:
			return
		}
	}
}
