package notify

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

var (
	ErrWatcherCreate = errors.New("notify: unable to create filesystem watcher")
	ErrWatcherClosed = errors.New("notify: watcher closed")
)

// Backend is the filesystem event primitive consumed by the checker.
// Add subscribes a single path for all event categories, Remove drops
// that subscription, Close stops delivery for every path.
type Backend interface {
	Add(path string) error
	Remove(path string) error
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

type Option func(w *Watcher)

func WithBufferSize(size int32) Option {
	return func(w *Watcher) {
		w.bufferSize = size
	}
}

// Watcher
// fsnotify backed Backend. Events are translated on a single goroutine
// and handed over on a buffered channel.
type Watcher struct {
	fw         *fsnotify.Watcher
	closed     chan struct{}
	once       sync.Once
	events     chan Event
	errs       chan error
	bufferSize int32
	wg         sync.WaitGroup
}

var _ Backend = (*Watcher)(nil)

func NewWatcher(options ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Join(ErrWatcherCreate, err)
	}

	w := Watcher{
		fw:         fw,
		closed:     make(chan struct{}),
		bufferSize: 25,
	}

	for _, op := range options {
		op(&w)
	}

	w.events = make(chan Event, w.bufferSize)
	w.errs = make(chan error, 1)

	w.wg.Add(1)
	go w.run()

	return &w, nil
}

func (w *Watcher) Add(path string) error {
	select {
	case <-w.closed:
		return ErrWatcherClosed
	default:
	}
	return w.fw.Add(filepath.Clean(path))
}

func (w *Watcher) Remove(path string) error {
	select {
	case <-w.closed:
		return ErrWatcherClosed
	default:
	}
	return w.fw.Remove(filepath.Clean(path))
}

func (w *Watcher) Events() <-chan Event { return w.events }

func (w *Watcher) Errors() <-chan error { return w.errs }

func (w *Watcher) translate(e fsnotify.Event) (Event, bool) {
	if len(e.Name) == 0 { // no event !
		return Event{}, false
	}

	abs, err := filepath.Abs(e.Name)
	if err != nil {
		abs = e.Name
	}

	return Event{
		Name:         e.Name,
		Op:           FromFsnotify(e.Op),
		AbsolutePath: abs,
	}, true
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fw.Events:
			if !ok {
				return
			}
			event, ok := w.translate(e)
			if !ok {
				continue
			}
			select {
			case w.events <- event:
			case <-w.closed:
				return
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			case <-w.closed:
				return
			default: // nobody listening, drop it
			}
		case <-w.closed:
			return
		}
	}
}

// Close stops the translating goroutine and the underlying fsnotify
// watcher. Calling it more than once is safe.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closed)    // Close local threads
		err = w.fw.Close() // Close filesystem watcher
		w.wg.Wait()
	})
	return err
}
