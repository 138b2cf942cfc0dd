package internal

import (
	"errors"
	"io"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ManouchehrRasoulli/freespeed/pkg/notify"
)

var ErrSubscribe = errors.New("registry: unable to subscribe path")

// Subscription
// bookkeeping for the active watch of one path. Generation grows with
// every successful subscribe across the registry.
type Subscription struct {
	Path       string
	Generation uint64
	Since      time.Time
}

type handler func(e notify.Event) Verdict

type RegistryOption func(r *Registry)

func WithLogger(logger *log.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithStat(stat StatFunc) RegistryOption {
	return func(r *Registry) {
		if stat != nil {
			r.stat = stat
		}
	}
}

// Registry owns one subscription and one handler per watched path.
type Registry struct {
	mu         sync.Mutex
	backend    notify.Backend
	subs       map[string]Subscription
	handlers   map[string]handler
	generation uint64
	checkpoint func() time.Time
	stat       StatFunc
	logger     *log.Logger
}

func NewRegistry(backend notify.Backend, checkpoint func() time.Time, options ...RegistryOption) *Registry {
	r := Registry{
		backend:    backend,
		subs:       make(map[string]Subscription),
		handlers:   make(map[string]handler),
		checkpoint: checkpoint,
		logger:     log.New(io.Discard, "", 0),
	}

	for _, op := range options {
		op(&r)
	}

	return &r
}

// AddWatch (re)subscribes path. A previous subscription for the same path
// is superseded. When the backend refuses the path it is dropped from
// active watching and the returned error wraps ErrSubscribe.
func (r *Registry) AddWatch(path string) (Subscription, error) {
	path = filepath.Clean(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[path]; ok {
		_ = r.backend.Remove(path) // may already be gone on the backend side
	}

	if err := r.backend.Add(path); err != nil {
		delete(r.subs, path)
		delete(r.handlers, path)
		r.logger.Printf("ERROR registry :: drop path %s, got error %v\n", path, err)
		return Subscription{}, errors.Join(ErrSubscribe, err)
	}

	r.generation++
	sub := Subscription{
		Path:       path,
		Generation: r.generation,
		Since:      time.Now(),
	}
	r.subs[path] = sub
	r.handlers[path] = r.handlerFor(path)

	r.logger.Printf("registry :: watch path %s, generation %d\n", path, sub.Generation)
	return sub, nil
}

// AddAll subscribes every path. Paths that fail are reported together;
// the rest stay watched.
func (r *Registry) AddAll(paths []string) error {
	var result *multierror.Error
	for _, p := range paths {
		if _, err := r.AddWatch(p); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (r *Registry) handlerFor(path string) handler {
	return func(e notify.Event) Verdict {
		v := Classify(e, path, r.checkpoint(), r.stat)
		if v == Rearm {
			if _, err := r.AddWatch(path); err != nil {
				r.logger.Printf("ERROR registry :: rearm path %s failed, on event %s\n", path, e)
			}
		}
		return v
	}
}

// Dispatch hands e to the handler of the path it originates from. The
// registry lock is released before the handler runs, so a handler may
// subscribe again.
func (r *Registry) Dispatch(e notify.Event) Verdict {
	name := filepath.Clean(e.Name)

	r.mu.Lock()
	h, ok := r.handlers[name]
	r.mu.Unlock()

	r.logger.Printf("registry :: event %s\n", e)
	if !ok {
		return Ignore
	}

	v := h(e)
	if v != Ignore {
		r.logger.Printf("registry :: verdict %s for path %s\n", v, name)
	}
	return v
}

func (r *Registry) Subscription(path string) (Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[filepath.Clean(path)]
	return sub, ok
}

// Paths lists the actively watched paths in lexical order.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, 0, len(r.subs))
	for p := range r.subs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
