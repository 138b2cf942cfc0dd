package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Meta struct {
	Name       string
	Size       int64
	ModifyTime time.Time
}

func (f Meta) String() string {
	return fmt.Sprintf("file meta :: file-name: %s, size: %d, modified_at: %v", f.Name, f.Size, f.ModifyTime.String())
}

// WatchSet
// ordered, de-duplicated list of watched files, built once. The metadata
// is a snapshot taken when the set was built and is only informational.
type WatchSet struct {
	paths []string
	meta  map[string]Meta
}

func NewWatchSet(paths []string) WatchSet {
	ws := WatchSet{
		paths: make([]string, 0, len(paths)),
		meta:  make(map[string]Meta, len(paths)),
	}

	for _, p := range paths {
		p = filepath.Clean(p)
		if _, seen := ws.meta[p]; seen {
			continue
		}

		m := Meta{Name: p}
		if fs, err := os.Stat(p); err == nil {
			m.Size = fs.Size()
			m.ModifyTime = fs.ModTime()
		}

		ws.paths = append(ws.paths, p)
		ws.meta[p] = m
	}

	return ws
}

func (ws WatchSet) Len() int { return len(ws.paths) }

// Paths returns a copy of the watched paths in construction order.
func (ws WatchSet) Paths() []string {
	out := make([]string, len(ws.paths))
	copy(out, ws.paths)
	return out
}

// Files returns the metadata snapshot in construction order.
func (ws WatchSet) Files() []Meta {
	out := make([]Meta, 0, len(ws.paths))
	for _, p := range ws.paths {
		out = append(out, ws.meta[p])
	}
	return out
}

func (ws WatchSet) Contains(path string) bool {
	_, ok := ws.meta[filepath.Clean(path)]
	return ok
}
