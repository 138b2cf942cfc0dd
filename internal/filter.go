package internal

import (
	"os"
	"time"

	"github.com/ManouchehrRasoulli/freespeed/pkg/notify"
)

type Verdict int

const (
	Ignore Verdict = iota
	Rearm
	Modified
)

func (v Verdict) String() string {
	switch v {
	case Rearm:
		return "rearm"
	case Modified:
		return "modified"
	default:
		return "ignore"
	}
}

// StatFunc reports the current state of a path, os.Stat by default.
type StatFunc func(name string) (os.FileInfo, error)

// Classify decides what a raw event on a watched path means.
//
//   - Ignored: the subscription is gone, re-subscribe the same path.
//   - Chmod or Write: a modification when the watched path no longer
//     exists, or when the mtime of the file the event reports on is
//     strictly after checkpoint.
//   - anything else is ignored.
func Classify(e notify.Event, path string, checkpoint time.Time, stat StatFunc) Verdict {
	if e.Has(notify.Ignored) {
		return Rearm
	}

	if !e.Has(notify.Chmod) && !e.Has(notify.Write) {
		return Ignore
	}

	if stat == nil {
		stat = os.Stat
	}

	fs, err := stat(path)
	if err != nil {
		// removed underneath us
		return Modified
	}

	if e.AbsolutePath != "" && e.AbsolutePath != path {
		fs, err = stat(e.AbsolutePath)
		if err != nil {
			return Modified
		}
	}

	if fs.ModTime().After(checkpoint) {
		return Modified
	}

	return Ignore
}
