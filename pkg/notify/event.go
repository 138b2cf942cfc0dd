package notify

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
)

type Op uint32

const (
	Create Op = 1 << iota
	Write
	Remove
	Rename
	Chmod
	// Ignored marks an event after which the backend no longer delivers
	// events for the path; the watch has to be added again.
	Ignored
)

// Event
// raw filesystem event as delivered by a Backend.
type Event struct {
	Name         string
	Op           Op
	AbsolutePath string
}

func (op Op) String() string {
	var b strings.Builder
	if op.Has(Create) {
		b.WriteString("|CREATE")
	}
	if op.Has(Remove) {
		b.WriteString("|REMOVE")
	}
	if op.Has(Write) {
		b.WriteString("|WRITE")
	}
	if op.Has(Rename) {
		b.WriteString("|RENAME")
	}
	if op.Has(Chmod) {
		b.WriteString("|CHMOD")
	}
	if op.Has(Ignored) {
		b.WriteString("|IGNORED")
	}
	if b.Len() == 0 {
		return "[no events]"
	}
	return b.String()[1:]
}

func (op Op) Has(h Op) bool { return op&h == h }

func (e Event) Has(op Op) bool { return e.Op.Has(op) }

func (e Event) String() string {
	return fmt.Sprintf("%-13s %q", e.Op.String(), e.Name)
}

// FromFsnotify translates an fsnotify operation. Remove and Rename of a
// watched file leave the kernel watch detached from the path, so both
// also carry Ignored.
func FromFsnotify(op fsnotify.Op) Op {
	var o Op
	if op.Has(fsnotify.Create) {
		o |= Create
	}
	if op.Has(fsnotify.Write) {
		o |= Write
	}
	if op.Has(fsnotify.Remove) {
		o |= Remove | Ignored
	}
	if op.Has(fsnotify.Rename) {
		o |= Rename | Ignored
	}
	if op.Has(fsnotify.Chmod) {
		o |= Chmod
	}
	return o
}
