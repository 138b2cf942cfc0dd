package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitEvent(t *testing.T, w *Watcher, want Op) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-w.Events():
			t.Log(e)
			if e.Has(want) {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s event received", want)
			return Event{}
		}
	}
}

func TestWatcher_WithFastExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher()
	require.NoError(t, err, "create watcher.")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close twice.")

	require.ErrorIs(t, w.Add(t.TempDir()), ErrWatcherClosed)
	require.ErrorIs(t, w.Remove(t.TempDir()), ErrWatcherClosed)
}

func TestWatcher_FileEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	testFilePath := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(testFilePath, nil, 0o644), "create temporary file.")

	w, err := NewWatcher(WithBufferSize(4))
	require.NoError(t, err, "create watcher.")
	defer w.Close()

	require.NoError(t, w.Add(testFilePath), "watch file.")

	{ // CHMOD
		mtime := time.Now().Add(time.Second)
		require.NoError(t, os.Chtimes(testFilePath, mtime, mtime), "touch file.")
		e := waitEvent(t, w, Chmod)
		require.Equal(t, testFilePath, e.Name)
		require.Equal(t, testFilePath, e.AbsolutePath)
	}

	{ // WRITE
		f, err := os.OpenFile(testFilePath, os.O_WRONLY, 0)
		require.NoError(t, err, "open file.")
		_, err = f.WriteString("test string !")
		require.NoError(t, err, "write into file.")
		require.NoError(t, f.Close(), "close file.")
		waitEvent(t, w, Write)
	}

	{ // REMOVE
		require.NoError(t, os.Remove(testFilePath), "remove file.")
		e := waitEvent(t, w, Ignored)
		require.True(t, e.Has(Remove))
	}

	require.Error(t, w.Add(testFilePath), "path is gone.")
}

func TestWatcher_RemoveUnwatched(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher()
	require.NoError(t, err, "create watcher.")
	defer w.Close()

	require.Error(t, w.Remove(filepath.Join(t.TempDir(), "nope")))
}

func TestFromFsnotify(t *testing.T) {
	testTable := []struct {
		in   fsnotify.Op
		want Op
	}{
		{fsnotify.Create, Create},
		{fsnotify.Write, Write},
		{fsnotify.Chmod, Chmod},
		{fsnotify.Remove, Remove | Ignored},
		{fsnotify.Rename, Rename | Ignored},
		{fsnotify.Write | fsnotify.Chmod, Write | Chmod},
		{0, 0},
	}

	for _, td := range testTable {
		require.Equal(t, td.want, FromFsnotify(td.in), td.in.String())
	}
}

func TestOp_String(t *testing.T) {
	require.Equal(t, "[no events]", Op(0).String())
	require.Equal(t, "CHMOD", Chmod.String())
	require.Equal(t, "REMOVE|IGNORED", (Remove | Ignored).String())
	require.Equal(t, `CHMOD         "/tmp/f1"`, Event{Name: "/tmp/f1", Op: Chmod}.String())
}
