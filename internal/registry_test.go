package internal

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/ManouchehrRasoulli/freespeed/pkg/notify"
	"github.com/ManouchehrRasoulli/freespeed/pkg/notify/notifytest"
)

func fixedCheckpoint(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRegistry_AddWatch(t *testing.T) {
	fb := notifytest.New()
	r := NewRegistry(fb, fixedCheckpoint(time.Now()), WithLogger(lg))

	sub, err := r.AddWatch("/tmp/a/../f1")
	require.NoError(t, err, "subscribe path.")
	require.Equal(t, "/tmp/f1", sub.Path)
	require.Equal(t, uint64(1), sub.Generation)
	require.True(t, fb.Watched("/tmp/f1"))

	again, err := r.AddWatch("/tmp/f1")
	require.NoError(t, err, "subscribe path twice.")
	require.Greater(t, again.Generation, sub.Generation)
	require.Equal(t, 2, fb.Adds("/tmp/f1"))

	cur, ok := r.Subscription("/tmp/f1")
	require.True(t, ok)
	require.Equal(t, again, cur)
	require.Equal(t, []string{"/tmp/f1"}, r.Paths())
}

func TestRegistry_AddWatchFailureDropsPath(t *testing.T) {
	fb := notifytest.New()
	r := NewRegistry(fb, fixedCheckpoint(time.Now()), WithLogger(lg))

	_, err := r.AddWatch("/tmp/f1")
	require.NoError(t, err)

	fb.Fail("/tmp/f1", os.ErrNotExist)
	_, err = r.AddWatch("/tmp/f1")
	require.ErrorIs(t, err, ErrSubscribe)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, ok := r.Subscription("/tmp/f1")
	require.False(t, ok)
	require.Empty(t, r.Paths())

	// events for a dropped path have no handler
	require.Equal(t, Ignore, r.Dispatch(notify.Event{Name: "/tmp/f1", Op: notify.Chmod}))
}

func TestRegistry_AddAll(t *testing.T) {
	fb := notifytest.New()
	fb.Fail("/tmp/gone", os.ErrNotExist)
	fb.Fail("/tmp/denied", os.ErrPermission)
	r := NewRegistry(fb, fixedCheckpoint(time.Now()), WithLogger(lg))

	err := r.AddAll([]string{"/tmp/f1", "/tmp/gone", "/tmp/f2", "/tmp/denied"})
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)
	require.ErrorIs(t, err, ErrSubscribe)
	require.Equal(t, []string{"/tmp/f1", "/tmp/f2"}, r.Paths())

	require.NoError(t, NewRegistry(fb, fixedCheckpoint(time.Now())).AddAll([]string{"/tmp/f3"}))
}

func TestRegistry_DispatchRearm(t *testing.T) {
	checkpoint := time.Now()
	fb := notifytest.New()
	r := NewRegistry(fb, fixedCheckpoint(checkpoint), WithLogger(lg), WithStat(statAt(checkpoint.Add(time.Second))))

	first, err := r.AddWatch("/tmp/f1")
	require.NoError(t, err)

	require.Equal(t, Rearm, r.Dispatch(notify.Event{Name: "/tmp/f1", Op: notify.Ignored}))

	second, ok := r.Subscription("/tmp/f1")
	require.True(t, ok)
	require.Greater(t, second.Generation, first.Generation)
	require.True(t, fb.Watched("/tmp/f1"))

	// the fresh subscription still detects changes
	require.Equal(t, Modified, r.Dispatch(notify.Event{Name: "/tmp/f1", Op: notify.Chmod}))
}

func TestRegistry_DispatchRearmFailure(t *testing.T) {
	fb := notifytest.New()
	r := NewRegistry(fb, fixedCheckpoint(time.Now()), WithLogger(lg))

	_, err := r.AddWatch("/tmp/f1")
	require.NoError(t, err)

	fb.Fail("/tmp/f1", os.ErrNotExist)
	require.Equal(t, Rearm, r.Dispatch(notify.Event{Name: "/tmp/f1", Op: notify.Remove | notify.Ignored}))
	require.Empty(t, r.Paths())
}

func TestRegistry_DispatchUsesCurrentCheckpoint(t *testing.T) {
	mtime := time.Now()
	checkpoint := mtime.Add(-time.Second)
	fb := notifytest.New()
	r := NewRegistry(fb, func() time.Time { return checkpoint }, WithStat(statAt(mtime)))

	_, err := r.AddWatch("/tmp/f1")
	require.NoError(t, err)

	e := notify.Event{Name: "/tmp/f1", Op: notify.Chmod}
	require.Equal(t, Modified, r.Dispatch(e))

	checkpoint = mtime
	require.Equal(t, Ignore, r.Dispatch(e))
}
