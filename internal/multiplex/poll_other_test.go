//go:build !linux

package multiplex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPoll_RegisterWaitUnregister(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	mux, err := NewPoll()
	require.NoError(t, err)
	defer mux.Close()

	require.NoError(t, mux.Register(fds[0], true))

	events, err := mux.Wait(time.Second)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, fds[0], events[0].FD)
	require.True(t, events[0].Writable)

	require.NoError(t, mux.Unregister(fds[0]))

	events2, err := mux.Wait(10 * time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, events2, "expected no events after unregister")
}

func TestPoll_WaitTimeoutReturnsNoEvents(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	mux, err := NewPoll()
	require.NoError(t, err)
	defer mux.Close()

	require.NoError(t, mux.Register(fds[0], false))
	require.NoError(t, mux.Modify(fds[0], true, false))

	events, err := mux.Wait(20 * time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, events)
}
