package waker

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNotifyThenClear(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Notify())

	pfd := []unix.PollFd{{Fd: int32(w.ReadFD()), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotZero(t, pfd[0].Revents&unix.POLLIN)

	require.NoError(t, w.Clear())

	pfd[0].Revents = 0
	n, err = unix.Poll(pfd, 10)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestDuplicateNotifyCoalesces(t *testing.T) {
	w, err := New()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Notify())
	require.NoError(t, w.Notify())
	require.NoError(t, w.Notify())
	require.NoError(t, w.Clear())

	pfd := []unix.PollFd{{Fd: int32(w.ReadFD()), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, 10)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
