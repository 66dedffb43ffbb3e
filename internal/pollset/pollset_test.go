package pollset

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAddRemoveIndexConsistency(t *testing.T) {
	s := New()
	s.Add(3, unix.POLLIN)
	s.Add(4, unix.POLLIN)
	s.Add(5, unix.POLLIN)
	require.Equal(t, 3, s.Len())

	// Removing the middle element swaps in the last (fd 5) at index 1.
	s.Remove(4)
	require.Equal(t, 2, s.Len())
	require.True(t, s.Has(3))
	require.True(t, s.Has(5))
	require.False(t, s.Has(4))

	require.Equal(t, int32(5), s.At(1).Fd)
}

func TestRemoveLastElement(t *testing.T) {
	s := New()
	s.Add(1, unix.POLLIN)
	s.Add(2, unix.POLLIN)
	s.Remove(2)
	require.Equal(t, 1, s.Len())
	require.True(t, s.Has(1))
}

func TestSetAndClearEvents(t *testing.T) {
	s := New()
	s.Add(7, unix.POLLIN)
	s.AddEvents(7, unix.POLLOUT)
	require.Equal(t, unix.POLLIN|unix.POLLOUT, int(s.At(0).Events))

	s.ClearEvents(7, unix.POLLOUT)
	require.Equal(t, unix.POLLIN, int(s.At(0).Events))
}

func TestWaitOnPipe(t *testing.T) {
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])
	require.NoError(t, unix.SetNonblock(fds[0], true))

	s := New()
	s.Add(fds[0], unix.POLLIN)

	_, err := unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	ready, err := s.Wait(1000)
	require.NoError(t, err)
	require.NotZero(t, ready[0].Revents&unix.POLLIN)
}
