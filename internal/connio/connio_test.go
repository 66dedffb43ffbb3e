package connio

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// socketpairConns returns two connected non-blocking Connections, backed
// by an AF_UNIX SOCK_STREAM socketpair, for exercising read/write framing
// without a real TCP listener.
func socketpairConns(t *testing.T) (*Connection, *Connection) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	a := New(fds[0])
	b := New(fds[1])
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func TestReadToInboxAndFraming(t *testing.T) {
	a, b := socketpairConns(t)
	_, err := unix.Write(b.FD, []byte("SET a 1\nGET a\n"))
	require.NoError(t, err)

	ok, err := a.ReadToInbox()
	require.NoError(t, err)
	require.True(t, ok)

	line, got := a.TryGetLine()
	require.True(t, got)
	require.Equal(t, "SET a 1", line)

	line, got = a.TryGetLine()
	require.True(t, got)
	require.Equal(t, "GET a", line)

	_, got = a.TryGetLine()
	require.False(t, got)
}

func TestPartialReadNoLineYet(t *testing.T) {
	a, b := socketpairConns(t)
	_, err := unix.Write(b.FD, []byte("SET key "))
	require.NoError(t, err)

	ok, err := a.ReadToInbox()
	require.NoError(t, err)
	require.True(t, ok)

	_, got := a.TryGetLine()
	require.False(t, got)

	_, err = unix.Write(b.FD, []byte("value\n"))
	require.NoError(t, err)

	ok, err = a.ReadToInbox()
	require.NoError(t, err)
	require.True(t, ok)

	line, got := a.TryGetLine()
	require.True(t, got)
	require.Equal(t, "SET key value", line)
}

func TestWriteFromOutboxDrains(t *testing.T) {
	a, b := socketpairConns(t)
	a.AppendResponse([]byte("OK\n"))
	require.True(t, a.OutboxHasData())

	remaining, err := a.WriteFromOutbox()
	require.NoError(t, err)
	require.False(t, remaining)
	require.False(t, a.OutboxHasData())

	buf := make([]byte, 16)
	n, err := unix.Read(b.FD, buf)
	require.NoError(t, err)
	require.Equal(t, "OK\n", string(buf[:n]))
}

func TestEOFReportsFalse(t *testing.T) {
	a, b := socketpairConns(t)
	require.NoError(t, b.Close())

	ok, err := a.ReadToInbox()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBufferOverflow(t *testing.T) {
	a, b := socketpairConns(t)
	a.maxInbox = 8
	_, err := unix.Write(b.FD, []byte("0123456789"))
	require.NoError(t, err)

	// Drain in scratch-sized chunks until the cap is exceeded.
	var overflowErr error
	for i := 0; i < 10; i++ {
		ok, err := a.ReadToInbox()
		if err != nil {
			overflowErr = err
			break
		}
		if !ok {
			break
		}
		if !a.InboxHasData() {
			continue
		}
	}
	require.Error(t, overflowErr)
	var boe *BufferOverflowError
	require.ErrorAs(t, overflowErr, &boe)
}
