// Package connio implements per-connection buffering and framing on top of
// a non-blocking raw socket descriptor: a reactor-thread-only inbox, a
// mutex-guarded outbox, and line extraction.
package connio

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// MaxInboxSize is the default cap on buffered-but-unframed inbound bytes
// for a single connection, per SPEC_FULL §3/§6.
const MaxInboxSize = 2 << 20 // 2 MiB

// ReadScratchSize is the size of the scratch buffer used for each
// non-blocking read.
const ReadScratchSize = 4096

// IOError wraps a non-recoverable per-connection I/O failure. The reactor
// reaps the connection on IOError; no message is sent to the client.
type IOError struct {
	Op    string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("connio: %s: %s", e.Op, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// BufferOverflowError reports that a single request exceeded the inbox
// cap. The connection's inbox is reset and an error response is sent; the
// connection stays open.
type BufferOverflowError struct {
	Limit int
}

func (e *BufferOverflowError) Error() string {
	return fmt.Sprintf("connio: request exceeds %d byte limit", e.Limit)
}

// Connection owns one non-blocking client socket: an inbox that only the
// reactor goroutine touches, and an outbox guarded by a mutex because
// workers append to it from other goroutines.
type Connection struct {
	FD int

	maxInbox int
	scratch  []byte
	inbox    []byte

	outMu  sync.Mutex
	outbox []byte

	// busy marks whether a task derived from this connection is currently
	// in flight, per the single-in-flight-task-per-fd ordering rule
	// (SPEC_FULL §4.5 "Per-connection ordering"). Set by the reactor
	// goroutine, cleared by whichever worker completes the task.
	busy atomic.Bool

	// closed marks whether the reactor has already reaped this connection.
	closed atomic.Bool
}

// New wraps fd (already non-blocking) in a Connection using the default
// inbox cap and read buffer size.
func New(fd int) *Connection {
	return NewSized(fd, MaxInboxSize, ReadScratchSize)
}

// NewSized wraps fd with explicit inbox cap and read buffer sizing.
func NewSized(fd, maxInbox, scratchSize int) *Connection {
	return &Connection{
		FD:       fd,
		maxInbox: maxInbox,
		scratch:  make([]byte, scratchSize),
	}
}

// TryMarkBusy atomically transitions the connection from idle to busy,
// reporting whether the transition succeeded (false means a task is
// already in flight for this connection).
func (c *Connection) TryMarkBusy() bool {
	return c.busy.CompareAndSwap(false, true)
}

// ClearBusy marks the connection idle again, called by the worker that
// completes the in-flight task.
func (c *Connection) ClearBusy() {
	c.busy.Store(false)
}

// MarkClosed flags the connection as reaped, so a worker holding a weak
// reference to it (whose Value() may not yet have gone nil, since the Go
// garbage collector does not promptly clear weak pointers) knows not to
// act on a stale task.
func (c *Connection) MarkClosed() {
	c.closed.Store(true)
}

// IsClosed reports whether the reactor has already reaped this connection.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// IsBusy reports whether a task is currently in flight for this connection.
func (c *Connection) IsBusy() bool {
	return c.busy.Load()
}

// ReadToInbox performs one non-blocking read into the inbox. It returns
// (true, nil) if data was read or the read would block, (false, nil) if
// the peer performed an orderly close (read returned 0), or a non-nil
// error (*BufferOverflowError or *IOError) otherwise.
func (c *Connection) ReadToInbox() (bool, error) {
	n, err := unix.Read(c.FD, c.scratch)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return true, nil
		}
		if err == unix.EINTR {
			return true, nil
		}
		return false, &IOError{Op: "read", Cause: err}
	}
	if n == 0 {
		return false, nil
	}
	if len(c.inbox)+n > c.maxInbox {
		c.inbox = c.inbox[:0]
		return false, &BufferOverflowError{Limit: c.maxInbox}
	}
	c.inbox = append(c.inbox, c.scratch[:n]...)
	return true, nil
}

// TryGetLine removes and returns the first complete line in the inbox
// (without its trailing '\n'), or ("", false) if no full line is buffered
// yet. A trailing '\r' is left in place for the protocol layer to strip.
func (c *Connection) TryGetLine() (string, bool) {
	idx := bytes.IndexByte(c.inbox, '\n')
	if idx < 0 {
		return "", false
	}
	line := string(c.inbox[:idx])
	rest := make([]byte, len(c.inbox)-idx-1)
	copy(rest, c.inbox[idx+1:])
	c.inbox = rest
	return line, true
}

// InboxHasData reports whether unframed bytes remain buffered.
func (c *Connection) InboxHasData() bool {
	return len(c.inbox) > 0
}

// AppendResponse appends bytes to the outbox under its mutex. Safe to call
// from any goroutine.
func (c *Connection) AppendResponse(p []byte) {
	if len(p) == 0 {
		return
	}
	c.outMu.Lock()
	c.outbox = append(c.outbox, p...)
	c.outMu.Unlock()
}

// OutboxHasData reports whether pending bytes remain to be written.
func (c *Connection) OutboxHasData() bool {
	c.outMu.Lock()
	has := len(c.outbox) > 0
	c.outMu.Unlock()
	return has
}

// WriteFromOutbox attempts one non-blocking write of the entire pending
// outbox. It returns (true, nil) if bytes remain to be written after this
// call (including the EAGAIN/EWOULDBLOCK case where nothing was written),
// (false, nil) if the outbox is now empty, or a non-nil *IOError.
func (c *Connection) WriteFromOutbox() (bool, error) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	if len(c.outbox) == 0 {
		return false, nil
	}
	n, err := writeNoSignal(c.FD, c.outbox)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return true, nil
		}
		return false, &IOError{Op: "write", Cause: err}
	}
	c.outbox = c.outbox[n:]
	return len(c.outbox) > 0, nil
}

// Close closes the underlying socket. It must be called exactly once.
func (c *Connection) Close() error {
	return unix.Close(c.FD)
}
