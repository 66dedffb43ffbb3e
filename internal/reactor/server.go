// Package reactor implements the single-threaded I/O reactor paired with a
// worker pool: the core of the key-value server. It owns the listening
// socket, the poll set, the waker, the live-connection table, and the
// dirty set, and runs the event loop described in SPEC_FULL §4.5.
//
// Grounded on the teacher's eventloop/loop.go control flow (poll →
// dispatch → apply-wakeup-state) and eventloop/state.go's atomic
// running-flag idiom; the worker pool lifecycle follows the teacher's use
// of golang.org/x/sync/errgroup elsewhere in the module.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/joeycumines/kvreactor/internal/config"
	"github.com/joeycumines/kvreactor/internal/connio"
	"github.com/joeycumines/kvreactor/internal/dispatch"
	"github.com/joeycumines/kvreactor/internal/pollset"
	"github.com/joeycumines/kvreactor/internal/protocol"
	"github.com/joeycumines/kvreactor/internal/serverlog"
	"github.com/joeycumines/kvreactor/internal/store"
	"github.com/joeycumines/kvreactor/internal/taskqueue"
	"github.com/joeycumines/kvreactor/internal/waker"
)

// Server is the reactor + worker pool. The zero value is not usable; build
// one with New.
type Server struct {
	cfg   config.Config
	store *store.Store
	log   serverlog.Logger

	listenFD int
	poll     *pollset.Set
	wake     waker.Waker
	conns    map[int]*connio.Connection

	dirtyMu sync.Mutex
	dirty   []int

	queue *taskqueue.Queue[task]

	running atomic.Bool
	once    sync.Once
}

// New constructs a Server from the resolved configuration. It performs no
// I/O; call ListenAndServe to bind and run.
func New(cfg config.Config) *Server {
	return &Server{
		cfg:   cfg,
		store: store.New(),
		log:   cfg.Logger,
		poll:  pollset.New(),
		conns: make(map[int]*connio.Connection),
		queue: taskqueue.New[task](cfg.WorkerCount * 64),
	}
}

// Store exposes the underlying key-value store, primarily for tests.
func (s *Server) Store() *store.Store { return s.store }

// ListenAndServe binds the listening socket, starts the worker pool, and
// runs the reactor loop until Stop is called. It blocks until full
// shutdown (all workers joined, all connections closed) and returns any
// startup error.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Listen performs all startup I/O (socket/bind/listen, waker creation) but
// does not run the event loop. Split out from ListenAndServe so tests and
// the CLI can learn the bound address (via Addr) before Serve blocks.
func (s *Server) Listen() error {
	if err := s.listen(); err != nil {
		return fmt.Errorf("reactor: listen: %w", err)
	}

	w, err := waker.New()
	if err != nil {
		_ = unix.Close(s.listenFD)
		return fmt.Errorf("reactor: waker: %w", err)
	}
	s.wake = w
	s.poll.Add(s.wake.ReadFD(), unix.POLLIN)
	return nil
}

// Addr returns the TCP port the listening socket is actually bound to,
// useful when the server was configured with port 0 (OS-assigned) as
// tests do.
func (s *Server) Addr() (int, error) {
	sa, err := unix.Getsockname(s.listenFD)
	if err != nil {
		return 0, err
	}
	inet4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("reactor: unexpected sockaddr type %T", sa)
	}
	return inet4.Port, nil
}

// Serve starts the worker pool and runs the reactor loop until Stop is
// called. It blocks until full shutdown (all workers joined, all
// connections closed). Listen must have been called first.
func (s *Server) Serve() error {
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < s.cfg.WorkerCount; i++ {
		group.Go(func() error {
			s.workerLoop(ctx)
			return nil
		})
	}

	s.running.Store(true)
	s.runLoop()

	s.queue.Close()
	_ = group.Wait()

	for fd, conn := range s.conns {
		conn.MarkClosed()
		_ = conn.Close()
		delete(s.conns, fd)
	}
	_ = unix.Close(s.listenFD)
	_ = s.wake.Close()

	return nil
}

// Stop requests graceful shutdown. Safe to call from any goroutine
// (including a signal handler callback) and safe to call more than once.
func (s *Server) Stop() {
	s.once.Do(func() {
		s.running.Store(false)
		if s.wake != nil {
			_ = s.wake.Notify()
		}
	})
}

func (s *Server) listen() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return err
	}
	addr := &unix.SockaddrInet4{Port: s.cfg.Port}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return err
	}
	if err := unix.Listen(fd, 128); err != nil {
		_ = unix.Close(fd)
		return err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return err
	}
	unix.CloseOnExec(fd)
	s.listenFD = fd
	s.poll.Add(fd, unix.POLLIN)
	return nil
}

// runLoop is the reactor's single-threaded event loop: apply dirty
// updates, block in poll(2), dispatch ready descriptors. Exits once
// running is cleared by Stop.
func (s *Server) runLoop() {
	for s.running.Load() {
		s.applyDirty()

		if _, err := s.poll.Wait(-1); err != nil {
			s.log.Log(serverlog.Entry{Level: serverlog.LevelError, Message: "poll failed", Err: err})
			continue
		}

		for i := 0; i < s.poll.Len(); i++ {
			pfd := s.poll.At(i)
			if pfd.Revents == 0 {
				continue
			}
			fd := int(pfd.Fd)

			switch {
			case s.wake != nil && fd == s.wake.ReadFD():
				_ = s.wake.Clear()

			case fd == s.listenFD:
				if pfd.Revents&unix.POLLIN != 0 {
					s.acceptLoop()
				}

			default:
				conn, ok := s.conns[fd]
				if !ok {
					continue
				}
				if pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
					s.reap(fd)
					i--
					continue
				}
				reaped := false
				if pfd.Revents&unix.POLLIN != 0 {
					if s.handleReadable(fd, conn) {
						reaped = true
					}
				}
				if !reaped && pfd.Revents&unix.POLLOUT != 0 {
					if s.handleWritable(fd, conn) {
						reaped = true
					}
				}
				if reaped {
					i--
				}
			}
		}
	}
}

// applyDirty drains the dirty set, re-enabling POLLOUT interest for each
// fd and giving any connection whose in-flight task just completed a
// chance to have its next buffered line parsed and dispatched, since that
// transition (busy → idle) otherwise has no poll event of its own.
func (s *Server) applyDirty() {
	s.dirtyMu.Lock()
	pending := s.dirty
	s.dirty = nil
	s.dirtyMu.Unlock()

	for _, fd := range pending {
		if !s.poll.Has(fd) {
			continue
		}
		s.poll.AddEvents(fd, unix.POLLOUT)
		if conn, ok := s.conns[fd]; ok {
			s.drainLines(fd, conn)
		}
	}
}

func (s *Server) markDirty(fd int) {
	s.dirtyMu.Lock()
	s.dirty = append(s.dirty, fd)
	s.dirtyMu.Unlock()
}

// acceptLoop accepts every pending connection on the listening socket
// until the accept queue is drained (EAGAIN), per the design note
// preferring non-blocking accept inside a reactor.
func (s *Server) acceptLoop() {
	for {
		nfd, _, err := unix.Accept(s.listenFD)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				return
			}
			s.log.Log(serverlog.Entry{Level: serverlog.LevelWarn, Message: "accept failed", Err: err})
			return
		}
		if err := unix.SetNonblock(nfd, true); err != nil {
			_ = unix.Close(nfd)
			continue
		}
		unix.CloseOnExec(nfd)
		_ = connio.SetNoSigPipe(nfd)

		conn := connio.NewSized(nfd, s.cfg.MaxInboxSize, s.cfg.ReadBufferSize)
		s.conns[nfd] = conn
		s.poll.Add(nfd, unix.POLLIN)
		s.log.Log(serverlog.Entry{Level: serverlog.LevelInfo, Message: "client connected", FD: nfd})
	}
}

// handleReadable drains one non-blocking read into the connection's inbox
// and, if the connection is not mid-task, parses and dispatches whatever
// complete lines are now buffered. Returns true if the connection was
// reaped.
func (s *Server) handleReadable(fd int, conn *connio.Connection) bool {
	ok, err := conn.ReadToInbox()
	if err != nil {
		var overflow *connio.BufferOverflowError
		if errors.As(err, &overflow) {
			conn.AppendResponse(protocol.FormatError("value too large"))
			s.poll.AddEvents(fd, unix.POLLOUT)
			s.log.Log(serverlog.Entry{Level: serverlog.LevelWarn, Message: "request exceeded buffer limit", FD: fd})
			return false
		}
		s.log.Log(serverlog.Entry{Level: serverlog.LevelError, Message: "read failed", FD: fd, Err: err})
		s.reap(fd)
		return true
	}
	if !ok {
		s.reap(fd)
		return true
	}
	s.drainLines(fd, conn)
	return false
}

// drainLines extracts and dispatches buffered lines until the connection
// becomes busy (one task in flight) or no complete line remains, enforcing
// the single-in-flight-task-per-fd ordering rule.
func (s *Server) drainLines(fd int, conn *connio.Connection) {
	for {
		if conn.IsBusy() {
			return
		}
		line, ok := conn.TryGetLine()
		if !ok {
			return
		}
		cmd, err := protocol.Parse([]byte(line))
		if err != nil {
			var pe *protocol.ProtocolError
			if errors.As(err, &pe) {
				conn.AppendResponse(protocol.FormatError(pe.Reason))
				s.poll.AddEvents(fd, unix.POLLOUT)
				s.log.Log(serverlog.Entry{Level: serverlog.LevelWarn, Message: "protocol error", FD: fd, Err: err})
			}
			continue
		}
		if cmd.Kind == protocol.NoOp {
			continue
		}
		if !conn.TryMarkBusy() {
			return
		}
		if !s.queue.Push(newTask(fd, conn, cmd)) {
			conn.ClearBusy()
		}
		return
	}
}

// handleWritable drains one non-blocking write from the connection's
// outbox, clearing POLLOUT interest once it empties. Returns true if the
// connection was reaped.
func (s *Server) handleWritable(fd int, conn *connio.Connection) bool {
	remaining, err := conn.WriteFromOutbox()
	if err != nil {
		s.log.Log(serverlog.Entry{Level: serverlog.LevelError, Message: "write failed", FD: fd, Err: err})
		s.reap(fd)
		return true
	}
	if !remaining {
		s.poll.ClearEvents(fd, unix.POLLOUT)
	}
	return false
}

// reap removes a dead connection from the poll set and connection table in
// O(1), per SPEC_FULL §4.5.
func (s *Server) reap(fd int) {
	s.poll.Remove(fd)
	conn, ok := s.conns[fd]
	if !ok {
		return
	}
	delete(s.conns, fd)
	conn.MarkClosed()
	_ = conn.Close()
	s.log.Log(serverlog.Entry{Level: serverlog.LevelInfo, Message: "client disconnected", FD: fd})
}

// workerLoop executes dispatched tasks against the shared store until the
// task queue is closed during shutdown.
func (s *Server) workerLoop(ctx context.Context) {
	for {
		t, ok := s.queue.Pop()
		if !ok {
			return
		}
		conn := t.conn.Value()
		if conn == nil || conn.IsClosed() {
			continue
		}
		resp := dispatch.Execute(t.cmd, s.store)
		conn.AppendResponse(resp)
		conn.ClearBusy()
		s.markDirty(t.fd)
		if s.wake != nil {
			_ = s.wake.Notify()
		}
	}
}
