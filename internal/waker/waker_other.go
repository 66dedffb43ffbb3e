//go:build !linux

package waker

import "golang.org/x/sys/unix"

// pipeWaker is a Waker backed by a non-blocking self-pipe: writes to wfd
// are observed as readability on rfd. Grounded on the teacher's
// eventloop/wakeup_darwin.go self-pipe variant.
type pipeWaker struct {
	rfd, wfd int
}

// New returns a self-pipe-backed Waker for non-Linux platforms. pipe2(2) is
// not universally available outside Linux, so this uses plain pipe(2)
// followed by setting the non-blocking and close-on-exec flags on each end,
// exactly as the teacher's darwin waker does.
func New() (Waker, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			return nil, err
		}
		unix.CloseOnExec(fd)
	}
	return &pipeWaker{rfd: fds[0], wfd: fds[1]}, nil
}

func (w *pipeWaker) ReadFD() int { return w.rfd }

func (w *pipeWaker) Notify() error {
	_, err := unix.Write(w.wfd, []byte{1})
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		// The pipe buffer already holds an unread byte; that is
		// sufficient to wake a blocked poll.
		return nil
	}
	return err
}

func (w *pipeWaker) Clear() error {
	var buf [64]byte
	for {
		_, err := unix.Read(w.rfd, buf[:])
		if err == nil {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil
		}
		return err
	}
}

func (w *pipeWaker) Close() error {
	_ = unix.Close(w.wfd)
	return unix.Close(w.rfd)
}
