//go:build linux

package connio

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// writeNoSignal writes p to fd without raising SIGPIPE on a broken pipe, by
// passing MSG_NOSIGNAL directly to the sendto(2) syscall. x/sys/unix's
// high-level Sendto wrapper discards the byte count, which this write path
// needs to correctly advance the outbox on a partial write, so this calls
// the syscall directly — the same pattern the teacher's poller uses for
// raw epoll_wait/epoll_ctl access beyond what the generated unix wrappers
// expose (eventloop/poller_linux.go).
func writeNoSignal(fd int, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, _, errno := unix.Syscall6(unix.SYS_SENDTO,
		uintptr(fd),
		uintptr(unsafe.Pointer(&p[0])),
		uintptr(len(p)),
		uintptr(unix.MSG_NOSIGNAL),
		0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

// SetNoSigPipe is a no-op on Linux, which has no SO_NOSIGPIPE socket
// option; SIGPIPE suppression is instead handled per-write via
// MSG_NOSIGNAL in writeNoSignal.
func SetNoSigPipe(fd int) error {
	return nil
}
