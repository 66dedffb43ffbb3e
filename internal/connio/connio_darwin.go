//go:build darwin

package connio

import "golang.org/x/sys/unix"

// writeNoSignal writes p to fd. SIGPIPE suppression on darwin is handled
// per-socket via SO_NOSIGPIPE (set by the reactor at accept time via
// SetNoSigPipe), so a plain non-blocking write suffices here — mirroring
// the teacher's darwin variant of its socket helpers
// (eventloop/wakeup_darwin.go), which likewise falls back to a plain
// read/write once the platform has no Linux-only flag to reach for.
func writeNoSignal(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

// SetNoSigPipe sets SO_NOSIGPIPE on fd so a write to a peer that has reset
// the connection returns EPIPE instead of raising SIGPIPE.
func SetNoSigPipe(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}
