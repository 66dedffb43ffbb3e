//go:build !linux && !darwin

package connio

import "golang.org/x/sys/unix"

// writeNoSignal writes p to fd with no special SIGPIPE handling beyond the
// process-wide signal.Ignore(SIGPIPE) the process entry point installs;
// these BSDs have neither MSG_NOSIGNAL nor a universally present
// SO_NOSIGPIPE, so a broken pipe simply surfaces here as EPIPE.
func writeNoSignal(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

// SetNoSigPipe is a no-op on platforms with neither MSG_NOSIGNAL nor
// SO_NOSIGPIPE; SIGPIPE suppression relies entirely on the process-wide
// signal.Ignore installed at startup.
func SetNoSigPipe(fd int) error {
	return nil
}
