// Package waker implements the cross-thread reactor wakeup primitive: a
// readable descriptor the reactor polls, and a Notify that workers call
// from other goroutines to break the reactor out of its poll wait.
package waker

// Waker is a one-shot cross-thread nudge. ReadFD returns the descriptor to
// register in the reactor's poll set with POLLIN interest. Notify is safe
// to call concurrently from any goroutine; a pending notification that
// hasn't yet been Cleared is sufficient to wake a blocked poll, so repeat
// notifications before a Clear are coalesced. Clear drains all pending
// wakeups and must be called from the reactor goroutine after the poll
// reports the fd readable.
type Waker interface {
	ReadFD() int
	Notify() error
	Clear() error
	Close() error
}
