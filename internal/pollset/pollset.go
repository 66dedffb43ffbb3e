// Package pollset implements the reactor's poll(2) registration table: an
// ordered list of (fd, interest, revents) triples plus a side index for
// O(1) lookup and O(1) reap, per SPEC_FULL §3/§4.5.
//
// poll(2) rather than epoll/kqueue was chosen deliberately: the flat,
// ordered pollfd array maps directly onto this data model, whereas
// epoll/kqueue's kernel-side interest-registration model has no
// client-visible ordered array for a reap to swap-remove against. See
// DESIGN.md.
package pollset

import "golang.org/x/sys/unix"

// Set is the poll set: an ordered slice of unix.PollFd plus an fd→index
// side table.
type Set struct {
	fds     []unix.PollFd
	indexOf map[int]int
}

// New returns an empty poll set.
func New() *Set {
	return &Set{indexOf: make(map[int]int)}
}

// Add registers fd with the given interest mask. fd must not already be
// registered.
func (s *Set) Add(fd int, events int16) {
	s.indexOf[fd] = len(s.fds)
	s.fds = append(s.fds, unix.PollFd{Fd: int32(fd), Events: events})
}

// Remove unregisters fd in O(1) by swapping it with the last element and
// shrinking the slice, then fixing up the side index for whichever fd was
// moved into fd's old slot.
func (s *Set) Remove(fd int) {
	idx, ok := s.indexOf[fd]
	if !ok {
		return
	}
	last := len(s.fds) - 1
	if idx != last {
		s.fds[idx] = s.fds[last]
		s.indexOf[int(s.fds[idx].Fd)] = idx
	}
	s.fds = s.fds[:last]
	delete(s.indexOf, fd)
}

// SetEvents overwrites the interest mask for an already-registered fd.
func (s *Set) SetEvents(fd int, events int16) {
	if idx, ok := s.indexOf[fd]; ok {
		s.fds[idx].Events = events
	}
}

// AddEvents ORs additional interest bits into an already-registered fd's
// mask.
func (s *Set) AddEvents(fd int, events int16) {
	if idx, ok := s.indexOf[fd]; ok {
		s.fds[idx].Events |= events
	}
}

// ClearEvents ANDs out interest bits for an already-registered fd's mask.
func (s *Set) ClearEvents(fd int, events int16) {
	if idx, ok := s.indexOf[fd]; ok {
		s.fds[idx].Events &^= events
	}
}

// Has reports whether fd is currently registered.
func (s *Set) Has(fd int) bool {
	_, ok := s.indexOf[fd]
	return ok
}

// Len returns the number of registered descriptors.
func (s *Set) Len() int {
	return len(s.fds)
}

// Wait blocks in poll(2) with an infinite timeout (or timeoutMs if >= 0),
// retrying transparently on EINTR. It returns the underlying pollfd slice
// so the caller can scan Revents in registration order; the slice is only
// valid until the next mutation of the set.
func (s *Set) Wait(timeoutMs int) ([]unix.PollFd, error) {
	for {
		_, err := unix.Poll(s.fds, timeoutMs)
		if err == nil {
			return s.fds, nil
		}
		if err == unix.EINTR {
			continue
		}
		return nil, err
	}
}

// At returns the pollfd entry currently at position i, for iteration with
// index-adjusting removal (the scan loop decrements i after a Remove so
// the swapped-in element at the same index is re-examined).
func (s *Set) At(i int) unix.PollFd {
	return s.fds[i]
}
