// Package dispatch executes a parsed protocol.Command against a store,
// producing the response bytes to append to the originating connection's
// outbox. It is pure: no I/O, no connection state.
package dispatch

import (
	"github.com/joeycumines/kvreactor/internal/protocol"
	"github.com/joeycumines/kvreactor/internal/store"
)

// Execute runs cmd against s and returns the wire response. NoOp must never
// reach here; the reactor skips it before enqueueing a task.
func Execute(cmd protocol.Command, s *store.Store) []byte {
	switch cmd.Kind {
	case protocol.Get:
		if v, ok := s.Get(cmd.Key); ok {
			return protocol.FormatValue(v)
		}
		return protocol.FormatError(protocol.KeyNotFound)
	case protocol.Set:
		s.Set(cmd.Key, cmd.Value)
		return protocol.FormatOK()
	case protocol.Del:
		if s.Del(cmd.Key) {
			return protocol.FormatOK()
		}
		return protocol.FormatError(protocol.KeyNotFound)
	case protocol.Ping:
		return protocol.FormatValue("Pong")
	default:
		return nil
	}
}
