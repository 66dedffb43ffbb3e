package reactor

import (
	"weak"

	"github.com/joeycumines/kvreactor/internal/connio"
	"github.com/joeycumines/kvreactor/internal/protocol"
)

// task is a unit of deferred work: a weak reference to the originating
// Connection (so a connection reaped before the task runs becomes a
// silent no-op) plus the parsed Command to execute.
//
// Grounded on the teacher's eventloop/registry.go promise registry, which
// uses weak.Pointer[promise] for the same reason: letting the owner side
// (there, the loop; here, the reactor) drop its strong reference without
// the other side's outstanding work keeping the object alive.
type task struct {
	fd   int
	conn weak.Pointer[connio.Connection]
	cmd  protocol.Command
}

func newTask(fd int, conn *connio.Connection, cmd protocol.Command) task {
	return task{fd: fd, conn: weak.Make(conn), cmd: cmd}
}
