package handler

import (
	"github.com/lsds/hcomm/srcs/go/rchannel/connection"
	"github.com/pkg/errors"
)

// Mux dispatches accepted connections by type.
type Mux struct {
	Collective connection.Handler
}

func (m *Mux) Handle(conn connection.Connection) (int, error) {
	switch conn.Type() {
	case connection.ConnPing:
		return handlePing(conn)
	case connection.ConnCollective:
		if m.Collective != nil {
			return m.Collective.Handle(conn)
		}
	}
	return 0, errors.Errorf("no handler for %s connection from %s", conn.Type(), conn.Src())
}

// handlePing echoes one message back to the sender.
func handlePing(conn connection.Connection) (int, error) {
	name, msg, err := connection.Accept(conn)
	if err != nil {
		return 0, err
	}
	return 1, conn.Send(name, *msg, connection.NoFlag)
}
