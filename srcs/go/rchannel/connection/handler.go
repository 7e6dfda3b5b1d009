package connection

import (
	"io"

	"github.com/pkg/errors"
)

type Handler interface {
	Handle(conn Connection) (int, error)
}

type HandlerFunc func(Connection) (int, error)

func (f HandlerFunc) Handle(c Connection) (int, error) { return f(c) }

type AcceptFunc func(conn Connection) (string, *Message, error)

type MsgHandleFunc func(name string, msg *Message, conn Connection)

// Accept accepts one message from connection
func Accept(conn Connection) (string, *Message, error) {
	var mh MessageHeader
	if err := mh.Decode(conn.Conn()); err != nil {
		return "", nil, err
	}
	var msg Message
	if err := msg.Decode(conn.Conn()); err != nil {
		return "", nil, err
	}
	return string(mh.Name), &msg, nil
}

// Stream accepts and handles messages until the remote closes the connection.
func Stream(conn Connection, accept AcceptFunc, handle MsgHandleFunc) (int, error) {
	for i := 0; ; i++ {
		name, msg, err := accept(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return i, nil
			}
			return i, err
		}
		handle(name, msg, conn)
	}
}
