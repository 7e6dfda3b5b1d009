package handler

import (
	"github.com/lsds/hcomm/srcs/go/monitor"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/lsds/hcomm/srcs/go/rchannel/connection"
	"github.com/pkg/errors"
)

// CollectiveEndpoint delivers named messages to the receivers waiting for them.
// Each (source, name) pair carries exactly one message.
type CollectiveEndpoint struct {
	self    plan.PeerID
	waitQ   *BufferPool
	recvQ   *BufferPool
	monitor monitor.Monitor
}

func NewCollectiveEndpoint(self plan.PeerID) *CollectiveEndpoint {
	return &CollectiveEndpoint{
		self:    self,
		waitQ:   newBufferPool(1),
		recvQ:   newBufferPool(1),
		monitor: monitor.GetMonitor(),
	}
}

// Handle implements connection.Handler
func (e *CollectiveEndpoint) Handle(conn connection.Connection) (int, error) {
	return connection.Stream(conn, e.accept, e.handle)
}

// Recv waits for the message a into a new buffer.
func (e *CollectiveEndpoint) Recv(a plan.Addr) connection.Message {
	m := <-e.recvQ.require(a)
	e.recvQ.release(a)
	return *m
}

var errRegisteredBufferNotUsed = errors.New("registered buffer not used")

// RecvInto registers m for the message a, which must be sent with
// connection.WaitRecvBuf, and waits until it is filled.
func (e *CollectiveEndpoint) RecvInto(a plan.Addr, m connection.Message) error {
	e.waitQ.require(a) <- &m
	pm := <-e.recvQ.require(a)
	e.recvQ.release(a)
	if !m.Same(pm) {
		return errors.Wrap(errRegisteredBufferNotUsed, a.String())
	}
	return nil
}

func (e *CollectiveEndpoint) accept(conn connection.Connection) (string, *connection.Message, error) {
	var mh connection.MessageHeader
	if err := mh.Decode(conn.Conn()); err != nil {
		return "", nil, err
	}
	name := string(mh.Name)
	if mh.HasFlag(connection.WaitRecvBuf) {
		a := conn.Src().WithName(name)
		m := <-e.waitQ.require(a)
		e.waitQ.release(a)
		if err := m.ReadInto(conn.Conn()); err != nil {
			return "", nil, errors.WithMessage(err, a.String())
		}
		return name, m, nil
	}
	var m connection.Message
	if err := m.Decode(conn.Conn()); err != nil {
		return "", nil, err
	}
	return name, &m, nil
}

func (e *CollectiveEndpoint) handle(name string, msg *connection.Message, conn connection.Connection) {
	e.monitor.Ingress(int64(msg.Length), plan.NetAddr(conn.Src()))
	e.recvQ.require(conn.Src().WithName(name)) <- msg
}
