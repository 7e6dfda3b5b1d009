package server

import (
	"errors"
	"net"
	"sync"

	"github.com/lsds/hcomm/srcs/go/log"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/lsds/hcomm/srcs/go/rchannel/connection"
)

// Server receives messages from remote endpoints
type Server interface {
	Start() error
	Close()
}

type server struct {
	listener net.Listener
	self     plan.PeerID
	handler  connection.Handler
	token    uint32
	wg       sync.WaitGroup
}

// New creates a TCP server listening at the address of self.
func New(self plan.PeerID, handler connection.Handler, token uint32) Server {
	return &server{
		self:    self,
		handler: handler,
		token:   token,
	}
}

func (s *server) Start() error {
	addr := s.self.String()
	log.Debugf("listening: %s", addr)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.serve()
	}()
	return nil
}

func (s *server) serve() {
	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Infof("accept failed: %v", err)
			continue
		}
		go s.handle(tcpConn)
	}
}

func (s *server) handle(tcpConn net.Conn) {
	conn, err := connection.UpgradeFrom(tcpConn, s.self, s.token)
	if err != nil {
		log.Warnf("upgrade conn from %s failed: %v", tcpConn.RemoteAddr(), err)
		tcpConn.Close()
		return
	}
	defer conn.Close()
	if n, err := s.handler.Handle(conn); err != nil {
		log.Warnf("handle conn err: %v after handled %d messages", err, n)
	}
}

// Close stops accepting; connections already accepted end when their remote closes.
func (s *server) Close() {
	if s.listener == nil {
		return
	}
	s.listener.Close()
	s.wg.Wait()
	log.Debugf("server %s closed", s.self)
}
