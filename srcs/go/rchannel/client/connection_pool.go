package client

import (
	"sync"

	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/lsds/hcomm/srcs/go/rchannel/connection"
	"github.com/lsds/hcomm/srcs/go/utils"
)

type connKey struct {
	a plan.PeerID
	t connection.ConnType
}

type connectionPool struct {
	sync.Mutex
	conns map[connKey]connection.Connection
	token uint32
}

func newConnectionPool(token uint32) *connectionPool {
	return &connectionPool{
		conns: make(map[connKey]connection.Connection),
		token: token,
	}
}

func (p *connectionPool) get(remote, local plan.PeerID, t connection.ConnType) connection.Connection {
	p.Lock()
	defer p.Unlock()
	key := connKey{remote, t}
	if conn, ok := p.conns[key]; ok {
		return conn
	}
	conn := connection.New(remote, local, t, p.token)
	p.conns[key] = conn
	return conn
}

func (p *connectionPool) closeAll() error {
	p.Lock()
	defer p.Unlock()
	var errs []error
	for k, conn := range p.conns {
		errs = append(errs, conn.Close())
		delete(p.conns, k)
	}
	return utils.MergeErrors(errs, "close connections")
}
