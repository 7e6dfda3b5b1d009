package handler

import (
	"sync"

	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/lsds/hcomm/srcs/go/rchannel/connection"
)

type BufferPool struct {
	sync.Mutex
	qSize   int
	buffers map[plan.Addr]chan *connection.Message
}

func newBufferPool(qSize int) *BufferPool {
	return &BufferPool{
		qSize:   qSize,
		buffers: make(map[plan.Addr]chan *connection.Message),
	}
}

func (p *BufferPool) require(a plan.Addr) chan *connection.Message {
	p.Lock()
	defer p.Unlock()
	m, ok := p.buffers[a]
	if !ok {
		m = make(chan *connection.Message, p.qSize)
		p.buffers[a] = m
	}
	return m
}

// release forgets a; names are used once.
func (p *BufferPool) release(a plan.Addr) {
	p.Lock()
	defer p.Unlock()
	delete(p.buffers, a)
}
