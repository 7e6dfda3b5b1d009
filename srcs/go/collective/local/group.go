// Package local implements in-process collectives: every member of a Group
// is a goroutine of the same process, and operation i of all members meets
// in one rendezvous.
package local

import (
	"sync"

	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type opKind int

const (
	opReduce opKind = iota
	opBroadcast
	opAllReduce
)

var opNames = map[opKind]string{
	opReduce:    "reduce",
	opBroadcast: "broadcast",
	opAllReduce: "allreduce",
}

type call struct {
	kind opKind
	root int // reduce and broadcast
	per  int // allreduce
	w    kb.Workspace
}

type rendezvous struct {
	calls   []*call
	arrived int
	done    chan struct{}
	err     error
}

// Group is a set of in-process members.
type Group struct {
	name string
	size int

	mu  sync.Mutex
	ops map[uint64]*rendezvous
}

func NewGroup(name string, size int) *Group {
	return &Group{
		name: name,
		size: size,
		ops:  make(map[uint64]*rendezvous),
	}
}

func (g *Group) Size() int { return g.size }

// Member returns the handle of rank. A member must be used by one caller at a time.
func (g *Group) Member(rank int) *Member {
	return &Member{g: g, rank: rank}
}

func (g *Group) join(seq uint64, rank int, c *call) error {
	g.mu.Lock()
	r, ok := g.ops[seq]
	if !ok {
		r = &rendezvous{calls: make([]*call, g.size), done: make(chan struct{})}
		g.ops[seq] = r
	}
	r.calls[rank] = c
	r.arrived++
	if r.arrived < g.size {
		g.mu.Unlock()
		<-r.done
		return r.err
	}
	delete(g.ops, seq)
	g.mu.Unlock()
	if err := g.check(r.calls); err != nil {
		r.err = errors.WithMessagef(err, "%s#%d", g.name, seq)
	} else {
		r.err = g.run(r.calls)
	}
	close(r.done)
	return r.err
}

func (g *Group) check(cs []*call) error {
	first := cs[0]
	for i, c := range cs {
		if c.kind != first.kind || c.root != first.root || c.per != first.per {
			return errors.Wrapf(kb.ErrCountMismatch, "rank %d issued %s(root=%d, per=%d), rank 0 issued %s(root=%d, per=%d)",
				i, opNames[c.kind], c.root, c.per, opNames[first.kind], first.root, first.per)
		}
		if c.w.SendBuf.Count != first.w.SendBuf.Count || c.w.SendBuf.Type != first.w.SendBuf.Type {
			return errors.Wrapf(kb.ErrCountMismatch, "rank %d sends %d %s, rank 0 sends %d %s",
				i, c.w.SendBuf.Count, c.w.SendBuf.Type, first.w.SendBuf.Count, first.w.SendBuf.Type)
		}
	}
	if first.root < 0 || first.root >= g.size {
		return errors.Wrapf(kb.ErrCountMismatch, "root %d out of %d", first.root, g.size)
	}
	switch first.kind {
	case opReduce:
		if !sameShape(cs[first.root].w.RecvBuf, first.w.SendBuf) {
			return errors.Wrap(kb.ErrCountMismatch, "receive buffer of root does not match")
		}
	case opBroadcast, opAllReduce:
		for i, c := range cs {
			if !sameShape(c.w.RecvBuf, first.w.SendBuf) {
				return errors.Wrapf(kb.ErrCountMismatch, "receive buffer of rank %d does not match", i)
			}
		}
	}
	if first.kind == opAllReduce && first.per*g.size != first.w.SendBuf.Count {
		return errors.Wrapf(kb.ErrCountMismatch, "%d elements is not %d chunks of %d", first.w.SendBuf.Count, g.size, first.per)
	}
	return nil
}

func sameShape(a, b *kb.Vector) bool {
	return a != nil && a.Count == b.Count && a.Type == b.Type
}

func (g *Group) run(cs []*call) error {
	first := cs[0]
	switch first.kind {
	case opReduce:
		root := cs[first.root].w
		root.Forward()
		for i, c := range cs {
			if i != first.root {
				kb.Transform(root.RecvBuf, c.w.SendBuf, c.w.OP)
			}
		}
	case opBroadcast:
		src := cs[first.root].w.SendBuf
		for i, c := range cs {
			if i != first.root {
				c.w.RecvBuf.CopyFrom(src)
			}
		}
		cs[first.root].w.Forward()
	case opAllReduce:
		return g.allReduce(cs, first.per)
	}
	return nil
}

// allReduce reduces the chunks concurrently; members may run it in place.
func (g *Group) allReduce(cs []*call, per int) error {
	parts := make([][]kb.Workspace, len(cs))
	for i, c := range cs {
		parts[i] = c.w.Chunks(per)
	}
	var eg errgroup.Group
	for j, first := range parts[0] {
		eg.Go(func() error {
			acc := kb.NewVector(first.SendBuf.Count, first.SendBuf.Type)
			acc.CopyFrom(first.SendBuf)
			for _, p := range parts[1:] {
				kb.Transform(acc, p[j].SendBuf, p[j].OP)
			}
			for _, p := range parts {
				p[j].RecvBuf.CopyFrom(acc)
			}
			return nil
		})
	}
	return eg.Wait()
}

// Member is one rank of a Group.
type Member struct {
	g    *Group
	rank int
	seq  uint64
}

func (m *Member) Rank() int { return m.rank }

func (m *Member) Size() int { return m.g.size }

func (m *Member) next() uint64 {
	s := m.seq
	m.seq++
	return s
}

func (m *Member) Reduce(w kb.Workspace, root int, s *device.Stream) error {
	seq := m.next()
	s.Enqueue(m.g.name+"::reduce", func() error {
		return m.g.join(seq, m.rank, &call{kind: opReduce, root: root, w: w})
	})
	return nil
}

func (m *Member) Broadcast(w kb.Workspace, root int, s *device.Stream) error {
	seq := m.next()
	s.Enqueue(m.g.name+"::broadcast", func() error {
		return m.g.join(seq, m.rank, &call{kind: opBroadcast, root: root, w: w})
	})
	return nil
}

func (m *Member) AllReduce(w kb.Workspace, perRankCount int) error {
	if perRankCount <= 0 && !w.IsEmpty() {
		return errors.Wrapf(kb.ErrSize, "%d elements per rank", perRankCount)
	}
	return m.g.join(m.next(), m.rank, &call{kind: opAllReduce, per: perRankCount, w: w})
}
