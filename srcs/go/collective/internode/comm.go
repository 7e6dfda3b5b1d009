// Package internode runs the cross-node tier over TCP message channels: one
// Comm per node root, allreducing as a reduce-scatter followed by an
// allgather of fixed size chunks.
package internode

import (
	"context"
	"encoding/binary"
	"fmt"

	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/log"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/lsds/hcomm/srcs/go/rchannel/client"
	"github.com/lsds/hcomm/srcs/go/rchannel/connection"
	"github.com/lsds/hcomm/srcs/go/rchannel/handler"
	"github.com/lsds/hcomm/srcs/go/rchannel/server"
	"github.com/lsds/hcomm/srcs/go/utils"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Comm is the cross-node group of one root. AllReduce must be called by
// one goroutine at a time, and in the same order on every root.
type Comm struct {
	self  plan.PeerID
	roots plan.PeerList
	rank  int

	client   *client.Client
	endpoint *handler.CollectiveEndpoint
	server   server.Server

	seq uint64
}

// TokenOf derives the connection token of a topology, so that roots with
// different views of the job refuse each other.
func TokenOf(topo *plan.Topology) uint32 {
	return binary.LittleEndian.Uint32(topo.Digest())
}

func New(self plan.PeerID, roots plan.PeerList, token uint32) (*Comm, error) {
	rank, ok := roots.Rank(self)
	if !ok {
		return nil, errors.Wrapf(kb.ErrTopology, "%s is not a node root of %s", self, roots)
	}
	e := handler.NewCollectiveEndpoint(self)
	return &Comm{
		self:     self,
		roots:    roots,
		rank:     rank,
		client:   client.New(self, token),
		endpoint: e,
		server:   server.New(self, &handler.Mux{Collective: e}, token),
	}, nil
}

// Start listens for the other roots and waits until all of them are reachable.
func (c *Comm) Start(ctx context.Context) error {
	if err := c.server.Start(); err != nil {
		return errors.Wrapf(kb.ErrInitialization, "listen %s: %v", c.self, err)
	}
	var eg errgroup.Group
	for _, p := range c.roots {
		if p == c.self {
			continue
		}
		eg.Go(func() error {
			n, ok := c.client.Wait(ctx, p)
			if !ok {
				return errors.Wrapf(kb.ErrInitialization, "%s unreachable after %s", p, utils.Pluralize(n, "trial", "trials"))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		c.Close()
		return err
	}
	log.Debugf("cross-node group of %d roots ready at %s", len(c.roots), c.self)
	return nil
}

func (c *Comm) Close() error {
	c.server.Close()
	return c.client.Close()
}

func (c *Comm) Rank() int { return c.rank }

func (c *Comm) Size() int { return len(c.roots) }

func (c *Comm) AllReduce(w kb.Workspace, perRankCount int) error {
	n := c.Size()
	if w.SendBuf.Count != perRankCount*n {
		return errors.Wrapf(kb.ErrCountMismatch, "%d elements is not %d chunks of %d", w.SendBuf.Count, n, perRankCount)
	}
	if w.RecvBuf.Count != w.SendBuf.Count || w.RecvBuf.Type != w.SendBuf.Type {
		return errors.Wrapf(kb.ErrCountMismatch, "receive buffer %d %s, send buffer %d %s", w.RecvBuf.Count, w.RecvBuf.Type, w.SendBuf.Count, w.SendBuf.Type)
	}
	if n == 1 || w.IsEmpty() {
		w.Forward()
		return nil
	}
	seq := c.seq
	c.seq++
	chunks := w.Chunks(perRankCount)
	acc, err := c.reduceScatter(chunks, seq)
	if err != nil {
		return err
	}
	chunks[c.rank].RecvBuf.CopyFrom(acc)
	return c.allGather(chunks, seq)
}

// reduceScatter sends chunk j to root j and returns the combined chunk of this root.
func (c *Comm) reduceScatter(chunks []kb.Workspace, seq uint64) (*kb.Vector, error) {
	mine := chunks[c.rank]
	acc := kb.NewVector(mine.SendBuf.Count, mine.SendBuf.Type)
	acc.CopyFrom(mine.SendBuf)
	var eg errgroup.Group
	for j, p := range c.roots {
		if j == c.rank {
			continue
		}
		eg.Go(func() error {
			return c.client.Send(p.WithName(name("rs", seq, j)), chunks[j].SendBuf.Data, connection.ConnCollective, connection.NoFlag)
		})
	}
	eg.Go(func() error {
		for i, p := range c.roots {
			if i == c.rank {
				continue
			}
			m := c.endpoint.Recv(p.WithName(name("rs", seq, c.rank)))
			if int(m.Length) != len(acc.Data) {
				return errors.Wrapf(kb.ErrCountMismatch, "%s sent %d bytes, expected %d", p, m.Length, len(acc.Data))
			}
			kb.Transform(acc, &kb.Vector{Data: m.Data, Count: acc.Count, Type: acc.Type}, mine.OP)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, errors.WithMessagef(err, "reduce-scatter #%d", seq)
	}
	return acc, nil
}

// allGather receives chunk j of the receive buffers from root j, in place.
func (c *Comm) allGather(chunks []kb.Workspace, seq uint64) error {
	mine := chunks[c.rank].RecvBuf
	var eg errgroup.Group
	for j, p := range c.roots {
		if j == c.rank {
			continue
		}
		eg.Go(func() error {
			return c.client.Send(p.WithName(name("ag", seq, c.rank)), mine.Data, connection.ConnCollective, connection.WaitRecvBuf)
		})
		eg.Go(func() error {
			dst := chunks[j].RecvBuf
			m := connection.Message{Length: uint32(len(dst.Data)), Data: dst.Data}
			return c.endpoint.RecvInto(p.WithName(name("ag", seq, j)), m)
		})
	}
	if err := eg.Wait(); err != nil {
		return errors.WithMessagef(err, "allgather #%d", seq)
	}
	return nil
}

func name(phase string, seq uint64, chunk int) string {
	return fmt.Sprintf("%s::%d::%d", phase, seq, chunk)
}
