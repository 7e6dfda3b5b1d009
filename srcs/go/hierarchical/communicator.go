// Package hierarchical reduces gradients in two tiers: ranks of a node sum
// into the node root, roots allreduce across nodes, and each root
// broadcasts the job-wide sum back to its node.
package hierarchical

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lsds/hcomm/srcs/go/collective"
	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/log"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

// ErrClosed is returned by reductions on a closed Communicator.
var ErrClosed = errors.New("communicator is closed")

type options struct {
	key    plan.GroupKeyFunc
	alloc  device.Allocator
	stream *device.Stream
}

type Option func(*options)

// WithGroupKey sets how peers are grouped into nodes. Defaults to plan.ByHost.
func WithGroupKey(key plan.GroupKeyFunc) Option {
	return func(o *options) { o.key = key }
}

// WithAllocator sets where the reduction buffers live.
func WithAllocator(a device.Allocator) Option {
	return func(o *options) { o.alloc = a }
}

// WithStream orders the reduction on s instead of a stream owned by the Communicator.
func WithStream(s *device.Stream) Option {
	return func(o *options) { o.stream = s }
}

// handles are the collective groups of this rank together with its role.
// They are published at once, never partially.
type handles struct {
	collective.Handles
	role participant
}

// Communicator is one rank of a hierarchical reduction. Its methods must be
// called from a single goroutine.
type Communicator struct {
	topo      *plan.Topology
	boot      collective.Bootstrapper
	stream    *device.Stream
	ownStream bool

	mu     sync.Mutex
	h      atomic.Pointer[handles]
	closed atomic.Bool

	bufA *device.Buffer
	bufB *device.Buffer
}

// New checks the node-local collective library and derives the topology of
// self. Collective groups are created on first use.
func New(peers plan.PeerList, self plan.PeerID, boot collective.Bootstrapper, opts ...Option) (*Communicator, error) {
	o := options{key: plan.ByHost}
	for _, opt := range opts {
		opt(&o)
	}
	version, err := boot.Version()
	if err != nil {
		return nil, errors.WithMessage(err, "collective library is not available")
	}
	if version < collective.MinVersion {
		return nil, errors.Wrapf(kb.ErrInitialization, "collective library version %d is older than %d", version, collective.MinVersion)
	}
	if version < collective.DeprecatedBelow {
		log.Warnf("collective library version %d is deprecated, use %d or newer", version, collective.DeprecatedBelow)
	}
	topo, err := plan.NewTopology(peers, self, o.key)
	if err != nil {
		return nil, err
	}
	if o.alloc == nil {
		o.alloc = device.DefaultAllocator()
	}
	c := &Communicator{
		topo: topo,
		boot: boot,
		bufA: device.NewBuffer(o.alloc),
		bufB: device.NewBuffer(o.alloc),
	}
	if c.stream = o.stream; c.stream == nil {
		c.stream = device.NewStream(fmt.Sprintf("rank-%d", topo.Rank()))
		c.ownStream = true
	}
	return c, nil
}

// ensureInitialized creates the collective groups once; later calls return
// the same handles.
func (c *Communicator) ensureInitialized() (*handles, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if h := c.h.Load(); h != nil {
		return h, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if h := c.h.Load(); h != nil {
		return h, nil
	}
	hs, err := c.boot.Bootstrap(c.topo)
	if err != nil {
		return nil, err
	}
	role, err := resolveRole(c.topo, hs)
	if err != nil {
		return nil, err
	}
	h := &handles{Handles: *hs, role: role}
	c.h.Store(h)
	log.Debugf("%s bootstrapped as %s", c.topo, role)
	return h, nil
}

func (c *Communicator) Rank() int { return c.topo.Rank() }

func (c *Communicator) Size() int { return c.topo.Size() }

func (c *Communicator) IntraRank() int { return c.topo.IntraRank() }

func (c *Communicator) IntraSize() int { return c.topo.IntraSize() }

func (c *Communicator) InterRank() int { return c.topo.InterRank() }

func (c *Communicator) InterSize() int { return c.topo.InterSize() }

func (c *Communicator) Topology() *plan.Topology { return c.topo }

// BufferCapacity returns the capacity in bytes of each reduction buffer.
func (c *Communicator) BufferCapacity() int { return c.bufA.Capacity() }

// Close waits for queued work and releases the buffers. Collective groups
// belong to the bootstrapper and stay open. Reductions after Close fail
// with ErrClosed.
func (c *Communicator) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	err := c.stream.Synchronize()
	if c.ownStream {
		c.stream.Close()
	}
	c.bufA.Release()
	c.bufB.Release()
	return err
}
