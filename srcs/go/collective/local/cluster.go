package local

import (
	"sync"

	"github.com/lsds/hcomm/srcs/go/collective"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/log"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

// DefaultVersion is the library version a Cluster reports.
const DefaultVersion = 2708

// Cluster bootstraps in-process groups for every rank of a job simulated in
// one process: one Group per node and one for the node roots. Bootstrap
// blocks until every rank has reported its node, then verifies the reports.
type Cluster struct {
	// LibraryVersion is returned by Version; a value <= 0 means unavailable.
	LibraryVersion int

	peers plan.PeerList

	mu      sync.Mutex
	groups  map[string]*Group
	reports map[int]plan.NodeReport
	inits   map[int]int
	ready   chan struct{}
	err     error
}

func NewCluster(peers plan.PeerList) *Cluster {
	return &Cluster{
		LibraryVersion: DefaultVersion,
		peers:          peers,
		groups:         make(map[string]*Group),
		reports:        make(map[int]plan.NodeReport),
		inits:          make(map[int]int),
		ready:          make(chan struct{}),
	}
}

func (c *Cluster) Version() (int, error) {
	if c.LibraryVersion <= 0 {
		return 0, errors.Wrap(kb.ErrInitialization, "node-local collective library not available")
	}
	return c.LibraryVersion, nil
}

// InitCount returns how many times rank has bootstrapped.
func (c *Cluster) InitCount(rank int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inits[rank]
}

func (c *Cluster) Bootstrap(topo *plan.Topology) (*collective.Handles, error) {
	if !topo.Peers().Eq(c.peers) {
		err := errors.Wrapf(kb.ErrTopology, "rank %d sees peers %s, cluster has %s", topo.Rank(), topo.Peers(), c.peers)
		c.fail(err)
		return nil, err
	}
	bs, err := plan.EncodeReports([]plan.NodeReport{topo.Report()})
	if err != nil {
		c.fail(err)
		return nil, err
	}
	c.report(bs)
	<-c.ready
	if c.err != nil {
		return nil, c.err
	}
	intra, err := c.group("intra:"+topo.Key(), topo.IntraSize())
	if err != nil {
		return nil, err
	}
	h := &collective.Handles{Intra: intra.Member(topo.IntraRank())}
	if topo.IsRoot() {
		inter, err := c.group("inter", topo.InterSize())
		if err != nil {
			return nil, err
		}
		h.Inter = inter.Member(topo.InterRank())
	}
	c.mu.Lock()
	c.inits[topo.Rank()]++
	c.mu.Unlock()
	log.Debugf("bootstrapped %s", topo)
	return h, nil
}

// report takes the encoded node reports of one rank. The last report
// completes the bootstrap.
func (c *Cluster) report(bs []byte) {
	rs, err := plan.DecodeReports(bs)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.finishLocked(err)
		return
	}
	for _, r := range rs {
		if r.Rank < 0 || r.Rank >= len(c.peers) {
			c.finishLocked(errors.Wrapf(kb.ErrTopology, "report of rank %d out of %d", r.Rank, len(c.peers)))
			return
		}
		if _, ok := c.reports[r.Rank]; !ok {
			c.reports[r.Rank] = r
		}
	}
	if len(c.reports) < len(c.peers) {
		return
	}
	all := make([]plan.NodeReport, len(c.peers))
	for i := range c.peers {
		all[i] = c.reports[i]
	}
	c.finishLocked(plan.VerifyReports(all))
}

// fail aborts the bootstrap of every rank with err.
func (c *Cluster) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishLocked(err)
}

func (c *Cluster) finishLocked(err error) {
	select {
	case <-c.ready:
		return
	default:
	}
	c.err = err
	close(c.ready)
}

func (c *Cluster) group(name string, size int) (*Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[name]
	if !ok {
		g = NewGroup(name, size)
		c.groups[name] = g
	}
	if g.Size() != size {
		return nil, errors.Wrapf(kb.ErrTopology, "group %s has %d members, expected %d", name, g.Size(), size)
	}
	return g, nil
}
