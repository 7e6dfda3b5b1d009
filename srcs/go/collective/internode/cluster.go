package internode

import (
	"context"
	"sync"
	"time"

	"github.com/lsds/hcomm/srcs/go/collective"
	"github.com/lsds/hcomm/srcs/go/collective/local"
	"github.com/lsds/hcomm/srcs/go/config"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/lsds/hcomm/srcs/go/utils"
)

// Cluster bootstraps ranks simulated in one process whose node roots talk
// over TCP: the node-local tier comes from an embedded local.Cluster, the
// cross-node tier is a Comm listening at each root's own address.
type Cluster struct {
	*local.Cluster

	mu    sync.Mutex
	comms []*Comm
}

func NewCluster(peers plan.PeerList) *Cluster {
	return &Cluster{Cluster: local.NewCluster(peers)}
}

func (c *Cluster) Bootstrap(topo *plan.Topology) (*collective.Handles, error) {
	h, err := c.Cluster.Bootstrap(topo)
	if err != nil {
		return nil, err
	}
	if !topo.IsRoot() {
		return h, nil
	}
	comm, err := New(topo.Self(), topo.InterPeers(), TokenOf(topo))
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(config.ConnRetryCount+1) * config.ConnRetryPeriod
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := comm.Start(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.comms = append(c.comms, comm)
	c.mu.Unlock()
	h.Inter = comm
	return h, nil
}

// Close stops the cross-node groups of all roots.
func (c *Cluster) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, comm := range c.comms {
		errs = append(errs, comm.Close())
	}
	c.comms = nil
	return utils.MergeErrors(errs, "close cross-node groups")
}
