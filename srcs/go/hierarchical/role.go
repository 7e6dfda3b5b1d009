package hierarchical

import (
	"github.com/lsds/hcomm/srcs/go/collective"
	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/pkg/errors"
)

// participant is the part a rank plays in the cross-node tier.
type participant interface {
	// crossNode leaves the job-wide sum of the first n elements of b in b.
	// b holds perNode elements per node.
	crossNode(b *kb.Vector, n, perNode int, s *device.Stream) error

	String() string
}

// rootParticipant allreduces its node's sum with the other roots.
type rootParticipant struct {
	inter collective.CrossNode
}

func (p rootParticipant) crossNode(b *kb.Vector, n, perNode int, s *device.Stream) error {
	// The cross-node allreduce blocks the host, so the node-local reduce
	// queued before it must have completed.
	if err := s.Synchronize(); err != nil {
		return err
	}
	b.Slice(n, b.Count).Zero()
	w := kb.Workspace{SendBuf: b, RecvBuf: b, OP: kb.SUM, Name: "inter"}
	return p.inter.AllReduce(w, perNode)
}

func (p rootParticipant) String() string { return "root" }

// nonRootParticipant takes no part in the cross-node tier.
type nonRootParticipant struct{}

func (nonRootParticipant) crossNode(*kb.Vector, int, int, *device.Stream) error { return nil }

func (nonRootParticipant) String() string { return "non-root" }

func resolveRole(topo *plan.Topology, hs *collective.Handles) (participant, error) {
	if hs.Intra == nil {
		return nil, errors.Wrap(kb.ErrInitialization, "no node-local group")
	}
	if hs.Intra.Rank() != topo.IntraRank() || hs.Intra.Size() != topo.IntraSize() {
		return nil, errors.Wrapf(kb.ErrTopology, "node-local group %d/%d, topology %d/%d", hs.Intra.Rank(), hs.Intra.Size(), topo.IntraRank(), topo.IntraSize())
	}
	if !topo.IsRoot() {
		if hs.Inter != nil {
			return nil, errors.Wrap(kb.ErrTopology, "cross-node group given to a non-root rank")
		}
		return nonRootParticipant{}, nil
	}
	if hs.Inter == nil {
		return nil, errors.Wrap(kb.ErrInitialization, "no cross-node group for a node root")
	}
	if hs.Inter.Size() != topo.InterSize() {
		return nil, errors.Wrapf(kb.ErrTopology, "cross-node group of %d, topology has %d nodes", hs.Inter.Size(), topo.InterSize())
	}
	return rootParticipant{inter: hs.Inter}, nil
}
