// Package collective defines the two substrates a hierarchical reduction
// runs on: a node-local collective layer whose operations are ordered on a
// device stream, and a cross-node layer whose operations block the host.
package collective

import (
	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/plan"
)

const (
	// MinVersion is the oldest node-local collective library accepted.
	MinVersion = 2000

	// DeprecatedBelow marks versions that still work but are going away.
	DeprecatedBelow = 2302
)

// NodeLocal is a collective group over the ranks of one node.
// Operations are enqueued on s and complete asynchronously.
type NodeLocal interface {
	Rank() int
	Size() int

	// Reduce combines w.SendBuf of every member into w.RecvBuf of root.
	Reduce(w kb.Workspace, root int, s *device.Stream) error

	// Broadcast copies w.SendBuf of root into w.RecvBuf of every member.
	Broadcast(w kb.Workspace, root int, s *device.Stream) error
}

// CrossNode is a collective group over node roots.
type CrossNode interface {
	Rank() int
	Size() int

	// AllReduce leaves in w.RecvBuf of every member the combination of all
	// w.SendBuf, exchanging chunks of perRankCount elements. It requires
	// w.SendBuf.Count == perRankCount*Size() and blocks until done.
	AllReduce(w kb.Workspace, perRankCount int) error
}

// Handles are the groups of one rank. Inter is nil on non-root ranks.
type Handles struct {
	Intra NodeLocal
	Inter CrossNode
}

// Bootstrapper creates the collective groups of a topology.
type Bootstrapper interface {
	// Version reports the node-local collective library version, or an error
	// when it is unavailable.
	Version() (int, error)

	Bootstrap(topo *plan.Topology) (*Handles, error)
}
