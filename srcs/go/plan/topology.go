package plan

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// GroupKeyFunc maps a peer to the node it runs on.
// Peers sharing a key form one intra-node group.
type GroupKeyFunc func(p PeerID) string

// ByHost groups peers by IPv4 address.
func ByHost(p PeerID) string {
	return FormatIPv4(p.IPv4)
}

// NodeReport is what one rank believes about its own node.
type NodeReport struct {
	Key       string `cbor:"1,keyasint"`
	Rank      int    `cbor:"2,keyasint"`
	IntraSize int    `cbor:"3,keyasint"`
}

// Topology splits a flat peer list into intra-node groups and the
// inter-node group of node roots. It is immutable once built.
type Topology struct {
	peers PeerList
	self  PeerID
	rank  int

	keys   []string       // node keys in order of first appearance
	ranks  [][]int        // job ranks of each node, in order
	nodeOf map[string]int // key -> node index

	key       string
	intraRank int
	interRank int
}

func NewTopology(peers PeerList, self PeerID, key GroupKeyFunc) (*Topology, error) {
	if key == nil {
		key = ByHost
	}
	if len(peers) == 0 {
		return nil, errors.Wrap(kb.ErrTopology, "empty peer list")
	}
	seen := make(map[PeerID]struct{})
	for _, p := range peers {
		if _, ok := seen[p]; ok {
			return nil, errors.Wrapf(kb.ErrTopology, "duplicated peer %s", p)
		}
		seen[p] = struct{}{}
	}
	rank, ok := peers.Rank(self)
	if !ok {
		return nil, errors.Wrapf(kb.ErrTopology, "%s not in %s", self, peers)
	}
	t := &Topology{
		peers:  peers,
		self:   self,
		rank:   rank,
		nodeOf: make(map[string]int),
	}
	for r, p := range peers {
		k := key(p)
		i, ok := t.nodeOf[k]
		if !ok {
			i = len(t.keys)
			t.nodeOf[k] = i
			t.keys = append(t.keys, k)
			t.ranks = append(t.ranks, nil)
		}
		if r == rank {
			t.key = k
			t.interRank = i
			t.intraRank = len(t.ranks[i])
		}
		t.ranks[i] = append(t.ranks[i], r)
	}
	return t, nil
}

func (t *Topology) Peers() PeerList { return t.peers }

func (t *Topology) Self() PeerID { return t.self }

func (t *Topology) Rank() int { return t.rank }

func (t *Topology) Size() int { return len(t.peers) }

// Key is the group key of this rank's node.
func (t *Topology) Key() string { return t.key }

func (t *Topology) IntraRank() int { return t.intraRank }

func (t *Topology) IntraSize() int { return len(t.ranks[t.interRank]) }

// InterRank is the index of this rank's node; it is the rank within the
// inter-node group for node roots.
func (t *Topology) InterRank() int { return t.interRank }

func (t *Topology) InterSize() int { return len(t.ranks) }

func (t *Topology) IsRoot() bool { return t.intraRank == 0 }

// IntraPeers returns the members of this rank's node.
func (t *Topology) IntraPeers() PeerList { return t.peers.Select(t.ranks[t.interRank]) }

// InterPeers returns the root of every node, in node order.
func (t *Topology) InterPeers() PeerList {
	roots := make([]int, len(t.ranks))
	for i, rs := range t.ranks {
		roots[i] = rs[0]
	}
	return t.peers.Select(roots)
}

func (t *Topology) Report() NodeReport {
	return NodeReport{Key: t.key, Rank: t.rank, IntraSize: t.IntraSize()}
}

func (t *Topology) String() string {
	return fmt.Sprintf("rank=%d/%d node=%s intra=%d/%d inter=%d/%d", t.rank, t.Size(), t.key, t.intraRank, t.IntraSize(), t.interRank, t.InterSize())
}

type topologyRecord struct {
	Peers PeerList `cbor:"1,keyasint"`
	Keys  []string `cbor:"2,keyasint"`
	Nodes [][]int  `cbor:"3,keyasint"`
}

var canonical = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Digest identifies the partition, independently of which rank computed it.
func (t *Topology) Digest() []byte {
	bs, err := canonical.Marshal(topologyRecord{Peers: t.peers, Keys: t.keys, Nodes: t.ranks})
	if err != nil {
		panic(err)
	}
	d := blake2b.Sum256(bs)
	return d[:]
}

// VerifyReports checks that the reports of all ranks describe one
// consistent partition: ranks sharing a key agree on the node size, and
// exactly that many ranks report the key.
func VerifyReports(reports []NodeReport) error {
	sizes := make(map[string]int)
	counts := make(map[string]int)
	ranks := make(map[int]struct{})
	var keys []string
	for _, r := range reports {
		if _, ok := ranks[r.Rank]; ok {
			return errors.Wrapf(kb.ErrTopology, "rank %d reported twice", r.Rank)
		}
		ranks[r.Rank] = struct{}{}
		size, ok := sizes[r.Key]
		if !ok {
			sizes[r.Key] = r.IntraSize
			keys = append(keys, r.Key)
		} else if size != r.IntraSize {
			return errors.Wrapf(kb.ErrTopology, "node %q: rank %d reports size %d, others %d", r.Key, r.Rank, r.IntraSize, size)
		}
		counts[r.Key]++
	}
	for _, k := range keys {
		if counts[k] != sizes[k] {
			return errors.Wrapf(kb.ErrTopology, "node %q: %d ranks report a node of size %d", k, counts[k], sizes[k])
		}
	}
	return nil
}

func EncodeReports(reports []NodeReport) ([]byte, error) {
	return canonical.Marshal(reports)
}

func DecodeReports(bs []byte) ([]NodeReport, error) {
	var reports []NodeReport
	if err := cbor.Unmarshal(bs, &reports); err != nil {
		return nil, errors.Wrap(err, "decode node reports")
	}
	return reports, nil
}
