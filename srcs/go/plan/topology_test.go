package plan

import (
	"fmt"
	"testing"

	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePeers(t *testing.T, hosts string, np int) PeerList {
	hl, err := ParseHostList(hosts)
	require.NoError(t, err)
	pl, err := hl.GenPeerList(np, DefaultPortRange)
	require.NoError(t, err)
	return pl
}

func Test_NewTopology(t *testing.T) {
	peers := fakePeers(t, "192.168.1.11:2,192.168.1.12:2", 4)
	type result struct {
		intraRank, intraSize, interRank, interSize int
		root                                       bool
	}
	want := []result{
		{0, 2, 0, 2, true},
		{1, 2, 0, 2, false},
		{0, 2, 1, 2, true},
		{1, 2, 1, 2, false},
	}
	var digest []byte
	for r, self := range peers {
		topo, err := NewTopology(peers, self, ByHost)
		require.NoError(t, err)
		got := result{topo.IntraRank(), topo.IntraSize(), topo.InterRank(), topo.InterSize(), topo.IsRoot()}
		assert.Equal(t, want[r], got, "rank %d", r)
		assert.Equal(t, r, topo.Rank())
		assert.Equal(t, PeerList{peers[0], peers[2]}, topo.InterPeers())
		if digest == nil {
			digest = topo.Digest()
		}
		assert.Equal(t, digest, topo.Digest())
	}
}

func Test_NewTopology_unequal_nodes(t *testing.T) {
	peers := fakePeers(t, "10.0.0.1:3,10.0.0.2:1", 4)
	topo, err := NewTopology(peers, peers[3], nil)
	require.NoError(t, err)
	assert.Equal(t, 1, topo.IntraSize())
	assert.True(t, topo.IsRoot())
	assert.Equal(t, 1, topo.InterRank())
	assert.Equal(t, PeerList{peers[3]}, topo.IntraPeers())
	assert.Equal(t, PeerList{peers[0], peers[3]}, topo.InterPeers())
}

func Test_NewTopology_interleaved(t *testing.T) {
	peers, err := ParsePeerList("10.0.0.1:1,10.0.0.2:1,10.0.0.1:2,10.0.0.2:2")
	require.NoError(t, err)
	topo, err := NewTopology(peers, peers[2], ByHost)
	require.NoError(t, err)
	assert.Equal(t, 1, topo.IntraRank())
	assert.Equal(t, 0, topo.InterRank())
	assert.Equal(t, PeerList{peers[0], peers[2]}, topo.IntraPeers())
	assert.Equal(t, PeerList{peers[0], peers[1]}, topo.InterPeers())
}

func Test_NewTopology_errors(t *testing.T) {
	peers := fakePeers(t, "10.0.0.1:2", 2)
	outsider := PeerID{IPv4: MustParseIPv4("10.0.0.9"), Port: 1}
	_, err := NewTopology(peers, outsider, ByHost)
	assert.ErrorIs(t, err, kb.ErrTopology)

	_, err = NewTopology(PeerList{peers[0], peers[0]}, peers[0], ByHost)
	assert.ErrorIs(t, err, kb.ErrTopology)

	_, err = NewTopology(nil, peers[0], ByHost)
	assert.ErrorIs(t, err, kb.ErrTopology)
}

func Test_VerifyReports(t *testing.T) {
	peers := fakePeers(t, "10.0.0.1:2,10.0.0.2:2", 4)
	var reports []NodeReport
	for _, p := range peers {
		topo, err := NewTopology(peers, p, ByHost)
		require.NoError(t, err)
		reports = append(reports, topo.Report())
	}
	assert.NoError(t, VerifyReports(reports))

	// A key function that does not agree across ranks.
	var skewed []NodeReport
	for r, p := range peers {
		key := ByHost
		if r == 3 {
			key = func(PeerID) string { return "10.0.0.1" }
		}
		topo, err := NewTopology(peers, p, key)
		require.NoError(t, err)
		skewed = append(skewed, topo.Report())
	}
	assert.ErrorIs(t, VerifyReports(skewed), kb.ErrTopology)

	missing := reports[:3]
	assert.ErrorIs(t, VerifyReports(missing), kb.ErrTopology)
}

func Test_Reports_encoding(t *testing.T) {
	reports := []NodeReport{{Key: "a", Rank: 0, IntraSize: 2}, {Key: "a", Rank: 1, IntraSize: 2}}
	bs, err := EncodeReports(reports)
	require.NoError(t, err)
	got, err := DecodeReports(bs)
	require.NoError(t, err)
	assert.Equal(t, reports, got)

	_, err = DecodeReports([]byte{0xff})
	assert.Error(t, err)
}

func Test_GenPeerList(t *testing.T) {
	hl, err := ParseHostList("192.168.1.11:4,192.168.1.12:4:10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, 8, hl.Cap())
	assert.Equal(t, "10.0.0.2", hl[1].PublicAddr)

	pl, err := hl.GenPeerList(6, PortRange{Begin: 20000, End: 20003})
	require.NoError(t, err)
	assert.Len(t, pl, 6)
	assert.Equal(t, "192.168.1.12:20001", pl[5].String())
	r, ok := pl.Rank(pl[5])
	assert.True(t, ok)
	assert.Equal(t, 5, r)
	assert.Equal(t, PeerList{pl[5], pl[0]}, pl.Select([]int{5, 0}))

	_, err = hl.GenPeerList(9, DefaultPortRange)
	assert.Error(t, err)
	_, err = hl.GenPeerList(2, PortRange{Begin: 1, End: 2})
	assert.Error(t, err)
}

func Test_ParsePeerID(t *testing.T) {
	for _, s := range []string{"127.0.0.1:10000", "10.1.2.3:1"} {
		id, err := ParsePeerID(s)
		require.NoError(t, err)
		assert.Equal(t, s, id.String())
	}
	for _, s := range []string{"127.0.0.1", "::1:80", "127.0.0.1:70000", "host:1"} {
		_, err := ParsePeerID(s)
		assert.Error(t, err, fmt.Sprintf("%q", s))
	}
}
