package local

import (
	"sync"
	"testing"

	"github.com/lsds/hcomm/srcs/go/collective"
	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ collective.NodeLocal    = (*Member)(nil)
	_ collective.CrossNode    = (*Member)(nil)
	_ collective.Bootstrapper = (*Cluster)(nil)
)

func f32(xs ...float32) *kb.Vector {
	v := kb.NewVector(len(xs), kb.F32)
	copy(v.AsF32(), xs)
	return v
}

// runAll runs f for every rank concurrently and collects the errors.
func runAll(n int, f func(rank int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f(i)
		}(i)
	}
	wg.Wait()
	return errs
}

func Test_Group_reduce_broadcast(t *testing.T) {
	const n = 3
	g := NewGroup("node", n)
	recv := make([]*kb.Vector, n)
	errs := runAll(n, func(rank int) error {
		m := g.Member(rank)
		s := device.NewStream("test")
		defer s.Close()
		x := float32(rank + 1)
		send := f32(x, 10*x)
		recv[rank] = kb.NewVector(2, kb.F32)
		w := kb.Workspace{SendBuf: send, RecvBuf: recv[rank], OP: kb.SUM}
		if err := m.Reduce(w, 1, s); err != nil {
			return err
		}
		bw := kb.Workspace{SendBuf: recv[rank], RecvBuf: recv[rank], OP: kb.SUM}
		if err := m.Broadcast(bw, 1, s); err != nil {
			return err
		}
		return s.Synchronize()
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
	for rank := 0; rank < n; rank++ {
		assert.Equal(t, []float32{6, 60}, recv[rank].AsF32(), "rank %d", rank)
	}
}

func Test_Group_allreduce(t *testing.T) {
	const n = 4
	g := NewGroup("inter", n)
	bufs := make([]*kb.Vector, n)
	errs := runAll(n, func(rank int) error {
		bufs[rank] = kb.NewVector(8, kb.F32)
		for i, x := range bufs[rank].AsF32() {
			bufs[rank].AsF32()[i] = x + float32(rank*i)
		}
		w := kb.Workspace{SendBuf: bufs[rank], RecvBuf: bufs[rank], OP: kb.SUM}
		return g.Member(rank).AllReduce(w, 2)
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
	want := []float32{0, 6, 12, 18, 24, 30, 36, 42}
	for rank := 0; rank < n; rank++ {
		assert.Equal(t, want, bufs[rank].AsF32())
	}
}

func Test_Group_sequence(t *testing.T) {
	const n = 2
	g := NewGroup("seq", n)
	out := make([][]float32, n)
	errs := runAll(n, func(rank int) error {
		m := g.Member(rank)
		for i := 0; i < 5; i++ {
			v := f32(float32(i), float32(rank+i))
			if err := m.AllReduce(kb.Workspace{SendBuf: v, RecvBuf: v, OP: kb.SUM}, 1); err != nil {
				return err
			}
			out[rank] = append(out[rank], v.AsF32()...)
		}
		return nil
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, out[0])
	assert.Equal(t, out[0], out[1])
}

func Test_Group_count_mismatch(t *testing.T) {
	const n = 2
	g := NewGroup("bad", n)
	errs := runAll(n, func(rank int) error {
		v := kb.NewVector(2+rank*2, kb.F32)
		return g.Member(rank).AllReduce(kb.Workspace{SendBuf: v, RecvBuf: v, OP: kb.SUM}, 1+rank)
	})
	for _, err := range errs {
		assert.ErrorIs(t, err, kb.ErrCountMismatch)
	}
}

func Test_Group_single(t *testing.T) {
	g := NewGroup("solo", 1)
	s := device.NewStream("solo")
	defer s.Close()
	send, recv := f32(1, 2), kb.NewVector(2, kb.F32)
	m := g.Member(0)
	require.NoError(t, m.Reduce(kb.Workspace{SendBuf: send, RecvBuf: recv, OP: kb.SUM}, 0, s))
	require.NoError(t, s.Synchronize())
	assert.Equal(t, []float32{1, 2}, recv.AsF32())
}

func fakePeers(t *testing.T, hosts string) plan.PeerList {
	hl, err := plan.ParseHostList(hosts)
	require.NoError(t, err)
	peers, err := hl.GenPeerList(hl.Cap(), plan.DefaultPortRange)
	require.NoError(t, err)
	return peers
}

func Test_Cluster_Bootstrap(t *testing.T) {
	peers := fakePeers(t, "10.0.0.1:2,10.0.0.2:1")
	c := NewCluster(peers)
	handles := make([]*collective.Handles, len(peers))
	errs := runAll(len(peers), func(rank int) error {
		topo, err := plan.NewTopology(peers, peers[rank], plan.ByHost)
		if err != nil {
			return err
		}
		handles[rank], err = c.Bootstrap(topo)
		return err
	})
	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 2, handles[0].Intra.Size())
	assert.Equal(t, 1, handles[1].Intra.Rank())
	assert.Equal(t, 1, handles[2].Intra.Size())
	assert.NotNil(t, handles[0].Inter)
	assert.Nil(t, handles[1].Inter)
	assert.Equal(t, 1, handles[2].Inter.Rank())
	assert.Equal(t, 2, handles[2].Inter.Size())
	for rank := range peers {
		assert.Equal(t, 1, c.InitCount(rank))
	}
}

func Test_Cluster_inconsistent(t *testing.T) {
	peers := fakePeers(t, "10.0.0.1:1,10.0.0.2:1")
	c := NewCluster(peers)
	errs := runAll(len(peers), func(rank int) error {
		key := plan.ByHost
		if rank == 1 {
			key = func(plan.PeerID) string { return "10.0.0.1" }
		}
		topo, err := plan.NewTopology(peers, peers[rank], key)
		if err != nil {
			return err
		}
		_, err = c.Bootstrap(topo)
		return err
	})
	for _, err := range errs {
		assert.ErrorIs(t, err, kb.ErrTopology)
	}
	assert.Equal(t, 0, c.InitCount(0))
}

func Test_Cluster_Version(t *testing.T) {
	c := NewCluster(nil)
	v, err := c.Version()
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, v)

	c.LibraryVersion = 0
	_, err = c.Version()
	assert.ErrorIs(t, err, kb.ErrInitialization)
}

func Test_Cluster_peer_mismatch(t *testing.T) {
	peers := fakePeers(t, "10.0.0.1:1,10.0.0.2:1,10.0.0.3:1")
	c := NewCluster(peers)
	errs := runAll(len(peers), func(rank int) error {
		view := peers
		if rank == 2 {
			view = plan.PeerList{peers[2], peers[1], peers[0]}
		}
		topo, err := plan.NewTopology(view, peers[rank], plan.ByHost)
		if err != nil {
			return err
		}
		_, err = c.Bootstrap(topo)
		return err
	})
	for rank, err := range errs {
		assert.ErrorIs(t, err, kb.ErrTopology, "rank %d", rank)
	}
}

func Test_Cluster_report_encoding(t *testing.T) {
	peers := fakePeers(t, "10.0.0.1:1")
	c := NewCluster(peers)
	c.report([]byte{0xff})
	<-c.ready
	assert.Error(t, c.err)

	topo, err := plan.NewTopology(peers, peers[0], plan.ByHost)
	require.NoError(t, err)
	_, err = c.Bootstrap(topo)
	assert.Error(t, err)
}
