package codec

import (
	"testing"

	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func newParam(t *testing.T, name string, dtype kb.DataType, xs ...float32) *params.Param {
	p := params.NewParam(name, len(xs), dtype)
	src := kb.NewVector(len(xs), kb.F32)
	copy(src.AsF32(), xs)
	require.NoError(t, kb.Convert(p.AttachZeroGrad(), src))
	return p
}

func setup(t *testing.T) (*device.Buffer, *device.Stream) {
	buf := device.NewBuffer(device.NewHostAllocator(0))
	s := device.NewStream("codec")
	t.Cleanup(func() {
		s.Close()
		buf.Release()
	})
	return buf, s
}

func Test_Pack_layout(t *testing.T) {
	buf, s := setup(t)
	a := newParam(t, "a", kb.F32, 1, 2, 3)
	b := newParam(t, "b", kb.F64, 4, 5)
	gs := params.Extract(params.NewCollection(a, b), false)
	n := params.CountElements(gs, false)
	require.NoError(t, buf.Assign(n*4))

	require.NoError(t, Pack(gs, buf, kb.F32, false, s))
	require.NoError(t, s.Synchronize())

	v, err := buf.View(n, kb.F32)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5}, v.AsF32())
}

func Test_roundtrip(t *testing.T) {
	buf, s := setup(t)
	a := newParam(t, "a", kb.F32, 0.1, -7.25, 3e-8)
	b := newParam(t, "b", kb.F16, 1.5, -2, 0.25, 1024)
	c := newParam(t, "c", kb.F64, 2.5, 1e10)
	m := params.NewCollection(a, b, c)
	gs := params.Extract(m, false)
	before := [][]byte{
		append([]byte(nil), a.Grad().Data...),
		append([]byte(nil), b.Grad().Data...),
		append([]byte(nil), c.Grad().Data...),
	}
	require.NoError(t, buf.Assign(params.CountElements(gs, false)*4))
	require.NoError(t, Pack(gs, buf, kb.F32, false, s))
	for _, g := range gs {
		g.Grad.Zero()
	}
	require.NoError(t, Unpack(gs, buf, kb.F32, false, s))
	require.NoError(t, s.Synchronize())

	assert.Equal(t, before[0], a.Grad().Data)
	assert.Equal(t, before[1], b.Grad().Data)
	assert.Equal(t, []float64{2.5, 1e10}, c.Grad().AsF64())
	assert.Equal(t, float16.Fromfloat32(1024), b.Grad().AsF16()[3])
}

func Test_Pack_stale_tail(t *testing.T) {
	buf, s := setup(t)
	require.NoError(t, buf.Assign(4*4))
	all, _ := buf.View(4, kb.F32)
	copy(all.AsF32(), []float32{9, 9, 9, 9})

	gs := params.Extract(params.NewCollection(newParam(t, "a", kb.F32, 1, 2)), false)
	require.NoError(t, Pack(gs, buf, kb.F32, false, s))
	require.NoError(t, s.Synchronize())
	assert.Equal(t, []float32{1, 2, 9, 9}, all.AsF32())
}

func Test_Pack_too_small(t *testing.T) {
	buf, s := setup(t)
	require.NoError(t, buf.Assign(4))
	gs := params.Extract(params.NewCollection(newParam(t, "a", kb.F32, 1, 2)), false)
	err := Pack(gs, buf, kb.F32, false, s)
	assert.ErrorIs(t, err, kb.ErrSize)
}

func Test_Pack_zero_fill_shape(t *testing.T) {
	buf, s := setup(t)
	p := params.NewParam("p", 3, kb.F32)
	p.SetGrad(kb.NewVector(2, kb.F32))
	require.NoError(t, buf.Assign(64))
	gs := params.Extract(params.NewCollection(p), true)
	assert.ErrorIs(t, Pack(gs, buf, kb.F32, true, s), kb.ErrSize)
}
