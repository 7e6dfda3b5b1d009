package params

import (
	"testing"

	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModel() (*Collection, *Param, *Param, *Param) {
	w := NewParam("w", 4, kb.F32)
	b := NewParam("b", 2, kb.F32)
	u := NewParam("uninitialised", 0, kb.F32)
	w.AttachZeroGrad()
	return NewCollection(w, b, u), w, b, u
}

func Test_Extract_skip(t *testing.T) {
	m, w, b, _ := newModel()
	gs := Extract(m, false)
	require.Len(t, gs, 1)
	assert.Equal(t, "w", gs[0].Param.Name())
	assert.Nil(t, b.Grad(), "skipped parameter must be untouched")
	assert.Equal(t, 4, CountElements(gs, false))
	assert.True(t, gs[0].Grad.Same(w.Grad()))
}

func Test_Extract_zero_fill(t *testing.T) {
	m, _, b, u := newModel()
	gs := Extract(m, true)
	require.Len(t, gs, 2)
	assert.Equal(t, []string{"w", "b"}, []string{gs[0].Param.Name(), gs[1].Param.Name()})
	require.NotNil(t, b.Grad())
	assert.Equal(t, []float32{0, 0}, b.Grad().AsF32())
	assert.Nil(t, u.Grad())
	assert.Equal(t, 6, CountElements(gs, true))
	assert.Equal(t, 24, gs.Bytes(kb.F32))
	assert.Equal(t, 12, gs.Bytes(kb.F16))
}

func Test_Extract_layout_stable(t *testing.T) {
	m, _, b, _ := newModel()
	first := Extract(m, true)
	b.ClearGrad()
	second := Extract(m, true)
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Param.Name(), second[i].Param.Name())
		assert.Equal(t, first[i].Grad.Count, second[i].Grad.Count)
	}
}

func Test_Data(t *testing.T) {
	m, w, _, _ := newModel()
	gs := Data(m)
	require.Len(t, gs, 2)
	assert.True(t, gs[0].Grad.Same(w.Data()))
}
