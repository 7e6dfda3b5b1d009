package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Vector_Slice(t *testing.T) {
	v := NewVector(6, F32)
	xs := v.AsF32()
	for i := range xs {
		xs[i] = float32(i)
	}
	s := v.Slice(2, 5)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, []float32{2, 3, 4}, s.AsF32())
	s.AsF32()[0] = 10
	assert.Equal(t, float32(10), xs[2])
}

func Test_Vector_empty(t *testing.T) {
	v := NewVector(0, F64)
	assert.Nil(t, v.AsF64())
	assert.True(t, v.Same(NewVector(0, F64)))
}

func Test_Vector_wrong_view(t *testing.T) {
	v := NewVector(2, F32)
	assert.Panics(t, func() { v.AsF64() })
}

func Test_Vector_CopyFrom(t *testing.T) {
	a := NewVector(3, I32)
	b := NewVector(3, I32)
	copy(b.AsI32(), []int32{1, 2, 3})
	a.CopyFrom(b)
	assert.Equal(t, []int32{1, 2, 3}, a.AsI32())
	require.Error(t, a.copyFrom(NewVector(2, I32)))
	require.Error(t, a.copyFrom(NewVector(3, F32)))
}

func Test_Workspace_Chunks(t *testing.T) {
	send := NewVector(7, F32)
	w := Workspace{SendBuf: send, RecvBuf: send, OP: SUM, Name: "w"}
	ws := w.Chunks(3)
	require.Len(t, ws, 3)
	assert.Equal(t, 3, ws[0].SendBuf.Count)
	assert.Equal(t, 1, ws[2].SendBuf.Count)
	assert.True(t, ws[1].IsInplace())
	assert.Equal(t, "part::w[3:6]", ws[1].Name)
}

func Test_FixedPartition(t *testing.T) {
	ps := FixedPartition(Interval{Begin: 2, End: 10}, 3)
	assert.Equal(t, []Interval{{2, 5}, {5, 8}, {8, 10}}, ps)
	assert.Empty(t, FixedPartition(Interval{}, 3))
}
