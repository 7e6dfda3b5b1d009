package base

import (
	"fmt"
	"unsafe"

	"github.com/lsds/hcomm/srcs/go/utils/assert"
	"github.com/x448/float16"
)

// Vector is a typed view over a byte slice.
type Vector struct {
	Data  []byte
	Count int
	Type  DataType
}

func NewVector(count int, dtype DataType) *Vector {
	return &Vector{
		Data:  make([]byte, count*dtype.Size()),
		Count: count,
		Type:  dtype,
	}
}

// Slice returns a new Vector that points to a subset of the original Vector.
// 0 <= begin <= end <= count
func (b *Vector) Slice(begin, end int) *Vector {
	return &Vector{
		Data:  b.Data[begin*b.Type.Size() : end*b.Type.Size()],
		Count: end - begin,
		Type:  b.Type,
	}
}

func (b *Vector) CopyFrom(c *Vector) {
	assert.OK(b.copyFrom(c))
}

func (b *Vector) copyFrom(c *Vector) error {
	if b.Count != c.Count {
		return fmt.Errorf("Vector::Copy error: inconsistent count: %d vs %d", b.Count, c.Count)
	}
	if b.Type != c.Type {
		return fmt.Errorf("Vector::Copy error: inconsistent type: %s vs %s", b.Type, c.Type)
	}
	copy(b.Data, c.Data)
	return nil
}

// Same reports whether both vectors start at the same memory location.
func (b *Vector) Same(c *Vector) bool {
	if len(b.Data) == 0 || len(c.Data) == 0 {
		return len(b.Data) == len(c.Data)
	}
	return &b.Data[0] == &c.Data[0]
}

// Zero sets every element to zero.
func (b *Vector) Zero() {
	clear(b.Data)
}

func (b *Vector) ptr() unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(b.Data))
}

func view[T any](b *Vector, t DataType) []T {
	assert.True(b.Type == t)
	if b.Count == 0 {
		return nil
	}
	return unsafe.Slice((*T)(b.ptr()), b.Count)
}

func (b *Vector) AsU8() []uint8 { return view[uint8](b, U8) }

func (b *Vector) AsI32() []int32 { return view[int32](b, I32) }

func (b *Vector) AsI64() []int64 { return view[int64](b, I64) }

func (b *Vector) AsF16() []float16.Float16 { return view[float16.Float16](b, F16) }

func (b *Vector) AsF32() []float32 { return view[float32](b, F32) }

func (b *Vector) AsF64() []float64 { return view[float64](b, F64) }
