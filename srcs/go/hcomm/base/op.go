package base

import (
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/lsds/hcomm/srcs/go/utils/assert"
	"github.com/x448/float16"
)

type OP int32

const (
	SUM OP = iota
	MIN
	MAX
	PROD
)

var opNames = map[OP]string{
	SUM:  "sum",
	MIN:  "min",
	MAX:  "max",
	PROD: "prod",
}

func (op OP) String() string {
	return opNames[op]
}

// Transform performs y[i] = y[i] op x[i] for vectors y and x.
func Transform(y, x *Vector, op OP) {
	Transform2(y, x, y, op)
}

// Transform2 performs z[i] = x[i] op y[i]. z may alias x or y.
func Transform2(z, x, y *Vector, op OP) {
	assert.True(z.Count == x.Count && z.Count == y.Count)
	assert.True(z.Type == x.Type && z.Type == y.Type)
	if z.Count == 0 {
		return
	}
	switch z.Type {
	case F32:
		if op == SUM {
			sumF32(z.AsF32(), x.AsF32(), y.AsF32())
			return
		}
		apply(z.AsF32(), x.AsF32(), y.AsF32(), op)
	case F64:
		if op == SUM {
			sumF64(z.AsF64(), x.AsF64(), y.AsF64())
			return
		}
		apply(z.AsF64(), x.AsF64(), y.AsF64(), op)
	case F16:
		zs, xs, ys := z.AsF16(), x.AsF16(), y.AsF16()
		for i := range zs {
			zs[i] = float16.Fromfloat32(reduce(xs[i].Float32(), ys[i].Float32(), op))
		}
	case I32:
		apply(z.AsI32(), x.AsI32(), y.AsI32(), op)
	case I64:
		apply(z.AsI64(), x.AsI64(), y.AsI64(), op)
	case U8:
		apply(z.AsU8(), x.AsU8(), y.AsU8(), op)
	default:
		assert.True(false)
	}
}

func sumF32(z, x, y []float32) {
	n := len(z)
	switch {
	case &z[0] == &y[0]:
		blas32.Axpy(1, blas32.Vector{N: n, Data: x, Inc: 1}, blas32.Vector{N: n, Data: z, Inc: 1})
	case &z[0] == &x[0]:
		blas32.Axpy(1, blas32.Vector{N: n, Data: y, Inc: 1}, blas32.Vector{N: n, Data: z, Inc: 1})
	default:
		copy(z, x)
		blas32.Axpy(1, blas32.Vector{N: n, Data: y, Inc: 1}, blas32.Vector{N: n, Data: z, Inc: 1})
	}
}

func sumF64(z, x, y []float64) {
	n := len(z)
	switch {
	case &z[0] == &y[0]:
		blas64.Axpy(1, blas64.Vector{N: n, Data: x, Inc: 1}, blas64.Vector{N: n, Data: z, Inc: 1})
	case &z[0] == &x[0]:
		blas64.Axpy(1, blas64.Vector{N: n, Data: y, Inc: 1}, blas64.Vector{N: n, Data: z, Inc: 1})
	default:
		copy(z, x)
		blas64.Axpy(1, blas64.Vector{N: n, Data: y, Inc: 1}, blas64.Vector{N: n, Data: z, Inc: 1})
	}
}

type number interface {
	~uint8 | ~int32 | ~int64 | ~float32 | ~float64
}

func reduce[T number](a, b T, op OP) T {
	switch op {
	case SUM:
		return a + b
	case MIN:
		return min(a, b)
	case MAX:
		return max(a, b)
	case PROD:
		return a * b
	}
	panic("invalid op " + op.String())
}

func apply[T number](z, x, y []T, op OP) {
	for i := range z {
		z[i] = reduce(x[i], y[i], op)
	}
}
