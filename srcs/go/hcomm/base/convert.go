package base

import (
	"math"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Convert copies src into dst element by element, converting between numeric types.
func Convert(dst, src *Vector) error {
	if dst.Count != src.Count {
		return errors.Wrapf(ErrCountMismatch, "convert %s[%d] into %s[%d]", src.Type, src.Count, dst.Type, dst.Count)
	}
	if dst.Count == 0 {
		return nil
	}
	if dst.Type == src.Type {
		copy(dst.Data, src.Data)
		return nil
	}
	switch {
	case src.Type == F16 && dst.Type == F32:
		d := dst.AsF32()
		for i, x := range src.AsF16() {
			d[i] = x.Float32()
		}
	case src.Type == F32 && dst.Type == F16:
		d := dst.AsF16()
		for i, x := range src.AsF32() {
			d[i] = float16.Fromfloat32(x)
		}
	case src.Type == F64 && dst.Type == F32:
		d := dst.AsF32()
		for i, x := range src.AsF64() {
			d[i] = float32(x)
		}
	case src.Type == F32 && dst.Type == F64:
		d := dst.AsF64()
		for i, x := range src.AsF32() {
			d[i] = float64(x)
		}
	default:
		for i := 0; i < dst.Count; i++ {
			dst.set(i, src.at(i))
		}
	}
	return nil
}

func (b *Vector) at(i int) float64 {
	switch b.Type {
	case U8:
		return float64(b.AsU8()[i])
	case I32:
		return float64(b.AsI32()[i])
	case I64:
		return float64(b.AsI64()[i])
	case F16:
		return float64(b.AsF16()[i].Float32())
	case F32:
		return float64(b.AsF32()[i])
	default:
		return b.AsF64()[i]
	}
}

func (b *Vector) set(i int, x float64) {
	switch b.Type {
	case U8:
		b.AsU8()[i] = uint8(x)
	case I32:
		b.AsI32()[i] = int32(x)
	case I64:
		b.AsI64()[i] = int64(x)
	case F16:
		b.AsF16()[i] = float16.Fromfloat32(float32(x))
	case F32:
		b.AsF32()[i] = float32(x)
	default:
		b.AsF64()[i] = x
	}
}

// AllFinite reports whether v holds no NaN or Inf. Integer vectors are always finite.
func AllFinite(v *Vector) bool {
	switch v.Type {
	case F16:
		for _, x := range v.AsF16() {
			if x.IsNaN() || x.IsInf(0) {
				return false
			}
		}
	case F32:
		for _, x := range v.AsF32() {
			if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	case F64:
		for _, x := range v.AsF64() {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
	}
	return true
}
