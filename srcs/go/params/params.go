// Package params adapts a model's parameter collection into the ordered
// gradient set consumed by the pack/unpack codec.
package params

import (
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
)

// Parameter is a trainable tensor owned by a model.
type Parameter interface {
	Name() string

	// Size is the element count of the parameter data, 0 if not yet initialised.
	Size() int

	DataType() kb.DataType

	Data() *kb.Vector

	// Grad returns the gradient, or nil if none was computed this step.
	Grad() *kb.Vector

	// AttachZeroGrad allocates a zero gradient shaped like the data and attaches it in place.
	AttachZeroGrad() *kb.Vector
}

// Model exposes its parameters in a stable order.
type Model interface {
	ForEachParameter(f func(p Parameter))
}

// Slot is one gradient borrowed from the model for the duration of a call.
type Slot struct {
	Param Parameter
	Grad  *kb.Vector
}

// GradientSet is the ordered list of gradients taking part in one reduction.
type GradientSet []Slot

// Extract walks the model and collects its gradients. With zeroFill, every
// initialised parameter contributes a slot and missing gradients are replaced
// by attached zeros; otherwise parameters without gradients are skipped.
func Extract(m Model, zeroFill bool) GradientSet {
	var gs GradientSet
	m.ForEachParameter(func(p Parameter) {
		g := p.Grad()
		if g == nil {
			if !zeroFill || p.Size() == 0 {
				return
			}
			g = p.AttachZeroGrad()
		}
		gs = append(gs, Slot{Param: p, Grad: g})
	})
	return gs
}

// CountElements returns the element count across the set. Zero-filled sets
// are sized by parameter data, others by the gradients themselves.
func CountElements(gs GradientSet, zeroFill bool) int {
	var n int
	for _, s := range gs {
		if zeroFill {
			n += s.Param.Size()
		} else {
			n += s.Grad.Count
		}
	}
	return n
}

// Bytes is the packed size of the set in dtype.
func (gs GradientSet) Bytes(dtype kb.DataType) int {
	var n int
	for _, s := range gs {
		n += s.Grad.Count
	}
	return n * dtype.Size()
}

// Data returns the set of parameter data vectors, used to broadcast parameters.
func Data(m Model) GradientSet {
	var gs GradientSet
	m.ForEachParameter(func(p Parameter) {
		if p.Size() > 0 {
			gs = append(gs, Slot{Param: p, Grad: p.Data()})
		}
	})
	return gs
}
