package params

import (
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
)

// Param is a host resident Parameter.
type Param struct {
	name string
	data *kb.Vector
	grad *kb.Vector
}

func NewParam(name string, count int, dtype kb.DataType) *Param {
	return &Param{
		name: name,
		data: kb.NewVector(count, dtype),
	}
}

func (p *Param) Name() string { return p.name }

func (p *Param) Size() int { return p.data.Count }

func (p *Param) DataType() kb.DataType { return p.data.Type }

func (p *Param) Data() *kb.Vector { return p.data }

func (p *Param) Grad() *kb.Vector { return p.grad }

func (p *Param) AttachZeroGrad() *kb.Vector {
	p.grad = kb.NewVector(p.data.Count, p.data.Type)
	return p.grad
}

// SetGrad replaces the gradient; g must match the data shape.
func (p *Param) SetGrad(g *kb.Vector) { p.grad = g }

func (p *Param) ClearGrad() { p.grad = nil }

// Collection is a Model holding parameters in insertion order.
type Collection struct {
	Params []Parameter
}

func NewCollection(ps ...Parameter) *Collection {
	return &Collection{Params: ps}
}

func (c *Collection) Add(p Parameter) {
	c.Params = append(c.Params, p)
}

func (c *Collection) ForEachParameter(f func(p Parameter)) {
	for _, p := range c.Params {
		f(p)
	}
}
