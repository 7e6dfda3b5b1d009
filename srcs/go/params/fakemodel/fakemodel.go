// Package fakemodel builds parameter collections with the layer sizes of real
// networks, for benchmarks and tests that do not need real training.
package fakemodel

import (
	"fmt"
	"sort"

	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/params"
	"github.com/lsds/hcomm/srcs/go/utils/assert"
)

var slpMNIST = []int{784 * 10, 10}

var mlpMNIST = []int{
	784 * 512, 512,
	512 * 512, 512,
	512 * 10, 10,
}

var vgg16Imagenet = []int{
	1728, 64, 36864, 64,
	73728, 128, 147456, 128,
	294912, 256, 589824, 256, 589824, 256,
	1179648, 512, 2359296, 512, 2359296, 512,
	2359296, 512, 2359296, 512, 2359296, 512,
	102760448, 4096,
	16777216, 4096,
	4096000, 1000,
}

var Models = map[string][]int{
	"slp-mnist":      slpMNIST,
	"mlp-mnist":      mlpMNIST,
	"vgg16-imagenet": vgg16Imagenet,
}

var Names = func(m map[string][]int) []string {
	var ks []string
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}(Models)

// FakeModel is a params.Collection whose gradients are always present.
type FakeModel struct {
	*params.Collection
	sizes []int
	dtype kb.DataType
}

func New(sizes []int, dtype kb.DataType) *FakeModel {
	c := params.NewCollection()
	for i, size := range sizes {
		p := params.NewParam(fmt.Sprintf("layer_%d", i), size, dtype)
		p.AttachZeroGrad()
		c.Add(p)
	}
	return &FakeModel{
		Collection: c,
		sizes:      sizes,
		dtype:      dtype,
	}
}

// Size returns the total element count.
func (m *FakeModel) Size() int {
	var n int
	for _, s := range m.sizes {
		n += s
	}
	return n
}

// Fill sets every gradient element to x.
func (m *FakeModel) Fill(x float32) {
	m.ForEachParameter(func(p params.Parameter) {
		g := p.Grad()
		ones := kb.NewVector(g.Count, kb.F32)
		for i := range ones.AsF32() {
			ones.AsF32()[i] = x
		}
		assert.OK(kb.Convert(g, ones))
	})
}

func (m *FakeModel) Info() string {
	return fmt.Sprintf("%d parameters, total size: %d, dtype: %s", len(m.sizes), m.Size(), m.dtype)
}
