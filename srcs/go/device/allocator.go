package device

import (
	"sync"

	"github.com/lsds/hcomm/srcs/go/config"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/pkg/errors"
)

// Allocator hands out device memory regions.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

// HostAllocator backs device memory with host memory.
// A positive Limit caps the bytes held at once, modelling the device capacity.
type HostAllocator struct {
	sync.Mutex
	Limit int
	used  int
}

func NewHostAllocator(limit int) *HostAllocator {
	return &HostAllocator{Limit: limit}
}

// DefaultAllocator returns a HostAllocator limited by config.DeviceMemoryLimit.
func DefaultAllocator() *HostAllocator {
	return NewHostAllocator(config.DeviceMemoryLimit)
}

func (a *HostAllocator) Alloc(n int) ([]byte, error) {
	a.Lock()
	defer a.Unlock()
	if a.Limit > 0 && a.used+n > a.Limit {
		return nil, errors.Wrapf(kb.ErrAllocation, "out of device memory: requested %d bytes, %d of %d in use", n, a.used, a.Limit)
	}
	a.used += n
	allocatedBytes.Add(float64(n))
	return make([]byte, n), nil
}

func (a *HostAllocator) Free(b []byte) {
	a.Lock()
	defer a.Unlock()
	a.used -= cap(b)
	allocatedBytes.Sub(float64(cap(b)))
}

func (a *HostAllocator) Used() int {
	a.Lock()
	defer a.Unlock()
	return a.used
}
