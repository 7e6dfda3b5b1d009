package device

import (
	"unsafe"

	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/log"
	"github.com/pkg/errors"
)

// Buffer is a resizable region of device memory owned by a single reducer.
// Contents are never cleared on reuse and are undefined after growth.
type Buffer struct {
	alloc Allocator
	mem   []byte
}

func NewBuffer(alloc Allocator) *Buffer {
	return &Buffer{alloc: alloc}
}

// Assign makes the buffer hold at least n bytes. The allocation never shrinks.
func (b *Buffer) Assign(n int) error {
	if n < 0 {
		return errors.Wrapf(kb.ErrSize, "assign %d bytes", n)
	}
	if n <= len(b.mem) {
		bufferReuses.Inc()
		return nil
	}
	old := len(b.mem)
	b.Release()
	mem, err := b.alloc.Alloc(n)
	if err != nil {
		return err
	}
	b.mem = mem
	bufferAllocations.Inc()
	log.Debugf("device buffer grown from %d to %d bytes", old, n)
	return nil
}

func (b *Buffer) Capacity() int {
	return len(b.mem)
}

// Address identifies the current region; it changes only when Assign reallocates.
func (b *Buffer) Address() uintptr {
	if len(b.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b.mem[0]))
}

// View interprets the first count elements of the region as dtype.
func (b *Buffer) View(count int, dtype kb.DataType) (*kb.Vector, error) {
	return b.ViewAt(0, count, dtype)
}

// ViewAt interprets count elements of dtype starting offset bytes into the region.
func (b *Buffer) ViewAt(offset, count int, dtype kb.DataType) (*kb.Vector, error) {
	n := count * dtype.Size()
	if offset < 0 || count < 0 || offset+n > len(b.mem) {
		return nil, errors.Wrapf(kb.ErrSize, "view of %d bytes at offset %d exceeds capacity %d", n, offset, len(b.mem))
	}
	return &kb.Vector{
		Data:  b.mem[offset : offset+n : offset+n],
		Count: count,
		Type:  dtype,
	}, nil
}

// Release returns the region to the allocator.
func (b *Buffer) Release() {
	if b.mem != nil {
		b.alloc.Free(b.mem)
		b.mem = nil
	}
}
