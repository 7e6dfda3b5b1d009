// Package codec packs a gradient set into one contiguous device buffer and
// back. Copies are issued on a device stream and complete asynchronously: a
// caller must synchronize the stream before reading the results.
//
// Only the packed range of the buffer is written. Whatever lies beyond it,
// including padding added for even chunking, keeps stale contents unless the
// caller initialises it.
package codec

import (
	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/params"
	"github.com/pkg/errors"
)

type region struct {
	name string
	grad *kb.Vector
	view *kb.Vector
}

func layout(gs params.GradientSet, buf *device.Buffer, dtype kb.DataType, zeroFill bool) ([]region, error) {
	var rs []region
	var offset int
	for _, s := range gs {
		count := s.Grad.Count
		if zeroFill && count != s.Param.Size() {
			return nil, errors.Wrapf(kb.ErrSize, "gradient of %s has %d elements, parameter has %d", s.Param.Name(), count, s.Param.Size())
		}
		view, err := buf.ViewAt(offset, count, dtype)
		if err != nil {
			return nil, errors.WithMessagef(err, "packing %s", s.Param.Name())
		}
		rs = append(rs, region{name: s.Param.Name(), grad: s.Grad, view: view})
		offset += count * dtype.Size()
	}
	return rs, nil
}

// Pack copies each gradient, converted to dtype, into consecutive offsets of buf.
func Pack(gs params.GradientSet, buf *device.Buffer, dtype kb.DataType, zeroFill bool, s *device.Stream) error {
	rs, err := layout(gs, buf, dtype, zeroFill)
	if err != nil {
		return err
	}
	for _, r := range rs {
		s.Enqueue("pack:"+r.name, func() error { return kb.Convert(r.view, r.grad) })
	}
	return nil
}

// Unpack copies consecutive ranges of buf back into each gradient, converting
// from dtype to the gradient's own precision.
func Unpack(gs params.GradientSet, buf *device.Buffer, dtype kb.DataType, zeroFill bool, s *device.Stream) error {
	rs, err := layout(gs, buf, dtype, zeroFill)
	if err != nil {
		return err
	}
	for _, r := range rs {
		s.Enqueue("unpack:"+r.name, func() error { return kb.Convert(r.grad, r.view) })
	}
	return nil
}
