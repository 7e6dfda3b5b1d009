package hierarchical

import (
	"context"
	"time"

	"github.com/lsds/hcomm/srcs/go/codec"
	"github.com/lsds/hcomm/srcs/go/config"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/monitor"
	"github.com/lsds/hcomm/srcs/go/params"
	"github.com/lsds/hcomm/srcs/go/utils"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// reduceType is the element type gradients are summed in.
const reduceType = kb.F32

// transfer describes what one rank does in a two-tier sum.
type transfer struct {
	dtype      kb.DataType // element type of the buffers
	contribute bool        // add own values, zeros otherwise
	writeBack  bool        // unpack the sum into the set
}

var tracer = otel.Tracer("github.com/lsds/hcomm/srcs/go/hierarchical")

type ReduceOptions struct {
	// ZeroFill attaches zero gradients to parameters without one, so every
	// parameter takes a slot and the packed layout is the same on every call.
	ZeroFill bool

	// Debug checks that gradients are finite before and after the reduction.
	Debug bool
}

func DefaultReduceOptions() ReduceOptions {
	return ReduceOptions{Debug: config.Debug}
}

// MultiNodeMeanGrad replaces the gradients of model with their sum over all
// ranks of the job. It does not divide by the number of ranks.
//
// Every rank must call it with a model of the same gradient layout. A
// mismatch between ranks fails in the back-end with ErrCountMismatch at
// best and may hang the job.
func (c *Communicator) MultiNodeMeanGrad(model params.Model, opts ReduceOptions) error {
	h, err := c.ensureInitialized()
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(context.Background(), "MultiNodeMeanGrad", trace.WithAttributes(
		attribute.Int("rank", c.Rank()),
		attribute.String("role", h.role.String()),
		attribute.Bool("zero_fill", opts.ZeroFill),
		attribute.Bool("debug", opts.Debug),
	))
	defer span.End()
	gs := params.Extract(model, opts.ZeroFill)
	err = c.twoTierSum(ctx, h, gs, opts, transfer{dtype: reduceType, contribute: true, writeBack: true})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// BroadcastData copies the parameter data of job rank 0 to every rank,
// through the same two tiers: other ranks contribute zeros to the sum.
// Data is transferred as float64 when any parameter is float64, as float32
// otherwise. Rank 0 keeps its data untouched.
func (c *Communicator) BroadcastData(model params.Model) error {
	h, err := c.ensureInitialized()
	if err != nil {
		return err
	}
	gs := params.Data(model)
	dtype, err := broadcastType(gs)
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(context.Background(), "BroadcastData", trace.WithAttributes(
		attribute.Int("rank", c.Rank()),
		attribute.String("dtype", dtype.String()),
	))
	defer span.End()
	source := c.Rank() == 0
	err = c.twoTierSum(ctx, h, gs, ReduceOptions{ZeroFill: true}, transfer{dtype: dtype, contribute: source, writeBack: !source})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// broadcastType is the narrowest float type that holds every slot exactly.
func broadcastType(gs params.GradientSet) (kb.DataType, error) {
	dtype := reduceType
	for _, s := range gs {
		t := s.Grad.Type
		if !t.IsFloat() {
			return 0, errors.Wrapf(kb.ErrSize, "cannot broadcast %s data of %s", t, s.Param.Name())
		}
		if t.Size() > dtype.Size() {
			dtype = t
		}
	}
	return dtype, nil
}

// twoTierSum sums the slots of gs over the job in tr.dtype.
func (c *Communicator) twoTierSum(ctx context.Context, h *handles, gs params.GradientSet, opts ReduceOptions, tr transfer) error {
	total := params.CountElements(gs, opts.ZeroFill)
	if total == 0 {
		return nil
	}
	interSize := c.topo.InterSize()
	perNode := utils.CeilDiv(total, interSize)
	dtype := tr.dtype
	nBytesBuffer := perNode * dtype.Size() * interSize

	if err := c.bufA.Assign(nBytesBuffer); err != nil {
		return err
	}
	if err := c.bufB.Assign(nBytesBuffer); err != nil {
		return err
	}
	a, err := c.bufA.View(perNode*interSize, dtype)
	if err != nil {
		return err
	}
	b, err := c.bufB.View(perNode*interSize, dtype)
	if err != nil {
		return err
	}
	s := c.stream

	err = c.phase(ctx, "pack", func() error {
		if !tr.contribute {
			s.Enqueue("zero", func() error {
				a.Slice(0, total).Zero()
				return nil
			})
			return nil
		}
		return codec.Pack(gs, c.bufA, dtype, opts.ZeroFill, s)
	})
	if err != nil {
		return err
	}
	if opts.Debug {
		if err := s.Synchronize(); err != nil {
			return err
		}
		if err := checkReady(a, b, total); err != nil {
			return err
		}
	}

	w := kb.Workspace{SendBuf: a.Slice(0, total), RecvBuf: b.Slice(0, total), OP: kb.SUM, Name: "intra"}
	if err := c.phase(ctx, "intra_reduce", func() error { return h.Intra.Reduce(w, 0, s) }); err != nil {
		return err
	}
	if err := c.phase(ctx, "inter_allreduce", func() error { return h.role.crossNode(b, total, perNode, s) }); err != nil {
		return err
	}
	bw := kb.Workspace{SendBuf: b.Slice(0, total), RecvBuf: b.Slice(0, total), OP: kb.SUM, Name: "intra"}
	if err := c.phase(ctx, "intra_broadcast", func() error { return h.Intra.Broadcast(bw, 0, s) }); err != nil {
		return err
	}
	if opts.Debug {
		if err := s.Synchronize(); err != nil {
			return err
		}
		if !kb.AllFinite(b.Slice(0, total)) {
			return errors.Wrap(kb.ErrNonFinite, "reduced gradients")
		}
	}

	if tr.writeBack {
		err = c.phase(ctx, "unpack", func() error {
			return codec.Unpack(gs, c.bufB, dtype, opts.ZeroFill, s)
		})
		if err != nil {
			return err
		}
	}
	if err := c.phase(ctx, "synchronize", s.Synchronize); err != nil {
		return err
	}
	monitor.AddReducedBytes(gs.Bytes(dtype))
	return nil
}

func checkReady(a, b *kb.Vector, n int) error {
	if a.Count != b.Count || a.Type != b.Type {
		return errors.Wrapf(kb.ErrSize, "buffers differ: %d %s and %d %s", a.Count, a.Type, b.Count, b.Type)
	}
	if !kb.AllFinite(a.Slice(0, n)) {
		return errors.Wrap(kb.ErrNonFinite, "packed gradients")
	}
	return nil
}

func (c *Communicator) phase(ctx context.Context, name string, f func() error) error {
	_, span := tracer.Start(ctx, name)
	defer span.End()
	t0 := time.Now()
	err := f()
	monitor.ObserveReduction(name, time.Since(t0))
	if err != nil {
		span.RecordError(err)
		return errors.WithMessage(err, name)
	}
	return nil
}
