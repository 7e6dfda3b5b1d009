package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lsds/hcomm/srcs/go/collective"
	"github.com/lsds/hcomm/srcs/go/collective/internode"
	"github.com/lsds/hcomm/srcs/go/collective/local"
	"github.com/lsds/hcomm/srcs/go/config"
	"github.com/lsds/hcomm/srcs/go/device"
	kb "github.com/lsds/hcomm/srcs/go/hcomm/base"
	"github.com/lsds/hcomm/srcs/go/hierarchical"
	"github.com/lsds/hcomm/srcs/go/log"
	"github.com/lsds/hcomm/srcs/go/monitor"
	"github.com/lsds/hcomm/srcs/go/params/fakemodel"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/lsds/hcomm/srcs/go/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

var (
	hosts        = flag.String("hosts", "127.0.0.1:2,127.0.0.2:2", "ip:slots,... one node per ip")
	portRange    = flag.String("port-range", plan.DefaultPortRange.String(), "ports given to the slots of each host")
	peerList     = flag.String("peers", "", "ip:port,... overrides -hosts and -port-range")
	model        = flag.String("model", fakemodel.Names[0], strings.Join(fakemodel.Names, " | "))
	transport    = flag.String("transport", "local", "local | tcp")
	epochs       = flag.Int("epochs", 15, "")
	warmupEpochs = flag.Int("warmup", 2, "warmup epochs")
	zeroFill     = flag.Bool("zero-fill", false, "attach zero gradients to parameters without one")
	debug        = flag.Bool("debug", config.Debug, "check gradients are finite around each reduction")
	traces       = flag.Bool("otel", false, "print trace spans to stdout")
)

const stallPeriod = 10 * time.Second

func main() {
	flag.Parse()
	sizes, ok := fakemodel.Models[*model]
	if !ok {
		log.Exitf("invalid model name: %s", *model)
	}
	peers, err := genPeers(*peerList, *hosts, *portRange)
	if err != nil {
		utils.ExitErr(err)
	}
	if *traces {
		shutdown, err := setupTracing()
		if err != nil {
			utils.ExitErr(err)
		}
		defer shutdown()
	}
	if config.EnableMonitoring {
		monitor.StartServer(config.MonitoringAddr)
		defer monitor.StopServer()
	}
	boot, closeBoot := newBootstrapper(*transport, peers)
	defer closeBoot()
	utils.Trap(func(sig os.Signal) {
		log.Warnf("%s received, closing", sig)
		closeBoot()
		os.Exit(1)
	})

	var g errgroup.Group
	for _, self := range peers {
		g.Go(func() error { return benchAllReduce(peers, self, boot, sizes) })
	}
	if err := g.Wait(); err != nil {
		log.Exitf("benchmark failed: %v", err)
	}
}

func genPeers(peers, hosts, ports string) (plan.PeerList, error) {
	if len(peers) > 0 {
		return plan.ParsePeerList(peers)
	}
	hl, err := plan.ParseHostList(hosts)
	if err != nil {
		return nil, err
	}
	pr, err := plan.ParsePortRange(ports)
	if err != nil {
		return nil, err
	}
	return hl.GenPeerList(hl.Cap(), *pr)
}

func newBootstrapper(transport string, peers plan.PeerList) (collective.Bootstrapper, func()) {
	switch transport {
	case "local":
		return local.NewCluster(peers), func() {}
	case "tcp":
		c := internode.NewCluster(peers)
		return c, func() {
			if err := c.Close(); err != nil {
				log.Warnf("%v", err)
			}
		}
	}
	log.Exitf("invalid transport: %s", transport)
	return nil, nil
}

func setupTracing() (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "hcomm-bench-allreduce"),
		)),
	)
	otel.SetTracerProvider(tp)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown tracer provider: %v\n", err)
		}
	}, nil
}

func benchAllReduce(peers plan.PeerList, self plan.PeerID, boot collective.Bootstrapper, sizes []int) error {
	alloc := device.DefaultAllocator()
	comm, err := hierarchical.New(peers, self, boot, hierarchical.WithAllocator(alloc))
	if err != nil {
		return err
	}
	defer comm.Close()
	rank := comm.Rank()
	m := fakemodel.New(sizes, kb.F32)
	if rank == 0 {
		log.Infof("model: %s, %s", *model, m.Info())
		log.Infof("%d ranks on %d nodes, transport: %s", comm.Size(), comm.InterSize(), *transport)
	}
	if err := comm.BroadcastData(m); err != nil {
		return err
	}
	opts := hierarchical.DefaultReduceOptions()
	opts.ZeroFill = *zeroFill
	opts.Debug = *debug
	runEpoch := func() error {
		defer utils.InstallStallDetector(fmt.Sprintf("rank %d reduction", rank), stallPeriod, log.Warnf).Stop()
		m.Fill(1)
		if err := comm.MultiNodeMeanGrad(m, opts); err != nil {
			return err
		}
		return checkResult(m, float32(comm.Size()))
	}
	for i := 0; i < *warmupEpochs; i++ {
		if rank == 0 {
			log.Infof("warmup epoch %d", i+1)
		}
		if err := runEpoch(); err != nil {
			return err
		}
	}
	duration, err := utils.Measure(func() error {
		for i := 0; i < *epochs; i++ {
			if rank == 0 {
				log.Debugf("epoch %d", i+1)
			}
			if err := runEpoch(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rank == 0 {
		workload := int64(*epochs) * int64(m.Size()) * int64(kb.F32.Size())
		log.Infof("Result: model: %s, %s, took %s, rate: %s", *model, m.Info(), duration, utils.ShowRate(workload, duration))
		log.Infof("reduction buffers hold %s of device memory per rank", utils.ShowSize(int64(alloc.Used())))
	}
	return nil
}

func checkResult(m *fakemodel.FakeModel, want float32) error {
	for _, p := range m.Params {
		for i, x := range p.Grad().AsF32() {
			if x != want {
				return fmt.Errorf("%s[%d] = %f, want %f", p.Name(), i, x, want)
			}
		}
	}
	return nil
}
