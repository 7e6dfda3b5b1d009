package monitor

import (
	"time"

	"github.com/lsds/hcomm/srcs/go/config"
	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Monitor interface {
	Egress(n int64, a plan.NetAddr)
	Ingress(n int64, a plan.NetAddr)
}

var defaultMonitor Monitor

func init() {
	defaultMonitor = newMonitor(config.EnableMonitoring)
}

func GetMonitor() Monitor {
	return defaultMonitor
}

type noopMonitor struct{}

func (m *noopMonitor) Egress(n int64, a plan.NetAddr) {}

func (m *noopMonitor) Ingress(n int64, a plan.NetAddr) {}

var (
	egressBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hcomm",
		Subsystem: "net",
		Name:      "egress_bytes_total",
		Help:      "Bytes sent, by destination peer.",
	}, []string{"peer"})

	ingressBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hcomm",
		Subsystem: "net",
		Name:      "ingress_bytes_total",
		Help:      "Bytes received, by source peer.",
	}, []string{"peer"})
)

type netMetrics struct{}

func newMonitor(enabled bool) Monitor {
	if !enabled {
		return &noopMonitor{}
	}
	return &netMetrics{}
}

func (m *netMetrics) Egress(n int64, a plan.NetAddr) {
	egressBytes.WithLabelValues(a.String()).Add(float64(n))
}

func (m *netMetrics) Ingress(n int64, a plan.NetAddr) {
	ingressBytes.WithLabelValues(a.String()).Add(float64(n))
}

var (
	reductionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hcomm",
		Subsystem: "reducer",
		Name:      "phase_seconds",
		Help:      "Time spent issuing or running each phase of a hierarchical reduction.",
		Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
	}, []string{"phase"})

	reducedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hcomm",
		Subsystem: "reducer",
		Name:      "reduced_bytes_total",
		Help:      "Bytes of packed gradients reduced.",
	})
)

// ObserveReduction records the duration of one reduction phase.
func ObserveReduction(phase string, d time.Duration) {
	reductionSeconds.WithLabelValues(phase).Observe(d.Seconds())
}

func AddReducedBytes(n int) {
	reducedBytes.Add(float64(n))
}
