package monitor

import (
	"testing"
	"time"

	"github.com/lsds/hcomm/srcs/go/plan"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func Test_netMetrics(t *testing.T) {
	m := newMonitor(true)
	a := plan.NetAddr{IPv4: plan.MustParseIPv4("10.0.0.1"), Port: 10000}
	before := testutil.ToFloat64(egressBytes.WithLabelValues(a.String()))
	m.Egress(100, a)
	m.Egress(28, a)
	m.Ingress(7, a)
	assert.Equal(t, before+128, testutil.ToFloat64(egressBytes.WithLabelValues(a.String())))
	assert.Equal(t, float64(7), testutil.ToFloat64(ingressBytes.WithLabelValues(a.String())))
}

func Test_noopMonitor(t *testing.T) {
	m := newMonitor(false)
	a := plan.NetAddr{IPv4: plan.MustParseIPv4("10.0.0.2"), Port: 10000}
	m.Egress(100, a)
	assert.Equal(t, float64(0), testutil.ToFloat64(egressBytes.WithLabelValues(a.String())))
}

func Test_reducer_metrics(t *testing.T) {
	before := testutil.ToFloat64(reducedBytes)
	AddReducedBytes(64)
	assert.Equal(t, before+64, testutil.ToFloat64(reducedBytes))

	ObserveReduction("pack", time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(reductionSeconds))
}
