package device

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bufferAllocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hcomm_device_buffer_allocations_total",
		Help: "Total number of device buffer (re)allocations",
	})

	bufferReuses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hcomm_device_buffer_reuses_total",
		Help: "Total number of assign calls served by the existing allocation",
	})

	allocatedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hcomm_device_allocated_bytes",
		Help: "Bytes currently held by host-backed device allocators",
	})

	streamTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hcomm_device_stream_tasks_total",
		Help: "Tasks executed on ordering streams, by outcome",
	}, []string{"outcome"})
)
