package monitor

import (
	"net/http"

	"github.com/lsds/hcomm/srcs/go/log"
	"github.com/lsds/hcomm/srcs/go/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	monitoringServer *http.Server
)

// StartServer exposes the prometheus registry on addr under /metrics.
func StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	monitoringServer = &http.Server{
		Handler: mux,
		Addr:    addr,
	}
	log.Infof("serving metrics on http://%s/metrics", addr)
	go func() {
		if err := monitoringServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.ExitErr(err)
		}
	}()
}

func StopServer() {
	if monitoringServer != nil {
		monitoringServer.Close()
	}
}
