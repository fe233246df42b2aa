// Package metrics exposes Prometheus instrumentation for the gateway
// and the telemetry logger.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	GatewayTxFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canplat_gateway_tx_frames_total",
		Help: "Total CAN frames transmitted per bus.",
	}, []string{"bus"})
	GatewayRxFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canplat_gateway_rx_frames_total",
		Help: "Total CAN frames received per bus.",
	}, []string{"bus"})
	GatewayTxErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canplat_gateway_tx_errors_total",
		Help: "Total failed transmissions per bus.",
	}, []string{"bus"})
	GatewayStaleReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canplat_gateway_stale_reads_total",
		Help: "Total receive calls that returned an already consumed frame.",
	}, []string{"bus"})
	LoggerEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canplat_logger_entries_total",
		Help: "Total telemetry entries accepted by the logger.",
	})
	LoggerDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canplat_logger_dropped_total",
		Help: "Total telemetry entries dropped because the queue was full.",
	})
	LoggerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "canplat_logger_queue_depth",
		Help: "Current number of queued telemetry entries.",
	})
)

// StartHTTP serves Prometheus metrics at /metrics on the given address
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Infof("[METRICS] listening on %v", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("[METRICS] http server error : %v", err)
		}
	}()
	return srv
}
