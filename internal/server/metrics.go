package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablelink/tablelink/internal/relay"
)

// metricsHandler exposes relay occupancy gauges on a dedicated
// registry, one per App so tests can run several instances.
func metricsHandler(registry relay.Registry) http.Handler {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tablelink_rooms",
		Help: "Number of active rooms.",
	}, func() float64 {
		return float64(registry.Stats().RoomCount)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tablelink_clients",
		Help: "Number of connected clients across all rooms.",
	}, func() float64 {
		return float64(registry.Stats().ClientCount)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tablelink_hosts",
		Help: "Number of clients identified as hosts.",
	}, func() float64 {
		return float64(registry.Stats().HostCount)
	}))
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "tablelink_controllers",
		Help: "Number of clients identified as controllers.",
	}, func() float64 {
		return float64(registry.Stats().ControllerCount)
	}))

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
