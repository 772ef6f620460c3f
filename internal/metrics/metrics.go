// Package metrics exposes capture session counters to Prometheus.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionMetrics holds the counters a capture session updates.
//
// Raw packets count everything the capture source delivered; used packets
// count those that reached the flow table.
type SessionMetrics struct {
	RawPackets   prometheus.Counter
	UsedPackets  prometheus.Counter
	Flows        prometheus.Gauge
	RowsExported *prometheus.CounterVec
}

// New creates the session metrics. They are not registered yet.
func New() *SessionMetrics {
	return &SessionMetrics{
		RawPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowfeatures_packets_raw_total",
			Help: "Packets delivered by the capture source, including skipped ones.",
		}),
		UsedPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowfeatures_packets_used_total",
			Help: "TCP/UDP packets aggregated into flows.",
		}),
		Flows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowfeatures_flows",
			Help: "Flows in the current session's flow table.",
		}),
		RowsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowfeatures_rows_exported_total",
			Help: "Feature rows written, by writer.",
		}, []string{"writer"}),
	}
}

// MustRegister registers all metrics into the provided registry.
func (m *SessionMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.RawPackets, m.UsedPackets, m.Flows, m.RowsExported)
}

// Serve exposes gatherer on addr under /metrics in a background goroutine.
// The caller shuts the returned server down.
func Serve(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("Metrics server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()
	return server
}
