// Package api serves exported feature rows over HTTP and reports liveness over gRPC.
package api

import (
	"FlowFeatures/internal/dataset"
	"FlowFeatures/internal/query"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	querier query.Querier
}

// NewRouter wires the dataset routes and, when gatherer is non-nil, /metrics.
func NewRouter(querier query.Querier, gatherer prometheus.Gatherer) http.Handler {
	h := &APIHandler{querier: querier}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/flows", h.flowsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/flows/{id}", h.flowHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/summary", h.summaryHandler).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// NewGRPCServer returns a gRPC server exposing the standard health service.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// flowsHandler lists rows matching ?label=&protocol=&limit=.
func (h *APIHandler) flowsHandler(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flows, err := h.querier.Flows(r.Context(), q)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query flows: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"count": len(flows), "flows": flows})
}

// flowHandler returns every row exported for one flow ID.
func (h *APIHandler) flowHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rows, err := h.querier.Flow(r.Context(), id)
	if errors.Is(err, query.ErrNotFound) {
		http.Error(w, fmt.Sprintf("flow %s not found", id), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to query flow: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"flow_id": id, "rows": rows})
}

func (h *APIHandler) summaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.querier.Summary(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to summarize flows: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

func parseQuery(r *http.Request) (dataset.Query, error) {
	var q dataset.Query
	values := r.URL.Query()

	if v := values.Get("label"); v != "" {
		label, err := strconv.Atoi(v)
		if err != nil {
			return q, fmt.Errorf("invalid label %q", v)
		}
		q.Label = &label
	}
	if v := values.Get("protocol"); v != "" {
		proto, err := parseProtocol(v)
		if err != nil {
			return q, err
		}
		q.Protocol = &proto
	}
	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return q, fmt.Errorf("invalid limit %q", v)
		}
		q.Limit = limit
	}
	return q, nil
}

// parseProtocol accepts a protocol number or the names tcp and udp.
func parseProtocol(v string) (uint8, error) {
	switch strings.ToLower(v) {
	case "tcp":
		return 6, nil
	case "udp":
		return 17, nil
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid protocol %q", v)
	}
	return uint8(n), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
