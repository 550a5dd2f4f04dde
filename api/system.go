package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/garnizeh/cddrecords/internal/routing"
)

// StoreChecker reports store reachability. *routing.Registry implements it.
type StoreChecker interface {
	PingPrimary(ctx context.Context) error
	Ping(ctx context.Context) map[routing.Group]error
}

type SystemHandler struct {
	stores  StoreChecker
	timeout time.Duration
}

func NewSystemHandler(stores StoreChecker, timeout time.Duration) *SystemHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SystemHandler{stores: stores, timeout: timeout}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Error   string `json:"error,omitempty"`
}

type storeStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type storesResponse struct {
	Status string                        `json:"status"`
	Stores map[routing.Group]storeStatus `json:"stores"`
}

// HealthHandler pings the primary store.
func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Service: "cdd"}
	code := http.StatusOK
	if err := h.stores.PingPrimary(ctx); err != nil {
		logger.Warn("primary store unreachable", slog.Any("err", err))
		resp.Status, resp.Error = "unavailable", err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// StoresHandler pings every bound store group. One unreachable group makes
// the whole response degraded but still lists the others.
func (h *SystemHandler) StoresHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := storesResponse{Status: "ok", Stores: make(map[routing.Group]storeStatus)}
	code := http.StatusOK
	for g, err := range h.stores.Ping(ctx) {
		if err != nil {
			resp.Stores[g] = storeStatus{Status: "unavailable", Error: err.Error()}
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Stores[g] = storeStatus{Status: "ok"}
	}
	writeJSON(w, code, resp)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", slog.Any("err", err))
	}
}
