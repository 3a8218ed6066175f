package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/blob"
	"github.com/NavaneethReddy332/TitaniumShare-sub000/pkg/catalog"
)

// healthProbeKey is an object key that is never written; Head on it exercises
// credentials and connectivity without touching real data.
const healthProbeKey = "healthz/probe"

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	catalog *catalog.Store
	blob    blob.Store
}

// NewHealthHandler creates a health handler. Either dependency may be nil, in
// which case its readiness check is skipped.
func NewHealthHandler(cat *catalog.Store, store blob.Store) *HealthHandler {
	return &HealthHandler{catalog: cat, blob: store}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness handles GET /health. It answers as long as the process serves
// requests.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, healthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}

// Readiness handles GET /health/ready. It pings the catalog and probes the
// blob store; either failing makes the whole probe fail with 503.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	if h.catalog != nil {
		if err := h.catalog.Ping(ctx); err != nil {
			checks["catalog"] = err.Error()
			healthy = false
		} else {
			checks["catalog"] = "ok"
		}
	}

	if h.blob != nil {
		// Absence of the probe object is the expected outcome; only
		// transport or credential errors count as failures.
		if _, err := h.blob.Head(ctx, healthProbeKey); err != nil {
			if errors.Is(err, blob.ErrAuth) {
				checks["blob"] = "authentication failed"
			} else {
				checks["blob"] = err.Error()
			}
			healthy = false
		} else {
			checks["blob"] = "ok"
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}
