package api

import (
	"context"
	"net/http"
	"time"
)

// SystemHandler serves liveness and build information. DBCheck is optional;
// a failing check is reported but does not fail the probe, since reads
// degrade to empty results without a database.
type SystemHandler struct {
	DBCheck func(ctx context.Context) error
}

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database,omitempty"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Service: "academy"}
	if h.DBCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Database = "up"
		if err := h.DBCheck(ctx); err != nil {
			logger.Warn("health: database check failed", "err", err)
			resp.Database = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}
