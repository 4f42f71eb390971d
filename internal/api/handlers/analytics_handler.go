package handlers

import (
	"net/http"

	"invostock/internal/engine/analytics"
	"invostock/internal/pkg/errors"
)

type AnalyticsHandler struct {
	svc *analytics.Service
}

func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Dashboard returns the counters of the caller's scope.
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context(), scopeOf(r))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
