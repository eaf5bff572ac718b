// Package api exposes the core services over HTTP: SigV4 authentication
// as middleware, a thin set of zone-management routes, and the
// operational health/metrics endpoints every adapter needs. It is
// deliberately shallow — request decoding and status-code mapping only,
// with all real logic living in core/services.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverstone-dns/zonectl/internal/core/domain"
	"github.com/riverstone-dns/zonectl/internal/core/ports"
	"github.com/riverstone-dns/zonectl/internal/core/services"
)

// APIHandler wires the HTTP surface to the core services.
type APIHandler struct {
	zones  *services.ZoneService
	repo   ports.ZoneRepository
	logger *slog.Logger
}

// NewAPIHandler builds an APIHandler.
func NewAPIHandler(zones *services.ZoneService, repo ports.ZoneRepository, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{zones: zones, repo: repo, logger: logger}
}

// RegisterRoutes mounts the handler's routes on mux, with auth applied
// to every route that mutates or reads account-scoped state.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux, auth *services.Authenticator) {
	authenticated := AuthMiddleware(auth)

	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /zones", authenticated(http.HandlerFunc(h.CreateZone)))
	mux.Handle("GET /zones", authenticated(http.HandlerFunc(h.ListZones)))
	mux.Handle("GET /zones/{id}", authenticated(http.HandlerFunc(h.GetZone)))
	mux.Handle("DELETE /zones/{id}", authenticated(http.HandlerFunc(h.DeleteZone)))
	mux.Handle("POST /zones/{id}/transition", authenticated(http.HandlerFunc(h.TransitionZone)))
	mux.Handle("POST /zones/{id}/acl", authenticated(http.HandlerFunc(h.AddACLRule)))
	mux.Handle("DELETE /zones/{id}/acl", authenticated(http.HandlerFunc(h.DeleteACLRule)))
}

// HealthCheck reports liveness of the zone repository backing this process.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *APIHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	var params domain.NewZoneParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	zone, err := h.zones.CreateZone(r.Context(), principal.UserID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, zone)
}

func (h *APIHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	zones, err := h.repo.ListZones(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = principal // not consulted: the list is filtered only by the account query parameter
	writeJSON(w, http.StatusOK, zones)
}

func (h *APIHandler) GetZone(w http.ResponseWriter, r *http.Request) {
	zone, err := h.repo.GetZone(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if zone == nil {
		http.Error(w, "zone not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (h *APIHandler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.zones.DeleteZone(r.Context(), principal.UserID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) TransitionZone(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status domain.ZoneStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	zone, err := h.zones.TransitionZone(r.Context(), principal.UserID, r.PathValue("id"), body.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (h *APIHandler) AddACLRule(w http.ResponseWriter, r *http.Request) {
	h.mutateACL(w, r, func(principal domain.Principal, zoneID string, rule domain.ZoneACLRule) (*domain.Zone, error) {
		return h.zones.AddACLRule(r.Context(), principal.UserID, zoneID, rule)
	})
}

func (h *APIHandler) DeleteACLRule(w http.ResponseWriter, r *http.Request) {
	h.mutateACL(w, r, func(principal domain.Principal, zoneID string, rule domain.ZoneACLRule) (*domain.Zone, error) {
		return h.zones.DeleteACLRule(r.Context(), principal.UserID, zoneID, rule)
	})
}

func (h *APIHandler) mutateACL(w http.ResponseWriter, r *http.Request, do func(domain.Principal, string, domain.ZoneACLRule) (*domain.Zone, error)) {
	var rule domain.ZoneACLRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	zone, err := do(principal, r.PathValue("id"), rule)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

// writeServiceError maps a core error to a status code: validation
// failures are the caller's fault (400), everything else is treated as
// an infrastructural fault (500).
func writeServiceError(w http.ResponseWriter, err error) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verrs})
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
