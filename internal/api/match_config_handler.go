package api

import (
	"fmt"
	"net/http"

	"talent-match/internal/matching"
)

// MatchConfigHandler reads or updates a tenant's scoring configuration
// @Summary Tenant match configuration
// @Description GET returns the effective config (stored or defaults); PUT replaces it after validation
// @Tags matches
// @Accept json
// @Produce json
// @Param tenant_id query string true "Tenant ID (GET)"
// @Param config body matching.Config false "New configuration (PUT)"
// @Success 200 {object} matching.Config
// @Failure 400 {object} map[string]string
// @Router /matches/config [get]
func (a *API) MatchConfigHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tenantID := r.URL.Query().Get("tenant_id")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}
		cfg, err := a.db.TenantMatchConfig(r.Context(), tenantID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load config: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	case http.MethodPut:
		var cfg matching.Config
		if err := decodeJSON(r, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if cfg.TenantID == "" {
			writeError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}
		// Weight sets that don't sum to 1.0 are rejected, never normalized.
		if err := cfg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.db.SaveMatchConfig(r.Context(), cfg); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save config: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, cfg)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
