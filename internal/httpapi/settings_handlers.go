package httpapi

import (
	"encoding/json"
	"net/http"
)

// ListCategories returns the registered settings categories.
func (a *API) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": a.settings.Categories()})
}

// GetSettings returns the current value of one category, falling back to the
// category defaults when nothing has been saved yet.
func (a *API) GetSettings(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	id := identityFrom(r.Context())

	value, err := a.settings.Get(r.Context(), category, id.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"value":    value,
	})
}

// SaveSettings runs the full save workflow for one category.
func (a *API) SaveSettings(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	id := identityFrom(r.Context())

	var value map[string]any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	saved, err := a.settings.Save(r.Context(), category, id.TenantID, value, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"value":    saved,
	})
}

// TestSettings probes the external dependency of a category without saving.
func (a *API) TestSettings(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	id := identityFrom(r.Context())

	var value map[string]any
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := a.settings.TestConnection(r.Context(), category, id.TenantID, value, requestMeta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": result.Success,
		"message": result.Message,
	})
}
