package httpapi

import (
	"net/http"
	"strconv"

	"github.com/teresa-solution/settings-management-service/internal/model"
)

// ListAudit returns audit entries filtered by type, tenant or user. Without a
// filter it returns the most recent entries.
func (a *API) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var (
		entries []*model.AuditEntry
		err     error
	)
	switch {
	case q.Get("type") != "":
		entries, err = a.audit.GetByType(r.Context(), q.Get("type"), limit)
	case q.Get("tenant_id") != "":
		entries, err = a.audit.GetByTenant(r.Context(), q.Get("tenant_id"), limit)
	case q.Get("user_id") != "":
		entries, err = a.audit.GetByUser(r.Context(), q.Get("user_id"), limit)
	default:
		entries, err = a.audit.GetRecent(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
