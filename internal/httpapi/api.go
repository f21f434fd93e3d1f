package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/settings-management-service/internal/broadcast"
	"github.com/teresa-solution/settings-management-service/internal/model"
	"github.com/teresa-solution/settings-management-service/internal/settings"
)

// SettingsService is the workflow surface the API exposes.
type SettingsService interface {
	Get(ctx context.Context, category, tenantID string) (map[string]any, error)
	Save(ctx context.Context, category, tenantID string, value map[string]any, meta settings.RequestMeta) (map[string]any, error)
	TestConnection(ctx context.Context, category, tenantID string, value map[string]any, meta settings.RequestMeta) (settings.TestResult, error)
	Categories() []string
}

// AuditQuerier exposes the audit trail read side.
type AuditQuerier interface {
	GetByType(ctx context.Context, settingsType string, limit int) ([]*model.AuditEntry, error)
	GetByTenant(ctx context.Context, tenantID string, limit int) ([]*model.AuditEntry, error)
	GetByUser(ctx context.Context, userID string, limit int) ([]*model.AuditEntry, error)
	GetRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}

// StreamHub is the live-update subscription surface.
type StreamHub interface {
	Subscribe(ctx context.Context, userID, tenantID string) <-chan broadcast.Event
}

// API carries the handler dependencies.
type API struct {
	settings  SettingsService
	audit     AuditQuerier
	stream    StreamHub
	jwtSecret []byte
}

// New creates the API.
func New(settingsSvc SettingsService, auditSvc AuditQuerier, stream StreamHub, jwtSecret string) *API {
	return &API{
		settings:  settingsSvc,
		audit:     auditSvc,
		stream:    stream,
		jwtSecret: []byte(jwtSecret),
	}
}

// Routes registers every endpoint on mux.
func (a *API) Routes(mux *http.ServeMux) {
	mux.Handle("GET /api/v1/settings", a.requireAuth(a.ListCategories))
	mux.Handle("GET /api/v1/settings/{category}", a.requireAuth(a.GetSettings))
	mux.Handle("PUT /api/v1/settings/{category}", a.requireAuth(a.SaveSettings))
	mux.Handle("POST /api/v1/settings/{category}/test", a.requireAuth(a.TestSettings))
	mux.Handle("GET /api/v1/audit", a.requireAuth(a.ListAudit))
	mux.Handle("GET /api/v1/stream", a.requireAuth(a.Stream))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeServiceError maps workflow errors onto HTTP statuses. Only validation,
// test, persistence and decryption failures are user visible; everything else
// is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *settings.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": verr.Errors,
		})
		return
	}
	var terr *settings.TestError
	if errors.As(err, &terr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "connectivity test failed",
			"details": terr.Message,
		})
		return
	}
	if errors.Is(err, settings.ErrUnknownCategory) {
		writeError(w, http.StatusNotFound, "unknown settings category")
		return
	}
	if errors.Is(err, settings.ErrTestUnsupported) {
		writeError(w, http.StatusBadRequest, "category does not support connectivity tests")
		return
	}
	log.Error().Err(err).Msg("Settings request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
