package audit

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teresa-solution/settings-management-service/internal/model"
	"github.com/teresa-solution/settings-management-service/internal/monitoring"
)

// RedactedValue replaces sensitive field values before they are persisted.
const RedactedValue = "***REDACTED***"

// sensitiveFields are field names whose values never reach the audit log.
var sensitiveFields = map[string]struct{}{
	"password":     {},
	"secret":       {},
	"token":        {},
	"key":          {},
	"apikey":       {},
	"accesstoken":  {},
	"refreshtoken": {},
}

// Repository is the storage contract the audit service writes through.
type Repository interface {
	Insert(ctx context.Context, entry *model.AuditEntry) error
	ListByType(ctx context.Context, settingsType string, limit int) ([]*model.AuditEntry, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*model.AuditEntry, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditEntry, error)
	ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service records settings changes. Writes are best-effort: an audit outage
// must never block the operation it is recording.
type Service struct {
	repo Repository
}

// NewService creates an audit Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Log appends an audit entry. Failures are logged and counted, never
// propagated.
func (s *Service) Log(ctx context.Context, entry *model.AuditEntry) {
	if err := s.repo.Insert(ctx, entry); err != nil {
		monitoring.AuditWriteFailures.Inc()
		log.Error().Err(err).
			Str("settings_type", entry.SettingsType).
			Str("action", string(entry.Action)).
			Msg("Failed to persist audit entry")
	}
}

// GetByType returns recent entries for a settings type.
func (s *Service) GetByType(ctx context.Context, settingsType string, limit int) ([]*model.AuditEntry, error) {
	return s.repo.ListByType(ctx, settingsType, normalizeLimit(limit))
}

// GetByTenant returns recent entries scoped to a tenant.
func (s *Service) GetByTenant(ctx context.Context, tenantID string, limit int) ([]*model.AuditEntry, error) {
	return s.repo.ListByTenant(ctx, tenantID, normalizeLimit(limit))
}

// GetByUser returns recent entries recorded for an actor.
func (s *Service) GetByUser(ctx context.Context, userID string, limit int) ([]*model.AuditEntry, error) {
	return s.repo.ListByUser(ctx, userID, normalizeLimit(limit))
}

// GetRecent returns the most recent entries across all scopes.
func (s *Service) GetRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	return s.repo.ListRecent(ctx, normalizeLimit(limit))
}

// Cleanup deletes entries older than daysToKeep days and returns the number
// deleted. On storage failure it returns 0 rather than an error.
func (s *Service) Cleanup(ctx context.Context, daysToKeep int) int64 {
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)
	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Int("days_to_keep", daysToKeep).Msg("Audit cleanup failed")
		monitoring.Alert("audit retention cleanup failed", map[string]string{
			"error": err.Error(),
		})
		return 0
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Audit cleanup completed")
	}
	return n
}

// CalculateDiff computes the field-level difference between old and new.
// Fields present in new whose value differs from old (including fields absent
// from old) are emitted as {old, new}; fields removed in new are emitted as
// {old, nil}. Nested values are deliberately compared by deep equality, not
// identity, so a nested object rebuilt by the caller with the same content is
// not reported as a change; the diff itself stays flat, one entry per
// top-level field.
func CalculateDiff(oldValue, newValue map[string]any) model.ChangeSet {
	changes := model.ChangeSet{}
	for field, newV := range newValue {
		oldV, existed := oldValue[field]
		if !existed || !reflect.DeepEqual(oldV, newV) {
			changes[field] = model.FieldChange{Old: oldV, New: newV}
		}
	}
	for field, oldV := range oldValue {
		if _, kept := newValue[field]; !kept {
			changes[field] = model.FieldChange{Old: oldV, New: nil}
		}
	}
	return changes
}

// Sanitize returns a copy of value with sensitive field values replaced by
// RedactedValue, recursing into nested objects.
func Sanitize(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	out := make(map[string]any, len(value))
	for field, v := range value {
		if isSensitiveField(field) {
			out[field] = RedactedValue
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[field] = Sanitize(nested)
			continue
		}
		out[field] = v
	}
	return out
}

// SanitizeChanges redacts before/after values of sensitive fields in a change
// set, preserving the fact that the field changed.
func SanitizeChanges(changes model.ChangeSet) model.ChangeSet {
	out := make(model.ChangeSet, len(changes))
	for field, change := range changes {
		if isSensitiveField(field) {
			redacted := model.FieldChange{}
			if change.Old != nil {
				redacted.Old = RedactedValue
			}
			if change.New != nil {
				redacted.New = RedactedValue
			}
			out[field] = redacted
			continue
		}
		out[field] = change
	}
	return out
}

func isSensitiveField(field string) bool {
	_, ok := sensitiveFields[strings.ToLower(field)]
	return ok
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
