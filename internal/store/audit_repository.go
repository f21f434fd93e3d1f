package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/teresa-solution/settings-management-service/internal/model"
)

const auditColumns = `id, user_id, tenant_id, settings_type, action, changes, ip_address, user_agent, status, error_message, created_at`

// AuditRepository handles database operations for audit entries. Entries are
// append-only; the only mutation is bulk deletion past the retention window.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository over db.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends an audit entry.
func (r *AuditRepository) Insert(ctx context.Context, entry *model.AuditEntry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO settings_audit_log (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID, nullIfEmpty(entry.UserID), nullIfEmpty(entry.TenantID),
		entry.SettingsType, entry.Action, changes,
		nullIfEmpty(entry.IPAddress), nullIfEmpty(entry.UserAgent),
		entry.Status, nullIfEmpty(entry.ErrorMessage), entry.CreatedAt,
	)
	return err
}

// ListByType returns the most recent entries for a settings type.
func (r *AuditRepository) ListByType(ctx context.Context, settingsType string, limit int) ([]*model.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM settings_audit_log
		WHERE settings_type = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, settingsType, limit)
}

// ListByTenant returns the most recent entries scoped to a tenant.
func (r *AuditRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*model.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM settings_audit_log
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, tenantID, limit)
}

// ListByUser returns the most recent entries recorded for an actor.
func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM settings_audit_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

// ListRecent returns the most recent entries across all scopes.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM settings_audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

// DeleteOlderThan removes entries created before cutoff and returns the
// number of rows deleted.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM settings_audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *AuditRepository) list(ctx context.Context, query string, args ...any) ([]*model.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		entry := &model.AuditEntry{}
		var userID, tenantID, ipAddress, userAgent, errorMessage sql.NullString
		var changes []byte
		if err := rows.Scan(&entry.ID, &userID, &tenantID, &entry.SettingsType,
			&entry.Action, &changes, &ipAddress, &userAgent,
			&entry.Status, &errorMessage, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				return nil, err
			}
		}
		entry.UserID = userID.String
		entry.TenantID = tenantID.String
		entry.IPAddress = ipAddress.String
		entry.UserAgent = userAgent.String
		entry.ErrorMessage = errorMessage.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
