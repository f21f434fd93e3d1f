package model

import (
	"time"

	"github.com/google/uuid"
)

// SettingRecord represents a row in the settings table. The value column holds
// an arbitrary JSON document; sensitive fields inside it are stored encrypted.
type SettingRecord struct {
	ID        uuid.UUID      `json:"id"`
	Key       string         `json:"key"`
	Category  string         `json:"category"`
	Value     map[string]any `json:"value"`
	UpdatedBy string         `json:"updated_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AuditAction identifies the kind of settings-changing action being recorded.
type AuditAction string

const (
	ActionCreate              AuditAction = "create"
	ActionUpdate              AuditAction = "update"
	ActionDelete              AuditAction = "delete"
	ActionTest                AuditAction = "test"
	ActionPlanChange          AuditAction = "plan_change"
	ActionCancel              AuditAction = "cancel"
	ActionUpdatePaymentMethod AuditAction = "update_payment_method"
)

// AuditStatus is the outcome of the recorded action.
type AuditStatus string

const (
	StatusSuccess AuditStatus = "success"
	StatusFailed  AuditStatus = "failed"
)

// FieldChange captures the before/after values of a single field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeSet maps field names to their before/after values.
type ChangeSet map[string]FieldChange

// AuditEntry is an immutable record of one settings-changing action. Exactly
// one entry is written per save attempt, success or failure.
type AuditEntry struct {
	ID           uuid.UUID   `json:"id"`
	UserID       string      `json:"user_id,omitempty"`
	TenantID     string      `json:"tenant_id,omitempty"`
	SettingsType string      `json:"settings_type"`
	Action       AuditAction `json:"action"`
	Changes      ChangeSet   `json:"changes,omitempty"`
	IPAddress    string      `json:"ip_address,omitempty"`
	UserAgent    string      `json:"user_agent,omitempty"`
	Status       AuditStatus `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
